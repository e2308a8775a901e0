package handlers

import (
	"context"
	"net/http"

	"github.com/ClarenceCat/awf-group-api/models"

	"github.com/gorilla/mux"
)

type NotificationAPI interface {
	List(ctx context.Context, caller *models.User) ([]models.Notification, error)
	MarkRead(ctx context.Context, caller *models.User, notificationID, createdAt string) error
}

type NotificationHandler struct {
	service NotificationAPI
}

func NewNotificationHandler(service NotificationAPI) *NotificationHandler {
	return &NotificationHandler{service: service}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	list, err := h.service.List(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"notifications": list})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req struct {
		CreatedAt string `json:"created_at"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.service.MarkRead(r.Context(), user, mux.Vars(r)["id"], req.CreatedAt); err != nil {
		writeServiceError(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification marked as read"})
}
