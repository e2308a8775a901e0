package handlers

import (
	"context"
	"net/http"

	"github.com/ClarenceCat/awf-group-api/models"

	"github.com/gorilla/mux"
)

type TaskAPI interface {
	Assign(ctx context.Context, caller *models.User, projectID, taskID, email string) (*models.TaskView, error)
	Unassign(ctx context.Context, caller *models.User, projectID, taskID, email string) (*models.TaskView, error)
	ListAssigned(ctx context.Context, caller *models.User) ([]models.TaskView, error)
}

type TaskHandler struct {
	service TaskAPI
}

func NewTaskHandler(service TaskAPI) *TaskHandler {
	return &TaskHandler{service: service}
}

// ListAssigned serves GET /tasks: every task assigned to the caller.
func (h *TaskHandler) ListAssigned(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	tasks, err := h.service.ListAssigned(r.Context(), user)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tasks": tasks})
}

func (h *TaskHandler) Assign(w http.ResponseWriter, r *http.Request) {
	h.changeAssignment(w, r, h.service.Assign)
}

func (h *TaskHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	h.changeAssignment(w, r, h.service.Unassign)
}

type assignmentFunc func(ctx context.Context, caller *models.User, projectID, taskID, email string) (*models.TaskView, error)

func (h *TaskHandler) changeAssignment(w http.ResponseWriter, r *http.Request, apply assignmentFunc) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req emailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	task, err := apply(r.Context(), user, vars["id"], vars["taskId"], req.Email)
	if err != nil {
		writeServiceError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"task": task})
}
