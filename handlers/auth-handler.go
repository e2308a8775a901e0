package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ClarenceCat/awf-group-api/logging"
	"github.com/ClarenceCat/awf-group-api/services"
)

type AuthAPI interface {
	Register(ctx context.Context, req services.RegisterRequest) (*services.AuthResponse, error)
	Login(ctx context.Context, req services.LoginRequest) (*services.AuthResponse, error)
}

// AuthHandler reports credential failures as 200 with an {"error"} body.
// Only store failures get a 5xx.
type AuthHandler struct {
	service AuthAPI
}

func NewAuthHandler(service AuthAPI) *AuthHandler {
	return &AuthHandler{service: service}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !decodeAuthBody(w, r, &req) {
		return
	}
	resp, err := h.service.Register(r.Context(), req)
	h.respond(w, r, resp, err)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !decodeAuthBody(w, r, &req) {
		return
	}
	resp, err := h.service.Login(r.Context(), req)
	h.respond(w, r, resp, err)
}

func (h *AuthHandler) respond(w http.ResponseWriter, r *http.Request, resp *services.AuthResponse, err error) {
	if err != nil {
		if errors.Is(err, services.ErrStorage) {
			writeServiceError(w, r, err, http.StatusBadRequest)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"error": services.Message(err)})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func decodeAuthBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.Logger.Warnf("Event ID: INVALID_PAYLOAD, Description: Invalid auth payload for %s: %v", r.URL.Path, err)
		writeJSON(w, http.StatusOK, map[string]string{"error": "Credentials are missing"})
		return false
	}
	return true
}
