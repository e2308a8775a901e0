package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ClarenceCat/awf-group-api/logging"
	"github.com/ClarenceCat/awf-group-api/middleware"
	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/services"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Logger.Errorf("Event ID: RESPONSE_ENCODE_FAILED, Description: Failed to encode response: %v", err)
	}
}

// writeServiceError maps an error category to a status. Routes differ only in
// how they report "not found or not a member", so that status is a parameter.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, notFoundStatus int) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConflict):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrUnauthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, services.ErrNotFound):
		status = notFoundStatus
	}

	if status == http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	middleware.WriteError(w, status, services.Message(err))
}

// decodeBody reports a malformed payload as a validation failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.Logger.Warnf("Event ID: INVALID_PAYLOAD, Description: Invalid request payload for %s %s: %v", r.Method, r.URL.Path, err)
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}
	return true
}

// caller returns the authenticated user. Routes are only reachable behind
// JWTAuthMiddleware, so a missing user is treated as unauthenticated.
func caller(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "You must be logged in.")
	}
	return user, ok
}
