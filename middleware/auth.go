package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ClarenceCat/awf-group-api/logging"
	"github.com/ClarenceCat/awf-group-api/models"
	"github.com/ClarenceCat/awf-group-api/services"
)

type contextKey string

const userContextKey contextKey = "user"

// Authenticator resolves a bearer token to the acting user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// JWTAuthMiddleware rejects requests without a valid bearer token and stores
// the resolved user in the request context.
func JWTAuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logging.Logger.Debugf("Event ID: JWT_AUTH_MIDDLEWARE_START, Description: Starting JWTAuthMiddleware for request to %s %s", r.Method, r.URL.Path)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logging.Logger.Warnf("Event ID: JWT_AUTH_MISSING_HEADER, Description: Authorization header missing for request to %s %s", r.Method, r.URL.Path)
				WriteError(w, http.StatusUnauthorized, "You must be logged in.")
				return
			}

			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenStr == authHeader {
				logging.Logger.Warnf("Event ID: JWT_AUTH_BEARER_PREFIX_MISSING, Description: Bearer prefix missing in Authorization header for request to %s %s", r.Method, r.URL.Path)
			}

			user, err := auth.Authenticate(r.Context(), strings.TrimSpace(tokenStr))
			if err != nil {
				if errors.Is(err, services.ErrStorage) {
					logging.Logger.Errorf("Event ID: JWT_AUTH_LOOKUP_FAILED, Description: User lookup failed for request to %s %s: %v", r.Method, r.URL.Path, err)
					WriteError(w, http.StatusInternalServerError, services.Message(err))
					return
				}
				logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: Invalid token provided for request to %s %s", r.Method, r.URL.Path)
				WriteError(w, http.StatusUnauthorized, services.Message(err))
				return
			}

			logging.Logger.Debugf("Event ID: JWT_AUTH_SUCCESS, Description: Token validated for user %s on %s %s", user.ID.Hex(), r.Method, r.URL.Path)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user stored by JWTAuthMiddleware.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}
