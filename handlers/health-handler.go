package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ClarenceCat/awf-group-api/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// Health reports 503 when the document store does not answer a ping.
func Health(store Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logging.Logger.Errorf("Event ID: HEALTH_CHECK_FAILED, Description: Store ping failed: %v", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
