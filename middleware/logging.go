package middleware

import (
	"net/http"
	"time"

	"github.com/ClarenceCat/awf-group-api/logging"

	"github.com/sirupsen/logrus"
)

// RequestLogger logs one line per request; the level follows the response status.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := newStatusRecorder(w)

		next.ServeHTTP(rec, r)

		fields := logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}

		entry := logging.Logger.WithFields(fields)
		switch {
		case rec.statusCode >= http.StatusInternalServerError:
			entry.Error("Event ID: HTTP_REQUEST, Description: Request failed")
		case rec.statusCode >= http.StatusBadRequest:
			entry.Warn("Event ID: HTTP_REQUEST, Description: Request rejected")
		default:
			entry.Info("Event ID: HTTP_REQUEST, Description: Request served")
		}
	})
}
