package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

type RequestRecorder interface {
	RecordRequest(method, route string, status int, elapsed time.Duration)
}

// Metrics records every request under its mux route template so that path
// parameters do not explode label cardinality. Register it with Router.Use.
func Metrics(recorder RequestRecorder) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			route := "unmatched"
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			recorder.RecordRequest(r.Method, route, rec.statusCode, time.Since(start))
		})
	}
}
