package middleware

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/tracker/internal/app/audit"
	"github.com/R3E-Network/tracker/pkg/logger"
)

// AuditMiddleware records every routed request in the audit log. Reads of
// the audit trail itself are not recorded.
func AuditMiddleware(log *audit.Log) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if log == nil || r.URL.Path == "/audit" {
				next.ServeHTTP(w, r)
				return
			}

			wrapped := wrap(w)
			start := time.Now()
			next.ServeHTTP(wrapped, r)

			q := r.URL.Query()
			actor := logger.GetActor(r.Context())
			if actor == "" {
				actor = q.Get("user")
			}
			role := q.Get("role")
			if role == "" {
				role = GetUserRole(r.Context())
			}

			log.Add(r.Context(), audit.Entry{
				Time:       start.UTC(),
				Actor:      actor,
				Role:       role,
				Method:     r.Method,
				Path:       r.URL.Path,
				Status:     wrapped.statusCode,
				DurationMS: time.Since(start).Milliseconds(),
				RemoteAddr: r.RemoteAddr,
				TraceID:    logger.GetTraceID(r.Context()),
			})
		})
	}
}
