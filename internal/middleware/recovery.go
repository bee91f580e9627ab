package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/R3E-Network/tracker/internal/errors"
	"github.com/R3E-Network/tracker/internal/httputil"
	"github.com/R3E-Network/tracker/pkg/logger"
)

// RecoveryMiddleware turns a handler panic into a logged 500 response.
func RecoveryMiddleware(log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrap(w)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithContext(r.Context()).
					WithField("panic", fmt.Sprint(rec)).
					WithField("stack", string(debug.Stack())).
					Error("handler panicked")
				if !rw.written {
					httputil.WriteError(rw, errors.Internal("internal server error", nil))
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
