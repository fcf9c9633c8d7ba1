package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
)

// RecoveryMiddleware turns a handler panic into a 500 and logs the stack with the request's fields.
func RecoveryMiddleware(lg *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				l := lg
				if l == nil {
					l = logger.From(r.Context())
				}
				l.Error("panic recovered",
					"error", rec,
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()))

				status, body := errors.NewInternalError("Something went wrong", nil).ToHTTPResponse()
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(body)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
