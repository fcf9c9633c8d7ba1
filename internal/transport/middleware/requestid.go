package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/google/uuid"

	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
)

const TraceHeader = "X-Trace-ID"

// RequestID tags the request with a trace id, taken from the caller when present.
// The id is put on the context logger and on chi's request id so both agree.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := logger.With(r.Context(), "traceID", traceID)
		ctx = context.WithValue(ctx, middleware.RequestIDKey, traceID)

		w.Header().Set(TraceHeader, traceID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
