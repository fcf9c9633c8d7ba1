package transport

import (
	"encoding/json"
	stdErrors "errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	errors "github.com/frahmantamala/rahat-dashboard/internal"
	"github.com/frahmantamala/rahat-dashboard/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
		if lg == nil {
			lg = slog.Default()
		}
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteError writes an error response
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.Logger.Error("http error", "status", status, "message", message)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	errorResp := map[string]interface{}{
		"code":    status,
		"message": message,
	}

	if err := json.NewEncoder(w).Encode(errorResp); err != nil {
		h.Logger.Error("failed to encode error response", "error", err)
	}
}

// WriteAppError writes an AppError as {"error": {...}} with its own status code.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, appErr *errors.AppError) {
	status, body := appErr.ToHTTPResponse()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error("request failed", "status", status, "code", appErr.Code, "error", appErr)
	} else {
		h.Logger.Warn("request rejected", "status", status, "code", appErr.Code, "message", appErr.Message)
	}
	h.WriteJSON(w, status, body)
}

// HandleServiceError maps a service error to a response. Errors that are not
// AppErrors are reported as internal errors without leaking their text.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, err error) {
	var appErr *errors.AppError
	if stdErrors.As(err, &appErr) {
		h.WriteAppError(w, appErr)
		return
	}
	h.WriteAppError(w, errors.NewInternalError("Something went wrong", err))
}

// DecodeJSON reads a JSON body, reporting a malformed one as a validation error.
func (h *BaseHandler) DecodeJSON(r *http.Request, out interface{}) *errors.AppError {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed).WithCause(err)
	}
	return nil
}

// QueryInt reads a positive integer query parameter, returning def when it is missing or invalid.
func QueryInt(r *http.Request, name string, def, max int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}
