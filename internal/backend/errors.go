package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the relief backend. Title and Message are
// kept exactly as the server sent them.
type APIError struct {
	Status  int
	Code    string
	Title   string
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	text := e.Message
	if text == "" {
		text = e.Title
	}
	if text == "" {
		text = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, text)
	}
	return fmt.Sprintf("backend: %d %s", e.Status, text)
}

type errorBody struct {
	Code    string   `json:"code"`
	Title   string   `json:"title"`
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Errors  []string `json:"errors"`
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}

	apiErr.Code = eb.Code
	apiErr.Title = eb.Title
	apiErr.Message = eb.Message
	apiErr.Errors = eb.Errors
	if apiErr.Message == "" {
		apiErr.Message = eb.Error
	}
	return apiErr
}

// AsAPIError unwraps err into an *APIError when the backend produced it.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func IsStatus(err error, statuses ...int) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	for _, s := range statuses {
		if apiErr.Status == s {
			return true
		}
	}
	return false
}

func IsUnauthorized(err error) bool {
	return IsStatus(err, http.StatusUnauthorized)
}

func IsNotFound(err error) bool {
	return IsStatus(err, http.StatusNotFound)
}

// retryable decides whether a failed read is worth another attempt. Unauthorized,
// forbidden and not-found never are; neither are other client errors.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if apiErr, ok := AsAPIError(err); ok {
		switch apiErr.Status {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return true
		}
		return apiErr.Status >= http.StatusInternalServerError
	}
	return true
}
