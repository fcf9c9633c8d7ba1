package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed     ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAction        ErrorCode = "INVALID_ACTION"
	ErrCodeRemarkRequired       ErrorCode = "REMARK_REQUIRED"
	ErrCodeInvalidAmount        ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidPaymentMethod ErrorCode = "INVALID_PAYMENT_METHOD"
	ErrCodeBeneficiaryRequired  ErrorCode = "BENEFICIARY_REQUIRED"
	ErrCodeInvalidCaseType      ErrorCode = "INVALID_CASE_TYPE"
	ErrCodeInvalidDocumentType  ErrorCode = "INVALID_DOCUMENT_TYPE"
	ErrCodeInvalidRole          ErrorCode = "INVALID_RAHAT_ROLE"
	ErrCodeInvalidEmail         ErrorCode = "INVALID_EMAIL"

	ErrCodeCaseNotFound      ErrorCode = "CASE_NOT_FOUND"
	ErrCodeCaseAlreadyClosed ErrorCode = "CASE_ALREADY_CLOSED"

	ErrCodeNotAuthenticated ErrorCode = "NOT_AUTHENTICATED"
	ErrCodePageForbidden    ErrorCode = "PAGE_FORBIDDEN"
	ErrCodeRoleForbidden    ErrorCode = "ROLE_FORBIDDEN"
	ErrCodeTooManyRequests  ErrorCode = "TOO_MANY_REQUESTS"

	ErrCodeUpstreamRejected    ErrorCode = "UPSTREAM_REJECTED"
	ErrCodeUpstreamUnavailable ErrorCode = "UPSTREAM_UNAVAILABLE"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Title      string      `json:"title,omitempty"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithTitle(title string) *AppError {
	e.Title = title
	return e
}

// Fields returns the field names carried by validation details.
func (e *AppError) Fields() []string {
	details, ok := e.Details.(ValidationErrors)
	if !ok {
		return nil
	}
	fields := make([]string, 0, len(details.Errors))
	for _, ve := range details.Errors {
		fields = append(fields, ve.Field)
	}
	return fields
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewRateLimitedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeRateLimited,
		Code:       ErrCodeTooManyRequests,
		Message:    message,
		StatusCode: http.StatusTooManyRequests,
	}
}

// NewUpstreamError keeps the backend's title and message untouched so they reach the user verbatim.
func NewUpstreamError(status int, title, message string, cause error) *AppError {
	code := ErrCodeUpstreamRejected
	if status == 0 || status >= http.StatusInternalServerError {
		code = ErrCodeUpstreamUnavailable
		if status == 0 {
			status = http.StatusBadGateway
		}
	}
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Title:      title,
		Message:    message,
		StatusCode: status,
		Cause:      cause,
	}
}

var (
	ErrNotAuthenticated = NewUnauthorizedError("You are not authenticated", ErrCodeNotAuthenticated)
	ErrRoleForbidden    = NewForbiddenError("Access Denied", ErrCodeRoleForbidden)
	ErrCaseNotFound     = NewNotFoundError("Case not found", ErrCodeCaseNotFound)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Title   string      `json:"title,omitempty"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Title:   e.Title,
		Message: e.Message,
		Details: e.Details,
	})
}
