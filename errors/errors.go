package errors

import (
	"fmt"
	"maps"
	"net/http"
)

// AppError is the error type of every crudkit package that classifies
// failures. Retryable drives crud.IsRetryable and the resilience layers.
type AppError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	HTTPStatus int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
	Cause      error          `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the cause and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	maps.Copy(e.Details, details)
	return e
}

// WithDetail sets one detail and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	return e.WithDetails(map[string]any{key: value})
}

// New returns an AppError whose retryability follows its code.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return newf(code, httpStatus, nil, "%s", message)
}

// FromStatus maps an HTTP response status onto an AppError.
// 429 and 5xx statuses other than 501 are retryable.
func FromStatus(status int) *AppError {
	var code ErrorCode
	switch {
	case status == http.StatusNotFound || status == http.StatusGone:
		code = ErrCodeNotFound
	case status == http.StatusConflict || status == http.StatusPreconditionFailed:
		code = ErrCodeConflict
	case status == http.StatusUnauthorized:
		code = ErrCodeUnauthorized
	case status == http.StatusForbidden:
		code = ErrCodeForbidden
	case status == http.StatusTooManyRequests:
		code = ErrCodeRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		code = ErrCodeTimeout
	case status == http.StatusServiceUnavailable:
		code = ErrCodeServiceUnavailable
	case status == http.StatusBadGateway:
		code = ErrCodeExternalService
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		code = ErrCodeInvalidInput
	case status >= 500 && status != http.StatusNotImplemented:
		code = ErrCodeExternalService
	default:
		code = ErrCodeUnexpectedStatus
	}

	msg := http.StatusText(status)
	if msg == "" {
		msg = "unexpected status"
	}
	return newf(code, status, map[string]any{"status": status}, "%d %s", status, msg)
}

func newf(code ErrorCode, status int, details map[string]any, format string, args ...any) *AppError {
	return &AppError{
		Code:       code,
		Message:    fmt.Sprintf(format, args...),
		HTTPStatus: status,
		Retryable:  IsRetryableCode(code),
		Details:    details,
	}
}

// ServiceUnavailable reports a dependency refusing work for now, such as an
// open circuit breaker.
func ServiceUnavailable(service string) *AppError {
	return newf(ErrCodeServiceUnavailable, http.StatusServiceUnavailable,
		map[string]any{"service": service}, "%s is temporarily unavailable", service)
}

// ConnectionFailed reports that no connection to service could be made.
func ConnectionFailed(service string) *AppError {
	return newf(ErrCodeConnectionFailed, http.StatusServiceUnavailable,
		map[string]any{"service": service}, "unable to connect to %s", service)
}

// Timeout reports an operation that ran out of time.
func Timeout(operation string) *AppError {
	return newf(ErrCodeTimeout, http.StatusGatewayTimeout,
		map[string]any{"operation": operation}, "%s timed out", operation)
}

// RateLimited reports a call refused by a client-side rate limit.
func RateLimited() *AppError {
	return newf(ErrCodeRateLimited, http.StatusTooManyRequests, nil, "rate limit exceeded")
}

// NotFound reports a missing resource. id may be empty.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id == "" {
		return newf(ErrCodeNotFound, http.StatusNotFound, details, "%s not found", resource)
	}
	details["id"] = id
	return newf(ErrCodeNotFound, http.StatusNotFound, details, "%s %q not found", resource, id)
}

// InvalidInput reports a rejected argument. field may be empty.
func InvalidInput(field, reason string) *AppError {
	details := map[string]any{}
	if field != "" {
		details["field"] = field
	}
	return newf(ErrCodeInvalidInput, http.StatusBadRequest, details, "invalid input: %s", reason)
}

// Validation reports a failed configuration or struct validation.
func Validation(message string) *AppError {
	return newf(ErrCodeInvalidInput, http.StatusBadRequest, nil, "%s", message)
}

// MissingField reports a required field left empty.
func MissingField(field string) *AppError {
	return newf(ErrCodeMissingField, http.StatusBadRequest,
		map[string]any{"field": field}, "missing required field: %s", field)
}

// InvalidFormat reports a value that does not parse as expected.
func InvalidFormat(field, expected string) *AppError {
	return newf(ErrCodeInvalidFormat, http.StatusBadRequest,
		map[string]any{"field": field, "expected_format": expected}, "invalid %s, expected %s", field, expected)
}

// Internal wraps a failure that indicates a bug rather than bad input.
func Internal(cause error) *AppError {
	return newf(ErrCodeInternal, http.StatusInternalServerError, nil, "internal error").WithCause(cause)
}
