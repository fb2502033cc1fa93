package errors

// ErrorCode is the stable, machine-readable part of an AppError.
type ErrorCode string

// Availability. All retryable.
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	ErrCodeTimeout            ErrorCode = "TIMEOUT"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Response statuses mapped by FromStatus.
const (
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeUnexpectedStatus marks a response status the caller chose to treat as a failure.
	ErrCodeUnexpectedStatus ErrorCode = "UNEXPECTED_STATUS"
)

// Input and configuration.
const (
	ErrCodeInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrCodeMissingField  ErrorCode = "MISSING_FIELD"
	ErrCodeInvalidFormat ErrorCode = "INVALID_FORMAT"
)

// Credentials.
const (
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
)

// Everything else. ErrCodeExternalService is any other 5xx.
const (
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// IsRetryableCode reports whether a failure with code may succeed when
// repeated unchanged.
func IsRetryableCode(code ErrorCode) bool {
	switch code {
	case ErrCodeServiceUnavailable, ErrCodeConnectionFailed, ErrCodeTimeout,
		ErrCodeRateLimited, ErrCodeExternalService:
		return true
	default:
		return false
	}
}
