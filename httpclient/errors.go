package httpclient

import (
	"errors"
	"fmt"

	goerrors "github.com/kbukum/crudkit/errors"
)

// ErrorCode classifies exchanges that ended without a response. Statuses
// are never errors here; crud.FailedResponses turns them into
// *crud.StatusError when the caller asks for it.
type ErrorCode int

const (
	// ErrCodeTimeout means the exchange or dial ran out of time.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection covers refused connections, DNS and TLS failures.
	ErrCodeConnection
	// ErrCodeRequest means the request could not be built: a bad address,
	// an unencodable body or failed token signing.
	ErrCodeRequest
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeRequest:
		return "request"
	default:
		return "unknown"
	}
}

// Error is a transport failure of one exchange.
type Error struct {
	Code    ErrorCode
	Method  string
	URL     string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("httpclient: %s %s: %s: %s", e.Method, e.URL, e.Code, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause and the matching application error, so both
// errors.Is(err, context.DeadlineExceeded) and errors.As(err, &appErr) work.
func (e *Error) Unwrap() []error {
	out := []error{e.appError()}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Temporary reports whether sending the request again may succeed.
func (e *Error) Temporary() bool {
	return e.Code != ErrCodeRequest
}

func (e *Error) appError() *goerrors.AppError {
	switch e.Code {
	case ErrCodeTimeout:
		return goerrors.Timeout(e.URL)
	case ErrCodeConnection:
		return goerrors.ConnectionFailed(e.URL)
	default:
		return goerrors.Validation(e.Message)
	}
}

// on records the exchange the error belongs to.
func (e *Error) on(method, url string) *Error {
	e.Method, e.URL = method, url
	return e
}

// NewTimeoutError wraps a deadline or dial timeout.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Err: err}
}

// NewConnectionError wraps a failure to reach the server.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Err: err}
}

// NewRequestError reports a request that could not be built.
func NewRequestError(msg string, err error) *Error {
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{Code: ErrCodeRequest, Message: msg, Err: err}
}

// IsTimeout reports whether err is an exchange timeout.
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsConnection reports whether err is a connection failure.
func IsConnection(err error) bool {
	return hasCode(err, ErrCodeConnection)
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
