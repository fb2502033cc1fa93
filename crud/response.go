package crud

import (
	"context"
	"io"
	"net/http"

	"github.com/kbukum/crudkit/template"
)

// Response is a completed request/response exchange. It holds transport
// resources until Close is called. The stream that produced a Response owns
// it; consumers must not keep it past the terminal signal.
type Response interface {
	StatusCode() int
	Header() http.Header
	HasBody() bool
	// Body returns the entity body. It is valid until Close.
	Body() io.Reader
	Close() error
}

// Request describes one transport call.
type Request struct {
	Method   string
	Address  string
	Template template.Template
}

// Transport performs requests asynchronously. Invoke starts the call and
// returns; done is called at most once with the outcome, possibly from
// another goroutine. Canceling ctx aborts the call. An error returned by
// Invoke means the call was not started and done will not be called.
type Transport interface {
	Invoke(ctx context.Context, req Request, done func(Response, error)) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req Request, done func(Response, error)) error

func (f TransportFunc) Invoke(ctx context.Context, req Request, done func(Response, error)) error {
	return f(ctx, req, done)
}
