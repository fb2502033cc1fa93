package crud

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kbukum/crudkit/stream"
	"github.com/kbukum/crudkit/template"
)

var errNilResponse = errors.New("crud: transport completed without a response")

// Reader reads the current state of a resource.
type Reader interface {
	Read() *stream.Single[Response]
}

// Writer replaces the state of a resource.
type Writer interface {
	Write(override template.Template) *stream.Single[Response]
}

// Updater applies a partial or server-interpreted change to a resource.
type Updater interface {
	Update(override template.Template) *stream.Single[Response]
}

// Deleter removes a resource.
type Deleter interface {
	Delete() *stream.Single[Response]
}

// ReadWriter reads and writes a resource.
type ReadWriter interface {
	Reader
	Writer
}

// CRUD has every capability.
type CRUD interface {
	Reader
	Writer
	Updater
	Deleter
}

var (
	_ CRUD       = (*Resource)(nil)
	_ ReadWriter = (*Resource)(nil)
)

// Resource is a remote resource at a fixed address. It is immutable and
// safe for concurrent use; each operation returns a new cold stream.
type Resource struct {
	address   string
	base      template.Template
	transport Transport
	exec      stream.Executor
}

// Address returns the resource address.
func (r *Resource) Address() string { return r.address }

// Template returns the default template applied to every request.
func (r *Resource) Template() template.Template { return r.base }

// Read issues a GET with the default template.
func (r *Resource) Read() *stream.Single[Response] {
	return r.call(http.MethodGet, r.base)
}

// Write issues a PUT with the default template overlaid by override.
func (r *Resource) Write(override template.Template) *stream.Single[Response] {
	return r.call(http.MethodPut, template.Merge(r.base, override))
}

// Update issues a POST with the default template overlaid by override.
func (r *Resource) Update(override template.Template) *stream.Single[Response] {
	return r.call(http.MethodPost, template.Merge(r.base, override))
}

// Delete issues a DELETE with the default template.
func (r *Resource) Delete() *stream.Single[Response] {
	return r.call(http.MethodDelete, r.base)
}

func (r *Resource) call(method string, t template.Template) *stream.Single[Response] {
	req := Request{Method: method, Address: r.address, Template: t}
	return stream.FromCallback(r.exec, func(ctx context.Context, done func(Response, error)) error {
		return r.transport.Invoke(ctx, req, func(resp Response, err error) {
			if err == nil && resp == nil {
				err = errNilResponse
			}
			done(resp, err)
		})
	}).Lift(CloseResponses())
}

// Equal reports whether both resources address the same location with an
// equal default template.
func (r *Resource) Equal(other *Resource) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.address == other.address && r.base.Equal(other.base)
}

func (r *Resource) String() string {
	return fmt.Sprintf("Resource{address=%s, template=%s}", r.address, r.base)
}
