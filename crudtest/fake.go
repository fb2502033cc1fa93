package crudtest

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kbukum/crudkit/crud"
)

// Response is an in-memory crud.Response that counts Close calls.
type Response struct {
	Status   int
	Headers  http.Header
	Data     []byte
	CloseErr error

	once   sync.Once
	body   *bytes.Reader
	closes atomic.Int32
}

// NewResponse returns a response with the given status and body.
func NewResponse(status int, body string) *Response {
	return &Response{Status: status, Headers: http.Header{}, Data: []byte(body)}
}

func (r *Response) StatusCode() int { return r.Status }

func (r *Response) Header() http.Header {
	if r.Headers == nil {
		return http.Header{}
	}
	return r.Headers
}

func (r *Response) HasBody() bool { return len(r.Data) > 0 }

func (r *Response) Body() io.Reader {
	r.once.Do(func() { r.body = bytes.NewReader(r.Data) })
	return r.body
}

func (r *Response) Close() error {
	r.closes.Add(1)
	return r.CloseErr
}

// Closes returns how many times Close was called.
func (r *Response) Closes() int { return int(r.closes.Load()) }

// Handler produces the outcome of one transport call.
type Handler func(ctx context.Context, req crud.Request) (crud.Response, error)

// Reply returns a handler answering every call with a fresh Response.
func Reply(status int, body string) Handler {
	return func(context.Context, crud.Request) (crud.Response, error) {
		return NewResponse(status, body), nil
	}
}

// Sequence returns a handler answering call n with handlers[n], repeating
// the last handler once the list is exhausted.
func Sequence(handlers ...Handler) Handler {
	var n atomic.Int32
	return func(ctx context.Context, req crud.Request) (crud.Response, error) {
		i := int(n.Add(1)) - 1
		if i >= len(handlers) {
			i = len(handlers) - 1
		}
		return handlers[i](ctx, req)
	}
}

// Transport is a crud.Transport completing each call on its own goroutine.
// It records requests and every *Response its handler returns.
type Transport struct {
	handler Handler
	// Release, when set, holds every call until it is closed.
	Release <-chan struct{}
	// StartErr, when set, is returned by Invoke without starting the call.
	StartErr error

	mu        sync.Mutex
	requests  []crud.Request
	responses []*Response
	wg        sync.WaitGroup
}

// NewTransport returns a transport answering with h.
func NewTransport(h Handler) *Transport {
	return &Transport{handler: h}
}

func (t *Transport) Invoke(ctx context.Context, req crud.Request, done func(crud.Response, error)) error {
	if t.StartErr != nil {
		return t.StartErr
	}
	t.mu.Lock()
	t.requests = append(t.requests, req)
	t.mu.Unlock()

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if t.Release != nil {
			<-t.Release
		}
		resp, err := t.handler(ctx, req)
		if r, ok := resp.(*Response); ok {
			t.mu.Lock()
			t.responses = append(t.responses, r)
			t.mu.Unlock()
		}
		done(resp, err)
	}()
	return nil
}

// Wait blocks until every started call has completed.
func (t *Transport) Wait() { t.wg.Wait() }

// Requests returns the recorded requests in call order.
func (t *Transport) Requests() []crud.Request {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]crud.Request(nil), t.requests...)
}

// Calls returns the number of started calls.
func (t *Transport) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}

// Responses returns the responses produced so far.
func (t *Transport) Responses() []*Response {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Response(nil), t.responses...)
}
