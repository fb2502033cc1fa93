package httpclient

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kbukum/crudkit/crud"
	"github.com/kbukum/crudkit/template"
)

var _ crud.Response = (*Response)(nil)

// Response is an open HTTP response. The body streams from the connection
// until Close, which drains a bounded remainder so the connection can be
// reused.
type Response struct {
	raw       *http.Response
	closeOnce sync.Once
	closeErr  error
}

func newResponse(raw *http.Response) *Response {
	return &Response{raw: raw}
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.raw.StatusCode }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.raw.Header }

// HasBody reports whether the response may carry an entity body.
func (r *Response) HasBody() bool {
	if r.raw.Body == nil || r.raw.Body == http.NoBody || r.raw.ContentLength == 0 {
		return false
	}
	if r.raw.Request != nil && r.raw.Request.Method == http.MethodHead {
		return false
	}
	return r.raw.StatusCode != http.StatusNoContent && r.raw.StatusCode != http.StatusNotModified
}

// Body returns the entity body. It is valid until Close.
func (r *Response) Body() io.Reader {
	if r.raw.Body == nil {
		return http.NoBody
	}
	return r.raw.Body
}

// Close releases the connection. It is safe to call more than once.
func (r *Response) Close() error {
	r.closeOnce.Do(func() {
		if r.raw.Body == nil {
			return
		}
		_, _ = io.CopyN(io.Discard, r.raw.Body, maxDrain)
		r.closeErr = r.raw.Body.Close()
	})
	return r.closeErr
}

const maxDrain = 64 << 10

// ContentType returns the parsed Content-Type, if present and valid.
func (r *Response) ContentType() (template.MediaType, bool) {
	mt, err := template.ParseMediaType(r.raw.Header.Get("Content-Type"))
	if err != nil {
		return template.MediaType{}, false
	}
	return mt, true
}

// ContentLength returns the body length, or -1 when unknown.
func (r *Response) ContentLength() int64 { return r.raw.ContentLength }

// Location returns the Location header resolved against the request URL.
func (r *Response) Location() (*url.URL, bool) {
	loc, err := r.raw.Location()
	if err != nil {
		return nil, false
	}
	return loc, true
}

// ETag returns the entity tag.
func (r *Response) ETag() (string, bool) {
	v := r.raw.Header.Get("ETag")
	return v, v != ""
}

// LastModified returns the Last-Modified time.
func (r *Response) LastModified() (time.Time, bool) {
	t, err := http.ParseTime(r.raw.Header.Get("Last-Modified"))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Cookies returns the cookies set by the response.
func (r *Response) Cookies() []*http.Cookie { return r.raw.Cookies() }

// Allow returns the methods listed in the Allow header.
func (r *Response) Allow() []string {
	var methods []string
	for _, v := range r.raw.Header.Values("Allow") {
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				methods = append(methods, strings.ToUpper(m))
			}
		}
	}
	return methods
}

// IsSuccess returns true if the status code is 2xx.
func (r *Response) IsSuccess() bool {
	return r.raw.StatusCode >= 200 && r.raw.StatusCode < 300
}

// Err returns a *crud.StatusError for a non-2xx status and nil otherwise.
// The body is not read.
func (r *Response) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &crud.StatusError{Status: r.raw.StatusCode, Response: r}
}

// Raw returns the underlying *http.Response.
func (r *Response) Raw() *http.Response { return r.raw }
