package httpclient

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/text/language"

	"github.com/kbukum/crudkit/template"
)

// requestBuilder applies a template to an *http.Request.
type requestBuilder struct {
	req         *http.Request
	contentType template.MediaType
	body        any
	hasBody     bool
}

var _ template.RequestBuilder = (*requestBuilder)(nil)

func (b *requestBuilder) SetHeader(name, value string) {
	b.req.Header.Set(name, value)
}

func (b *requestBuilder) SetAccept(types []template.MediaType) {
	values := make([]string, len(types))
	for i, mt := range types {
		values[i] = mt.String()
	}
	b.req.Header.Set("Accept", strings.Join(values, ", "))
}

func (b *requestBuilder) SetAcceptLanguage(tags []language.Tag) {
	values := make([]string, len(tags))
	for i, tag := range tags {
		values[i] = tag.String()
	}
	b.req.Header.Set("Accept-Language", strings.Join(values, ", "))
}

func (b *requestBuilder) SetContentType(mt template.MediaType) {
	b.contentType = mt
	b.req.Header.Set("Content-Type", mt.String())
}

func (b *requestBuilder) AddCookie(c *http.Cookie) {
	b.req.AddCookie(c)
}

func (b *requestBuilder) SetBody(body any) {
	b.body = body
	b.hasBody = true
}

// finish encodes the body recorded by SetBody into the request.
func (b *requestBuilder) finish() error {
	if !b.hasBody || b.body == nil {
		return nil
	}
	r, contentType, err := encodeBody(b.body, b.contentType)
	if err != nil {
		return NewRequestError("encode body", err)
	}
	_, multipartBody := b.body.(*MultipartBody)
	if contentType != "" && (multipartBody || b.req.Header.Get("Content-Type") == "") {
		b.req.Header.Set("Content-Type", contentType)
	}

	rc, ok := r.(io.ReadCloser)
	if !ok {
		rc = io.NopCloser(r)
	}
	b.req.Body = rc
	switch v := r.(type) {
	case *bytes.Buffer:
		b.req.ContentLength = int64(v.Len())
		buf := v.Bytes()
		b.req.GetBody = func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(buf)), nil }
	case *bytes.Reader:
		b.req.ContentLength = int64(v.Len())
		snapshot := *v
		b.req.GetBody = func() (io.ReadCloser, error) {
			c := snapshot
			return io.NopCloser(&c), nil
		}
	case *strings.Reader:
		b.req.ContentLength = int64(v.Len())
		snapshot := *v
		b.req.GetBody = func() (io.ReadCloser, error) {
			c := snapshot
			return io.NopCloser(&c), nil
		}
	default:
		b.req.ContentLength = -1
	}
	return nil
}

// encodeBody converts a template body into a reader and a content type to
// use when the template sets none. The declared content type selects the
// encoding for structured values: XML, form or JSON.
func encodeBody(body any, declared template.MediaType) (io.Reader, string, error) {
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), template.Text.String(), nil
	case url.Values:
		return strings.NewReader(v.Encode()), template.FormURLEncoded.String(), nil
	case *MultipartBody:
		return v.encode()
	}

	switch {
	case declared.Matches(template.XML), strings.HasSuffix(declared.Essence(), "+xml"):
		data, err := xml.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), template.XML.String(), nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), template.JSON.String(), nil
	}
}
