package template

import (
	"net/http"
	"slices"
	"strings"

	"golang.org/x/net/http/httpguts"
	"golang.org/x/text/language"

	goerrors "github.com/kbukum/crudkit/errors"
)

// Builder accumulates template fields. Builders are not safe for concurrent
// use; the Template they produce is.
type Builder struct {
	t   Template
	err error
}

// NewBuilder returns a builder for an empty template.
func NewBuilder() *Builder {
	return &Builder{}
}

// From returns a builder seeded with a copy of base, for additive overrides.
func From(base Template) *Builder {
	return &Builder{t: base.clone()}
}

// Body sets the entity body. Readers are consumed on first use; prefer
// []byte, string or a JSON-encodable value for templates that are reused.
func (b *Builder) Body(body any) *Builder {
	b.t.body = body
	b.t.hasBody = true
	return b
}

// ContentType sets the content type of the body.
func (b *Builder) ContentType(mt MediaType) *Builder {
	if mt.IsZero() {
		return b.fail(goerrors.MissingField("content type"))
	}
	b.t.contentType = mt
	return b
}

// Accept adds accepted media types.
func (b *Builder) Accept(types ...MediaType) *Builder {
	for _, mt := range types {
		if mt.IsZero() {
			return b.fail(goerrors.MissingField("accepted media type"))
		}
		if !slices.Contains(b.t.accept, mt) {
			b.t.accept = append(b.t.accept, mt)
		}
	}
	slices.SortFunc(b.t.accept, func(x, y MediaType) int { return strings.Compare(x.value, y.value) })
	return b
}

// AcceptLanguage adds accepted languages.
func (b *Builder) AcceptLanguage(tags ...language.Tag) *Builder {
	for _, tag := range tags {
		if tag.IsRoot() {
			return b.fail(goerrors.InvalidInput("accept language", "undetermined language tag"))
		}
		if !slices.ContainsFunc(b.t.languages, func(o language.Tag) bool { return o.String() == tag.String() }) {
			b.t.languages = append(b.t.languages, tag)
		}
	}
	slices.SortFunc(b.t.languages, func(x, y language.Tag) int { return strings.Compare(x.String(), y.String()) })
	return b
}

// AcceptLanguageString parses BCP 47 tags and adds them.
func (b *Builder) AcceptLanguageString(tags ...string) *Builder {
	for _, s := range tags {
		tag, err := language.Parse(s)
		if err != nil {
			return b.fail(goerrors.InvalidFormat("accept language", "BCP 47 tag").WithDetail("value", s).WithCause(err))
		}
		b.AcceptLanguage(tag)
	}
	return b
}

// Cookie adds a cookie, replacing any existing cookie with the same name.
func (b *Builder) Cookie(c http.Cookie) *Builder {
	if err := c.Valid(); err != nil {
		return b.fail(goerrors.InvalidInput("cookie", err.Error()).WithDetail("name", c.Name))
	}
	b.t.cookies = slices.DeleteFunc(b.t.cookies, func(o http.Cookie) bool { return o.Name == c.Name })
	b.t.cookies = append(b.t.cookies, c)
	slices.SortFunc(b.t.cookies, func(x, y http.Cookie) int { return strings.Compare(x.Name, y.Name) })
	return b
}

// Header sets a header, replacing any previous value for the same name.
func (b *Builder) Header(name, value string) *Builder {
	if !httpguts.ValidHeaderFieldName(name) {
		return b.fail(goerrors.InvalidInput("header", "invalid header name").WithDetail("name", name))
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return b.fail(goerrors.InvalidInput("header", "invalid header value").WithDetail("name", name))
	}
	if b.t.headers == nil {
		b.t.headers = make(map[string]string)
	}
	b.t.headers[http.CanonicalHeaderKey(name)] = value
	return b
}

// Build returns the template, or the first validation error recorded by a
// setter.
func (b *Builder) Build() (Template, error) {
	if b.err != nil {
		return Template{}, b.err
	}
	return b.t.clone(), nil
}

// MustBuild is Build that panics on a validation error.
func (b *Builder) MustBuild() Template {
	t, err := b.Build()
	if err != nil {
		panic(err)
	}
	return t
}

func (b *Builder) fail(err error) *Builder {
	if b.err == nil {
		b.err = err
	}
	return b
}

func (t Template) clone() Template {
	c := t
	c.accept = slices.Clone(t.accept)
	c.languages = slices.Clone(t.languages)
	c.cookies = slices.Clone(t.cookies)
	if t.headers != nil {
		c.headers = t.Headers()
	}
	return c
}
