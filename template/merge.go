package template

import (
	"net/http"

	"golang.org/x/text/language"
)

// RequestBuilder receives template fields. Each field maps to one
// independent call; Apply only calls setters for fields that are present.
type RequestBuilder interface {
	SetHeader(name, value string)
	SetAccept(types []MediaType)
	SetAcceptLanguage(tags []language.Tag)
	SetContentType(mt MediaType)
	AddCookie(c *http.Cookie)
	SetBody(body any)
}

// Merge overlays override onto base and returns a new template.
//
// A singular field set in override wins. A set-valued field (accepted
// types, accepted languages, cookies) present in override replaces the base
// set as a whole. Headers are merged per name with override winning.
// Neither input is modified. Merging with Empty on either side yields the
// other template.
func Merge(base, override Template) Template {
	if override.IsEmpty() {
		return base.clone()
	}
	if base.IsEmpty() {
		return override.clone()
	}

	out := base.clone()
	if override.hasBody {
		out.body, out.hasBody = override.body, true
	}
	if !override.contentType.IsZero() {
		out.contentType = override.contentType
	}
	if len(override.accept) > 0 {
		out.accept = override.AcceptedTypes()
	}
	if len(override.languages) > 0 {
		out.languages = override.AcceptedLanguages()
	}
	if len(override.cookies) > 0 {
		out.cookies = append([]http.Cookie(nil), override.cookies...)
	}
	if len(override.headers) > 0 {
		if out.headers == nil {
			out.headers = make(map[string]string, len(override.headers))
		}
		for k, v := range override.headers {
			out.headers[k] = v
		}
	}
	return out
}

// Apply writes t onto b. Headers are applied first and in name order, so the
// typed fields that follow take precedence over same-named raw headers.
func Apply(t Template, b RequestBuilder) {
	for _, k := range sortedKeys(t.headers) {
		b.SetHeader(k, t.headers[k])
	}
	if len(t.accept) > 0 {
		b.SetAccept(t.AcceptedTypes())
	}
	if len(t.languages) > 0 {
		b.SetAcceptLanguage(t.AcceptedLanguages())
	}
	if !t.contentType.IsZero() {
		b.SetContentType(t.contentType)
	}
	for _, c := range t.Cookies() {
		b.AddCookie(c)
	}
	if t.hasBody {
		b.SetBody(t.body)
	}
}
