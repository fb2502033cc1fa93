package template

import (
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// Template is an immutable request template. The zero value is the empty
// template; Empty returns it.
type Template struct {
	body        any
	hasBody     bool
	contentType MediaType
	accept      []MediaType
	languages   []language.Tag
	cookies     []http.Cookie
	headers     map[string]string
}

// Empty returns the template with every field absent.
func Empty() Template { return Template{} }

// Body returns the entity body and whether one is set.
func (t Template) Body() (any, bool) { return t.body, t.hasBody }

// ContentType returns the content type and whether one is set.
func (t Template) ContentType() (MediaType, bool) {
	return t.contentType, !t.contentType.IsZero()
}

// AcceptedTypes returns the accepted media types in a stable order.
func (t Template) AcceptedTypes() []MediaType { return slices.Clone(t.accept) }

// AcceptedLanguages returns the accepted languages in a stable order.
func (t Template) AcceptedLanguages() []language.Tag { return slices.Clone(t.languages) }

// Cookies returns copies of the template cookies ordered by name.
func (t Template) Cookies() []*http.Cookie {
	out := make([]*http.Cookie, len(t.cookies))
	for i := range t.cookies {
		c := t.cookies[i]
		out[i] = &c
	}
	return out
}

// Headers returns a copy of the header map keyed by canonical header name.
func (t Template) Headers() map[string]string {
	out := make(map[string]string, len(t.headers))
	for k, v := range t.headers {
		out[k] = v
	}
	return out
}

// Header returns the value of a single header.
func (t Template) Header(name string) (string, bool) {
	v, ok := t.headers[http.CanonicalHeaderKey(name)]
	return v, ok
}

// IsEmpty reports whether no field is set.
func (t Template) IsEmpty() bool {
	return !t.hasBody && t.contentType.IsZero() && len(t.accept) == 0 &&
		len(t.languages) == 0 && len(t.cookies) == 0 && len(t.headers) == 0
}

// Equal reports whether both templates carry the same configuration.
// Set-valued fields are compared without regard to insertion order.
func (t Template) Equal(other Template) bool {
	if t.hasBody != other.hasBody || !reflect.DeepEqual(t.body, other.body) {
		return false
	}
	if t.contentType != other.contentType {
		return false
	}
	if !slices.Equal(t.accept, other.accept) {
		return false
	}
	if !slices.EqualFunc(t.languages, other.languages, func(a, b language.Tag) bool { return a.String() == b.String() }) {
		return false
	}
	if !slices.EqualFunc(t.cookies, other.cookies, func(a, b http.Cookie) bool { return a.String() == b.String() }) {
		return false
	}
	if len(t.headers) != len(other.headers) {
		return false
	}
	for k, v := range t.headers {
		if ov, ok := other.headers[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// String renders the present fields, e.g.
// "Template{accept=[application/json], headers={X-Trace: 1}}".
func (t Template) String() string {
	var parts []string
	if t.hasBody {
		parts = append(parts, fmt.Sprintf("body=%T", t.body))
	}
	if !t.contentType.IsZero() {
		parts = append(parts, "contentType="+t.contentType.String())
	}
	if len(t.accept) > 0 {
		names := make([]string, len(t.accept))
		for i, mt := range t.accept {
			names[i] = mt.String()
		}
		parts = append(parts, "accept=["+strings.Join(names, ", ")+"]")
	}
	if len(t.languages) > 0 {
		names := make([]string, len(t.languages))
		for i, tag := range t.languages {
			names[i] = tag.String()
		}
		parts = append(parts, "languages=["+strings.Join(names, ", ")+"]")
	}
	if len(t.cookies) > 0 {
		names := make([]string, len(t.cookies))
		for i, c := range t.cookies {
			names[i] = c.Name
		}
		parts = append(parts, "cookies=["+strings.Join(names, ", ")+"]")
	}
	if len(t.headers) > 0 {
		keys := sortedKeys(t.headers)
		kv := make([]string, len(keys))
		for i, k := range keys {
			kv[i] = k + ": " + t.headers[k]
		}
		parts = append(parts, "headers={"+strings.Join(kv, ", ")+"}")
	}
	return "Template{" + strings.Join(parts, ", ") + "}"
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
