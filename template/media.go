package template

import (
	"mime"
	"strings"

	goerrors "github.com/kbukum/crudkit/errors"
)

// MediaType is a validated, normalized MIME media type such as
// "application/json; charset=utf-8". The zero value means "absent".
type MediaType struct {
	value string
}

// Well-known media types.
var (
	JSON           = MustParseMediaType("application/json")
	XML            = MustParseMediaType("application/xml")
	Text           = MustParseMediaType("text/plain")
	FormURLEncoded = MustParseMediaType("application/x-www-form-urlencoded")
	OctetStream    = MustParseMediaType("application/octet-stream")
)

// ParseMediaType validates s and returns its normalized form.
func ParseMediaType(s string) (MediaType, error) {
	typ, params, err := mime.ParseMediaType(strings.TrimSpace(s))
	if err != nil {
		return MediaType{}, goerrors.InvalidFormat("media type", "type/subtype[; param=value]").
			WithDetail("value", s).WithCause(err)
	}
	if !strings.Contains(typ, "/") {
		return MediaType{}, goerrors.InvalidFormat("media type", "type/subtype[; param=value]").
			WithDetail("value", s)
	}
	return MediaType{value: mime.FormatMediaType(typ, params)}, nil
}

// MustParseMediaType is ParseMediaType that panics on invalid input.
// Intended for package-level constants.
func MustParseMediaType(s string) MediaType {
	mt, err := ParseMediaType(s)
	if err != nil {
		panic(err)
	}
	return mt
}

// IsZero reports whether mt is absent.
func (mt MediaType) IsZero() bool { return mt.value == "" }

// Essence returns the type/subtype without parameters.
func (mt MediaType) Essence() string {
	if i := strings.IndexByte(mt.value, ';'); i >= 0 {
		return mt.value[:i]
	}
	return mt.value
}

// Matches reports whether other has the same type/subtype, ignoring parameters.
// A "*" subtype or "*/*" on either side matches.
func (mt MediaType) Matches(other MediaType) bool {
	a, b := mt.Essence(), other.Essence()
	if a == "" || b == "" {
		return false
	}
	if a == b || a == "*/*" || b == "*/*" {
		return true
	}
	at, as, _ := strings.Cut(a, "/")
	bt, bs, _ := strings.Cut(b, "/")
	return at == bt && (as == "*" || bs == "*")
}

func (mt MediaType) String() string { return mt.value }
