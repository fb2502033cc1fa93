package crud

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"strings"

	goerrors "github.com/kbukum/crudkit/errors"
	"github.com/kbukum/crudkit/stream"
	"github.com/kbukum/crudkit/template"
)

// Entity is a decoded response: its status, headers and body value.
type Entity[T any] struct {
	Status int
	Header http.Header
	Value  T
}

// Decode reads the body of resp into a T. A 204 response or one without a
// body yields the zero T. []byte and string receive the raw body, XML
// content types are decoded as XML and anything else as JSON.
//
// Decode must run while resp is open, that is inside OnNext or a Map.
func Decode[T any](resp Response) (T, error) {
	var v T
	if resp.StatusCode() == http.StatusNoContent || !resp.HasBody() {
		return v, nil
	}

	switch p := any(&v).(type) {
	case *[]byte:
		b, err := io.ReadAll(resp.Body())
		if err != nil {
			return v, goerrors.Internal(err)
		}
		*p = b
		return v, nil
	case *string:
		b, err := io.ReadAll(resp.Body())
		if err != nil {
			return v, goerrors.Internal(err)
		}
		*p = string(b)
		return v, nil
	}

	if isXML(resp.Header().Get("Content-Type")) {
		if err := xml.NewDecoder(resp.Body()).Decode(&v); err != nil {
			return v, goerrors.InvalidFormat("response body", "xml").WithCause(err)
		}
		return v, nil
	}
	if err := json.NewDecoder(resp.Body()).Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return v, goerrors.InvalidFormat("response body", "json").WithCause(err)
	}
	return v, nil
}

func isXML(contentType string) bool {
	mt, err := template.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	essence := mt.Essence()
	return strings.HasSuffix(essence, "/xml") || strings.HasSuffix(essence, "+xml")
}

// AsEntity decodes resp into an Entity.
func AsEntity[T any](resp Response) (Entity[T], error) {
	v, err := Decode[T](resp)
	if err != nil {
		return Entity[T]{}, err
	}
	return Entity[T]{Status: resp.StatusCode(), Header: resp.Header().Clone(), Value: v}, nil
}

// ReadEntity reads r and decodes the response into an Entity. Statuses in
// failOn fail the stream with a *StatusError instead.
func ReadEntity[T any](r Reader, failOn FailureSet) *stream.Single[Entity[T]] {
	return stream.Map(r.Read().Lift(FailedResponses(failOn)), AsEntity[T])
}
