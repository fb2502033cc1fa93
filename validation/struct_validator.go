package validation

import (
	"mime"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/net/http/httpguts"

	"github.com/kbukum/crudkit/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the shared validator with the HTTP tags registered:
//
//	header_name   a valid header field name
//	header_value  a header value without control characters
//	media_type    a parseable type/subtype media type
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"mapstructure", "json"} {
				name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
				if name != "" && name != "-" {
					return name
				}
			}
			return toSnakeCase(fld.Name)
		})
		_ = validate.RegisterValidation("header_name", func(fl validator.FieldLevel) bool {
			return httpguts.ValidHeaderFieldName(fl.Field().String())
		})
		_ = validate.RegisterValidation("header_value", func(fl validator.FieldLevel) bool {
			return httpguts.ValidHeaderFieldValue(fl.Field().String())
		})
		_ = validate.RegisterValidation("media_type", func(fl validator.FieldLevel) bool {
			mt, _, err := mime.ParseMediaType(fl.Field().String())
			return err == nil && strings.Contains(mt, "/")
		})
	})
	return validate
}

// Validate checks a struct against its `validate` tags. Field names in the
// resulting INVALID_INPUT error follow the mapstructure keys, so they match
// what users write in config files.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) {
		return errors.Validation("validation failed").WithCause(err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, e := range verrs {
		fields = append(fields, FieldError{Field: fieldPath(e), Message: describe(e)})
	}
	return fieldsError(fields)
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator returns the slice unwrapped
	if ok {
		*target = verrs
	}
	return ok
}

// fieldPath drops the root struct name from the namespace, e.g.
// "Config.headers[X Bad]" becomes "headers[X Bad]".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "required_if":
		if f := strings.Fields(e.Param()); len(f) == 2 {
			return "is required when " + toSnakeCase(f[0]) + " is " + f[1]
		}
		return "is required"
	case "url":
		return "must be a valid URL"
	case "http_url":
		return "must be an http or https URL"
	case "gt":
		return "must be greater than " + e.Param()
	case "gte", "min":
		return "must be at least " + e.Param()
	case "lte", "max":
		return "must be at most " + e.Param()
	case "gtefield":
		return "must not be less than " + toSnakeCase(e.Param())
	case "oneof":
		return "must be one of: " + e.Param()
	case "hostname_port":
		return "must be host:port"
	case "header_name":
		return "is not a valid header name"
	case "header_value":
		return "contains characters not allowed in a header"
	case "media_type":
		return "must be a media type such as application/json"
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
