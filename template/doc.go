// Package template describes the configurable parts of an outgoing request
// (body, content type, accepted types and languages, cookies, headers) as an
// immutable value.
//
// A provider-wide base template is combined with a per-call override by
// Merge; neither input is modified. The result is written onto a concrete
// request through the RequestBuilder interface by Apply.
//
//	base := template.NewBuilder().Accept(template.JSON).MustBuild()
//	call := template.NewBuilder().Body(asset).ContentType(template.JSON).MustBuild()
//	template.Apply(template.Merge(base, call), builder)
package template
