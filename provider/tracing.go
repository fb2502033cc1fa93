package provider

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/crudkit/observability"
)

// WithTracing opens a client span named "service.provider" around every
// Execute. Outputs carrying a status code record it on the span.
func WithTracing[I, O any](service string) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &tracingRR[I, O]{inner: inner, service: service}
	}
}

type tracingRR[I, O any] struct {
	inner   RequestResponse[I, O]
	service string
}

func (t *tracingRR[I, O]) Name() string                         { return t.inner.Name() }
func (t *tracingRR[I, O]) IsAvailable(ctx context.Context) bool { return t.inner.IsAvailable(ctx) }

func (t *tracingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	ctx, span := observability.StartSpan(ctx, t.service+"."+t.inner.Name(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(observability.AttrServiceName, t.service),
			attribute.String(observability.AttrProvider, t.inner.Name()),
		),
	)
	defer span.End()

	output, err := t.inner.Execute(ctx, input)
	if err != nil {
		observability.SetSpanError(ctx, err)
		return output, err
	}
	if code, ok := statusOf(output); ok {
		observability.SetSpanAttribute(ctx, observability.AttrHTTPStatus, code)
	}
	return output, nil
}
