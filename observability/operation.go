package observability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type operationKey struct{}

// Operation spans one user-level operation: the span, the in-flight gauge
// and the outcome metrics.
type Operation struct {
	Service   string
	Name      string
	RequestID string

	start   time.Time
	span    trace.Span
	metrics *Metrics
}

// StartOperation opens a span named "service.name" and stores the operation
// in the returned context. metrics may be nil.
func StartOperation(ctx context.Context, service, name, requestID string, metrics *Metrics) (context.Context, *Operation) {
	op := &Operation{
		Service:   service,
		Name:      name,
		RequestID: requestID,
		start:     time.Now(),
		metrics:   metrics,
	}
	ctx, op.span = StartSpan(ctx, service+"."+name)
	op.span.SetAttributes(
		attribute.String(AttrServiceName, service),
		attribute.String(AttrOperationName, name),
	)
	if requestID != "" {
		op.span.SetAttributes(attribute.String(AttrRequestID, requestID))
	}
	metrics.operationStarted(ctx, service)
	return context.WithValue(ctx, operationKey{}, op), op
}

// OperationFromContext returns the operation stored by StartOperation.
func OperationFromContext(ctx context.Context) (*Operation, bool) {
	op, ok := ctx.Value(operationKey{}).(*Operation)
	return op, ok
}

// Duration is the time since the operation started.
func (o *Operation) Duration() time.Duration {
	return time.Since(o.start)
}

// End closes the span and records the outcome. A canceled operation is
// recorded as such rather than as an error.
func (o *Operation) End(ctx context.Context, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	case err != nil:
		outcome = "error"
		SetSpanError(trace.ContextWithSpan(ctx, o.span), err)
	}
	o.metrics.operationEnded(ctx, o.Service, o.Name, outcome, o.Duration())
	o.span.End()
}
