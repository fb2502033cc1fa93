package provider

import (
	"context"
	"time"

	"github.com/kbukum/crudkit/observability"
)

// WithMetrics returns a Middleware recording one call per Execute, labelled
// with the status of outputs that carry one. Failed calls are recorded with
// status 0.
func WithMetrics[I, O any](metrics *observability.Metrics) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &metricsRR[I, O]{inner: inner, metrics: metrics}
	}
}

type metricsRR[I, O any] struct {
	inner   RequestResponse[I, O]
	metrics *observability.Metrics
}

func (m *metricsRR[I, O]) Name() string                         { return m.inner.Name() }
func (m *metricsRR[I, O]) IsAvailable(ctx context.Context) bool { return m.inner.IsAvailable(ctx) }

func (m *metricsRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := m.inner.Execute(ctx, input)

	code := 0
	if err == nil {
		code, _ = statusOf(output)
	}
	m.metrics.RecordCall(ctx, m.inner.Name(), code, time.Since(start))
	return output, err
}
