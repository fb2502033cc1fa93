package provider

import (
	"context"
	"errors"
	"time"

	"github.com/kbukum/crudkit/logger"
)

// statusCoder is implemented by outputs carrying a protocol status, such as
// HTTP responses.
type statusCoder interface {
	StatusCode() int
}

// statusOf returns the status code of output, if it has one.
func statusOf(output any) (int, bool) {
	if sc, ok := output.(statusCoder); ok && sc != nil {
		return sc.StatusCode(), true
	}
	return 0, false
}

// WithLogging logs every Execute with its duration and, when the output
// carries one, its status code. Failures log at error level except
// cancellation, which logs at debug.
func WithLogging[I, O any](log *logger.Logger) Middleware[I, O] {
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		return &loggingRR[I, O]{inner: inner, log: log}
	}
}

type loggingRR[I, O any] struct {
	inner RequestResponse[I, O]
	log   *logger.Logger
}

func (l *loggingRR[I, O]) Name() string                         { return l.inner.Name() }
func (l *loggingRR[I, O]) IsAvailable(ctx context.Context) bool { return l.inner.IsAvailable(ctx) }

func (l *loggingRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	start := time.Now()
	output, err := l.inner.Execute(ctx, input)

	fields := logger.Fields(
		"provider", l.inner.Name(),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	)
	log := l.log.WithContext(ctx)
	if errors.Is(err, context.Canceled) {
		log.Debug("provider execute canceled", fields)
		return output, err
	}
	if err != nil {
		fields[logger.FieldError] = err.Error()
		log.Error("provider execute failed", fields)
		return output, err
	}
	if code, ok := statusOf(output); ok {
		fields[logger.FieldStatusCode] = code
	}
	log.Debug("provider execute ok", fields)
	return output, err
}
