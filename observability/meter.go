package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/crudkit/logger"
)

// InitMeter installs a periodic OTLP/HTTP meter provider as the global
// provider. The caller shuts it down on exit.
func InitMeter(ctx context.Context, cfg MeterConfig) (*sdkmetric.MeterProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.endpoint())}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlpmetrichttp.WithHeaders(cfg.Headers))
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := cfg.Service.resource()
	if err != nil {
		return nil, err
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Debug("meter initialized", logger.Fields(
		"service", cfg.Name,
		"endpoint", cfg.endpoint(),
		"interval", cfg.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded for operations and resource calls.
// A nil *Metrics records nothing.
type Metrics struct {
	operationActive   metric.Int64UpDownCounter
	operationTotal    metric.Int64Counter
	operationDuration metric.Float64Histogram
	callTotal         metric.Int64Counter
	callDuration      metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.operationActive, err = meter.Int64UpDownCounter("crud.operation.active",
		metric.WithDescription("Operations in flight"),
	); err != nil {
		return nil, fmt.Errorf("creating crud.operation.active: %w", err)
	}
	if m.operationTotal, err = meter.Int64Counter("crud.operation.total",
		metric.WithDescription("Completed operations by outcome"),
	); err != nil {
		return nil, fmt.Errorf("creating crud.operation.total: %w", err)
	}
	if m.operationDuration, err = meter.Float64Histogram("crud.operation.duration",
		metric.WithDescription("Operation duration including the body read"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating crud.operation.duration: %w", err)
	}
	if m.callTotal, err = meter.Int64Counter("crud.call.total",
		metric.WithDescription("Resource calls by response status"),
	); err != nil {
		return nil, fmt.Errorf("creating crud.call.total: %w", err)
	}
	if m.callDuration, err = meter.Float64Histogram("crud.call.duration",
		metric.WithDescription("Time until the response head arrived"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating crud.call.duration: %w", err)
	}
	return m, nil
}

func (m *Metrics) operationStarted(ctx context.Context, service string) {
	if m == nil {
		return
	}
	m.operationActive.Add(ctx, 1, metric.WithAttributes(attribute.String("service", service)))
}

func (m *Metrics) operationEnded(ctx context.Context, service, operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	svc := attribute.String("service", service)
	op := attribute.String("operation", operation)
	m.operationActive.Add(ctx, -1, metric.WithAttributes(svc))
	m.operationTotal.Add(ctx, 1, metric.WithAttributes(svc, op, attribute.String("outcome", outcome)))
	m.operationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(svc, op))
}

// RecordCall records one resource call. A zero status means the call failed
// without a response.
func (m *Metrics) RecordCall(ctx context.Context, provider string, status int, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "response"
	if status == 0 {
		outcome = "error"
	}
	p := attribute.String("provider", provider)
	m.callTotal.Add(ctx, 1, metric.WithAttributes(p,
		attribute.Int("status_code", status),
		attribute.String("outcome", outcome),
	))
	m.callDuration.Record(ctx, d.Seconds(), metric.WithAttributes(p))
}
