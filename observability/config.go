package observability

import (
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/kbukum/crudkit/validation"
)

// DefaultEndpoint is the local OTLP/HTTP collector.
const DefaultEndpoint = "localhost:4318"

// Service identifies the program emitting spans and metrics.
type Service struct {
	Name        string `yaml:"service_name" mapstructure:"service_name"`
	Version     string `yaml:"service_version" mapstructure:"service_version"`
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// Inherit fills empty fields from parent.
func (s Service) Inherit(parent Service) Service {
	if s.Name == "" {
		s.Name = parent.Name
	}
	if s.Version == "" {
		s.Version = parent.Version
	}
	if s.Environment == "" {
		s.Environment = parent.Environment
	}
	return s
}

func (s Service) resource() (*resource.Resource, error) {
	attrs := []attribute.KeyValue{semconv.ServiceName(s.Name)}
	if s.Version != "" {
		attrs = append(attrs, semconv.ServiceVersion(s.Version))
	}
	if s.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(s.Environment))
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(semconv.SchemaURL, attrs...))
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}
	return res, nil
}

// Collector is an OTLP/HTTP endpoint.
type Collector struct {
	// Endpoint is host:port, e.g. "localhost:4318".
	Endpoint string            `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	Insecure bool              `yaml:"insecure" mapstructure:"insecure"`
	Headers  map[string]string `yaml:"headers" mapstructure:"headers" validate:"dive,keys,header_name,endkeys,header_value"`
}

func (c Collector) endpoint() string {
	if c.Endpoint == "" {
		return DefaultEndpoint
	}
	return c.Endpoint
}

// TracerConfig configures the OpenTelemetry tracer provider.
type TracerConfig struct {
	Service   `yaml:",inline" mapstructure:",squash"`
	Collector `yaml:",inline" mapstructure:",squash"`
	// SampleRate is the fraction of traces kept, 0 to 1.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

// Validate checks the tracer configuration.
func (c TracerConfig) Validate() error {
	return validation.Validate(c)
}

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	Service   `yaml:",inline" mapstructure:",squash"`
	Collector `yaml:",inline" mapstructure:",squash"`
	// Interval between exports. Zero keeps the SDK default.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// Validate checks the meter configuration.
func (c MeterConfig) Validate() error {
	return validation.Validate(c)
}
