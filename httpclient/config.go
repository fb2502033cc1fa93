package httpclient

import (
	"time"

	"github.com/kbukum/crudkit/resilience"
	"github.com/kbukum/crudkit/security"
	"github.com/kbukum/crudkit/validation"
)

const (
	defaultTimeout = 30 * time.Second
	defaultName    = "http"
)

// Config configures the HTTP adapter.
type Config struct {
	// Name identifies the adapter in logs, metrics and provider registries.
	Name string `yaml:"name" mapstructure:"name" json:"name"`

	// BaseURL is prepended to relative request addresses.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url" validate:"omitempty,http_url"`

	// Timeout bounds a whole exchange, including reading the body. Defaults to 30s.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout" validate:"gt=0"`

	// Auth is applied to every request after the template.
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth" json:"-"`

	// TLS configures TLS settings for the HTTP transport.
	TLS *security.TLSConfig `yaml:"tls" mapstructure:"tls" json:"tls"`

	// Headers are default headers. Template headers override them.
	Headers map[string]string `yaml:"headers" mapstructure:"headers" json:"headers" validate:"dive,keys,header_name,endkeys,header_value"`

	// TransportRetry retries requests that failed before any response was
	// received. Nil disables it. Statuses are never retried here.
	TransportRetry *TransportRetryConfig `yaml:"transport_retry" mapstructure:"transport_retry" json:"transport_retry"`

	// CircuitBreaker opens after repeated connection failures or 5xx
	// responses. Nil disables it.
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker" json:"-"`

	// RateLimiter limits the request rate. Nil disables it.
	RateLimiter *resilience.RateLimiterConfig `yaml:"rate_limiter" mapstructure:"rate_limiter" json:"-"`
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = defaultName
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.TransportRetry != nil {
		c.TransportRetry.applyDefaults()
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if c.TLS != nil {
		return c.TLS.Validate()
	}
	return nil
}

// DefaultCircuitBreakerConfig returns a default circuit breaker config.
func DefaultCircuitBreakerConfig(name string) *resilience.CircuitBreakerConfig {
	cfg := resilience.DefaultCircuitBreakerConfig(name)
	return &cfg
}

// DefaultRateLimiterConfig returns a default rate limiter config.
func DefaultRateLimiterConfig(name string) *resilience.RateLimiterConfig {
	cfg := resilience.DefaultRateLimiterConfig(name)
	return &cfg
}
