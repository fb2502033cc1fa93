package commands

import (
	"fmt"

	"github.com/kbukum/crudkit/config"
	"github.com/kbukum/crudkit/crud"
	"github.com/kbukum/crudkit/httpclient"
	"github.com/kbukum/crudkit/observability"
	"github.com/kbukum/crudkit/resilience"
	"github.com/kbukum/crudkit/validation"
)

const serviceName = "crudctl"

// Config is the crudctl configuration file. Flags override it.
//
//	name: crudctl
//	client:
//	  base_url: https://api.example.com
//	  timeout: 10s
//	  auth:
//	    type: bearer # token from CRUDCTL_CLIENT_AUTH_TOKEN
//	endpoints: [https://replica.example.com]
//	defaults:
//	  accept: [application/json]
//	fail_on: server
//	rate_limit:
//	  rate: 20
type Config struct {
	config.ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Client httpclient.Config `yaml:"client" mapstructure:"client"`
	// Endpoints are additional base URLs. Requests are spread over
	// Client.BaseURL and Endpoints round robin, skipping open circuits.
	Endpoints []string `yaml:"endpoints" mapstructure:"endpoints"`

	Defaults crud.TemplateConfig    `yaml:"defaults" mapstructure:"defaults"`
	FailOn   string                 `yaml:"fail_on" mapstructure:"fail_on"`
	Retry    resilience.RetryConfig `yaml:"retry" mapstructure:"retry"`
	// Bulkhead bounds concurrent exchanges. Nil runs each on its own goroutine.
	Bulkhead *resilience.BulkheadConfig `yaml:"bulkhead" mapstructure:"bulkhead"`
	// RateLimit paces calls across all endpoints together. Each endpoint
	// may also set client.rate_limiter.
	RateLimit *resilience.RateLimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	Tracing *observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics *observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// ApplyDefaults fills in zero-value fields.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = serviceName
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "warn"
	}
	c.ServiceConfig.ApplyDefaults()
	if c.Client.Name == "" {
		c.Client.Name = c.Name
	}
	c.Client.ApplyDefaults()
	if c.Retry.RetryIf == nil {
		c.Retry.RetryIf = crud.IsRetryable
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Client.Validate(); err != nil {
		return fmt.Errorf("config.client: %w", err)
	}
	if _, err := crud.ParseFailureSet(c.FailOn); err != nil {
		return fmt.Errorf("config.fail_on: %w", err)
	}
	if _, err := c.Defaults.Build(); err != nil {
		return fmt.Errorf("config.defaults: %w", err)
	}
	if c.RateLimit != nil {
		if err := validation.Validate(c.RateLimit); err != nil {
			return fmt.Errorf("config.rate_limit: %w", err)
		}
	}
	if c.Tracing != nil {
		if err := c.Tracing.Validate(); err != nil {
			return fmt.Errorf("config.tracing: %w", err)
		}
	}
	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("config.metrics: %w", err)
		}
	}
	return nil
}

// loadConfig reads the configuration file, or searches the usual
// locations when path is empty.
func loadConfig(path string) (*Config, error) {
	cfg := &Config{}
	opts := []config.LoaderOption{config.WithEnvPrefix(serviceName)}
	if path != "" {
		opts = append(opts, config.WithConfigFile(path))
	}
	if err := config.LoadConfig(serviceName, cfg, opts...); err != nil {
		return nil, err
	}
	return cfg, nil
}
