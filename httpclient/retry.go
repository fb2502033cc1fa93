package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/kbukum/crudkit/logger"
)

// TransportRetryConfig configures connection-level retries.
type TransportRetryConfig struct {
	// MaxRetries is the number of retries after the first attempt. Defaults to 2.
	MaxRetries int `yaml:"max_retries" mapstructure:"max_retries" json:"max_retries" validate:"gte=0,lte=10"`
	// WaitMin is the minimum wait between attempts. Defaults to 100ms.
	WaitMin time.Duration `yaml:"wait_min" mapstructure:"wait_min" json:"wait_min"`
	// WaitMax is the maximum wait between attempts. Defaults to 2s.
	WaitMax time.Duration `yaml:"wait_max" mapstructure:"wait_max" json:"wait_max" validate:"gtefield=WaitMin"`
}

func (c *TransportRetryConfig) applyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.WaitMin <= 0 {
		c.WaitMin = 100 * time.Millisecond
	}
	if c.WaitMax <= 0 {
		c.WaitMax = 2 * time.Second
	}
}

// retryingTransport wraps base so that requests failing before a response
// arrives are sent again. Every received response, whatever its status,
// is returned as is.
func retryingTransport(base http.RoundTripper, cfg TransportRetryConfig, log *logger.Logger) http.RoundTripper {
	rc := retryablehttp.NewClient()
	rc.HTTPClient = &http.Client{Transport: base}
	rc.RetryMax = cfg.MaxRetries
	rc.RetryWaitMin = cfg.WaitMin
	rc.RetryWaitMax = cfg.WaitMax
	rc.CheckRetry = retryConnectionErrors
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.Logger = leveledLogger{log: log}
	return &retryablehttp.RoundTripper{Client: rc}
}

func retryConnectionErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err == nil {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

// leveledLogger routes retryablehttp logs to the package logger.
type leveledLogger struct {
	log *logger.Logger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.log.Error(msg, logger.Fields(kv...)) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.log.Debug(msg, logger.Fields(kv...)) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.log.Debug(msg, logger.Fields(kv...)) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.log.Warn(msg, logger.Fields(kv...)) }
