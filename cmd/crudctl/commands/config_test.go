package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/crudkit/crud"
	"github.com/kbukum/crudkit/httpclient"
	"github.com/kbukum/crudkit/observability"
	"github.com/kbukum/crudkit/resilience"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		in          string
		name, value string
		wantErr     bool
	}{
		{in: "X-Team=assets", name: "X-Team", value: "assets"},
		{in: "X-Trace: 42", name: "X-Trace", value: "42"},
		{in: "X-Query=a:b", name: "X-Query", value: "a:b"},
		{in: "X-Url: http://x?a=b", name: "X-Url", value: "http://x?a=b"},
		{in: "X-Empty=", name: "X-Empty", value: ""},
		{in: "novalue", wantErr: true},
		{in: "=value", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, value, err := parseHeader(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.value, value)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`name: inventory
client:
  base_url: https://api.example.com
  timeout: 5s
  auth:
    type: api_key
    key: k-123
    in: query
endpoints:
  - https://replica.example.com
fail_on: "404,500-599"
retry:
  max_attempts: 4
bulkhead:
  max_concurrent: 2
rate_limit:
  rate: 20
  max_wait: 1s
tracing:
  endpoint: collector:4318
  insecure: true
  sample_rate: 0.5
metrics:
  service_name: inventory-cli
  interval: 30s
`), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "inventory", cfg.Name)
	assert.Equal(t, "inventory", cfg.Client.Name)
	assert.Equal(t, "https://api.example.com", cfg.Client.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, []string{"https://replica.example.com"}, cfg.Endpoints)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	require.NotNil(t, cfg.Bulkhead)
	assert.Equal(t, 2, cfg.Bulkhead.MaxConcurrent)
	assert.Equal(t, "warn", cfg.Logging.Level)
	require.NotNil(t, cfg.Client.Auth)
	assert.Equal(t, httpclient.AuthAPIKey, cfg.Client.Auth.Type)
	assert.Equal(t, "k-123", cfg.Client.Auth.Key)
	assert.Equal(t, "query", cfg.Client.Auth.In)
	require.NotNil(t, cfg.RateLimit)
	assert.Equal(t, 20.0, cfg.RateLimit.Rate)
	assert.Equal(t, time.Second, cfg.RateLimit.MaxWait)
	require.NotNil(t, cfg.Tracing)
	assert.Equal(t, "collector:4318", cfg.Tracing.Endpoint)
	assert.True(t, cfg.Tracing.Insecure)
	assert.Equal(t, 0.5, cfg.Tracing.SampleRate)
	require.NotNil(t, cfg.Metrics)
	assert.Equal(t, "inventory-cli", cfg.Metrics.Name)
	assert.Equal(t, 30*time.Second, cfg.Metrics.Interval)

	set, err := crud.ParseFailureSet(cfg.FailOn)
	require.NoError(t, err)
	assert.True(t, set.Contains(404))
	assert.True(t, set.Contains(503))
	assert.False(t, set.Contains(409))
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{FailOn: "server"}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())

	cfg.Client.BaseURL = "::bad"
	assert.Error(t, cfg.Validate())

	cfg = &Config{FailOn: "sometimes"}
	cfg.ApplyDefaults()
	assert.Error(t, cfg.Validate())

	cfg = &Config{RateLimit: &resilience.RateLimiterConfig{Rate: 0}}
	cfg.ApplyDefaults()
	assert.ErrorContains(t, cfg.Validate(), "config.rate_limit")

	cfg = &Config{}
	cfg.Client.Auth = &httpclient.AuthConfig{Type: httpclient.AuthBasic}
	cfg.ApplyDefaults()
	assert.ErrorContains(t, cfg.Validate(), "config.client")

	cfg = &Config{Tracing: &observability.TracerConfig{SampleRate: 2}}
	cfg.ApplyDefaults()
	assert.ErrorContains(t, cfg.Validate(), "config.tracing")
}
