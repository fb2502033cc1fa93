package httpclient

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/crudkit/crud"
	goerrors "github.com/kbukum/crudkit/errors"
	"github.com/kbukum/crudkit/logger"
	"github.com/kbukum/crudkit/observability"
	"github.com/kbukum/crudkit/resilience"
	"github.com/kbukum/crudkit/template"
	"github.com/kbukum/crudkit/version"
)

// HeaderRequestID carries the correlation ID of an outgoing request.
const HeaderRequestID = "X-Request-ID"

// errServerStatus marks a 5xx response for the circuit breaker. It never
// leaves the adapter.
var errServerStatus = errors.New("server error status")

// Adapter is an HTTP transport for crud resources with built-in auth, TLS,
// and resilience. It implements crud.Transport directly and
// provider.RequestResponse for composition with the provider framework
// (WithResilience, Manager, Registry, etc.).
type Adapter struct {
	httpClient *http.Client
	config     Config
	cb         *resilience.CircuitBreaker
	rl         *resilience.RateLimiter
	log        *logger.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithHTTPClient replaces the underlying client. TLS and transport retry
// settings are not applied to a replaced client.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// WithLogger sets the adapter logger.
func WithLogger(l *logger.Logger) Option {
	return func(a *Adapter) {
		if l != nil {
			a.log = l
		}
	}
}

// New creates a new HTTP adapter with the given configuration.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Adapter{
		config: cfg,
		log:    logger.Get("httpclient").WithFields(logger.Fields("adapter", cfg.Name)),
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.TLS != nil {
			tlsCfg, err := cfg.TLS.Build()
			if err != nil {
				return nil, err
			}
			if tlsCfg != nil {
				transport.TLSClientConfig = tlsCfg
			}
		}

		var rt http.RoundTripper = transport
		if cfg.TransportRetry != nil {
			rt = retryingTransport(transport, *cfg.TransportRetry, a.log)
		}
		a.httpClient = &http.Client{Transport: rt, Timeout: cfg.Timeout}
	}

	if cfg.CircuitBreaker != nil {
		a.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	if cfg.RateLimiter != nil {
		a.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	return a, nil
}

// Invoke performs the exchange on the calling goroutine and reports the
// outcome through done. It implements crud.Transport; crud resources call it
// from their executor, so the executor bounds the number of open exchanges.
func (a *Adapter) Invoke(ctx context.Context, req crud.Request, done func(crud.Response, error)) error {
	resp, err := a.Execute(ctx, req)
	if err != nil {
		done(nil, err)
		return nil
	}
	done(resp, nil)
	return nil
}

// Execute sends one request and returns the response with its body unread.
// Every status is returned as a response; errors only describe exchanges
// that produced no response. The caller must close the response.
func (a *Adapter) Execute(ctx context.Context, req crud.Request) (crud.Response, error) {
	if a.rl != nil {
		if err := a.rl.Wait(ctx); err != nil {
			return nil, rejected(err)
		}
	}

	if a.cb == nil {
		resp, err := a.send(ctx, req)
		if err != nil {
			return nil, err
		}
		return resp, nil
	}

	var resp *Response
	err := a.cb.ExecuteCounting(func() error {
		var sendErr error
		resp, sendErr = a.send(ctx, req)
		if sendErr != nil {
			return sendErr
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return errServerStatus
		}
		return nil
	}, countsAsOutage)
	if err != nil && !errors.Is(err, errServerStatus) {
		return nil, rejected(err)
	}
	return resp, nil
}

// rejected turns a policy rejection into a retryable AppError.
func rejected(err error) error {
	switch {
	case errors.Is(err, resilience.ErrRateLimited):
		return goerrors.RateLimited().WithCause(err)
	case errors.Is(err, resilience.ErrCircuitOpen):
		return goerrors.ServiceUnavailable("http").WithCause(err)
	default:
		return err
	}
}

// countsAsOutage excludes caller cancellation from circuit breaker failures.
func countsAsOutage(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func (a *Adapter) send(ctx context.Context, req crud.Request) (*Response, error) {
	httpReq, err := a.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	id := httpReq.Header.Get(HeaderRequestID)
	log := a.log.WithContext(logger.ContextWithRequestID(ctx, id))
	start := time.Now()

	raw, err := a.httpClient.Do(httpReq)
	if err != nil {
		log.Debug("request failed", logger.Fields(
			logger.FieldMethod, req.Method,
			logger.FieldAddress, httpReq.URL.String(),
			logger.FieldError, err.Error(),
		))
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, ctx.Err()
			}
			return nil, NewTimeoutError(err).on(req.Method, httpReq.URL.String())
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, NewTimeoutError(err).on(req.Method, httpReq.URL.String())
		}
		return nil, NewConnectionError(err).on(req.Method, httpReq.URL.String())
	}

	log.Debug("response received", logger.Fields(
		logger.FieldMethod, req.Method,
		logger.FieldAddress, httpReq.URL.String(),
		logger.FieldStatusCode, raw.StatusCode,
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return newResponse(raw), nil
}

// buildRequest constructs an *http.Request from the adapter config and the
// request template. Template headers override default headers.
func (a *Adapter) buildRequest(ctx context.Context, req crud.Request) (*http.Request, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, a.resolve(req.Address), nil)
	if err != nil {
		return nil, NewRequestError("create request", err).on(req.Method, req.Address)
	}

	httpReq.Header.Set("User-Agent", version.UserAgent(""))
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	b := &requestBuilder{req: httpReq}
	template.Apply(req.Template, b)
	if err := b.finish(); err != nil {
		return nil, err
	}

	if err := a.config.Auth.apply(httpReq); err != nil {
		return nil, err
	}

	if httpReq.Header.Get(HeaderRequestID) == "" {
		id, ok := logger.RequestIDFromContext(ctx)
		if !ok {
			id = uuid.NewString()
		}
		httpReq.Header.Set(HeaderRequestID, id)
	}
	return httpReq, nil
}

// resolve prepends BaseURL to relative addresses.
func (a *Adapter) resolve(address string) string {
	if a.config.BaseURL == "" || strings.HasPrefix(address, "http://") || strings.HasPrefix(address, "https://") {
		return address
	}
	return strings.TrimRight(a.config.BaseURL, "/") + "/" + strings.TrimLeft(address, "/")
}

// Name returns the adapter name (implements provider.Provider).
func (a *Adapter) Name() string {
	return a.config.Name
}

// IsAvailable reports false while the circuit breaker is open (implements provider.Provider).
func (a *Adapter) IsAvailable(_ context.Context) bool {
	if a.cb != nil {
		return a.cb.State() != resilience.StateOpen
	}
	return true
}

// CheckHealth reports the circuit breaker state as component health.
func (a *Adapter) CheckHealth(_ context.Context) observability.Health {
	h := observability.Health{Name: a.config.Name, Status: observability.HealthStatusUp}
	if a.cb == nil {
		return h
	}
	h.Details = map[string]string{"circuit": a.cb.State().String()}
	switch a.cb.State() {
	case resilience.StateOpen:
		h.Status = observability.HealthStatusDown
		h.Message = "circuit open"
	case resilience.StateHalfOpen:
		h.Status = observability.HealthStatusDegraded
	}
	return h
}

// Close releases idle connections (implements provider.Closeable).
func (a *Adapter) Close(_ context.Context) error {
	a.httpClient.CloseIdleConnections()
	return nil
}

// GetConfig returns the adapter's configuration.
func (a *Adapter) GetConfig() Config {
	return a.config
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (a *Adapter) Unwrap() *http.Client {
	return a.httpClient
}
