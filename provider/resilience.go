package provider

import (
	"context"
	"errors"

	goerrors "github.com/kbukum/crudkit/errors"
	"github.com/kbukum/crudkit/resilience"
)

// ResilienceConfig bundles optional call policies. Nil policies are
// skipped and a zero config is a passthrough.
type ResilienceConfig struct {
	RateLimiter    *resilience.RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter"`
	Bulkhead       *resilience.BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`
	CircuitBreaker *resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	Retry          *resilience.RetryConfig          `yaml:"retry" mapstructure:"retry"`
	// IsFailure decides which errors the circuit breaker counts. Nil counts
	// every error except caller cancellation.
	IsFailure func(error) bool `yaml:"-" mapstructure:"-"`
}

// IsEmpty reports whether no policy is configured.
func (c ResilienceConfig) IsEmpty() bool {
	return c.RateLimiter == nil && c.Bulkhead == nil && c.CircuitBreaker == nil && c.Retry == nil
}

// Guard is the live state of a ResilienceConfig. One guard is shared by
// every call it protects. A nil *Guard guards nothing.
type Guard struct {
	rl        *resilience.RateLimiter
	bh        *resilience.Bulkhead
	cb        *resilience.CircuitBreaker
	retry     *resilience.RetryConfig
	isFailure func(error) bool
}

// NewGuard builds the policies of cfg. It returns nil for an empty config.
func NewGuard(cfg ResilienceConfig) *Guard {
	if cfg.IsEmpty() {
		return nil
	}
	g := &Guard{retry: cfg.Retry, isFailure: cfg.IsFailure}
	if g.isFailure == nil {
		g.isFailure = func(err error) bool { return !errors.Is(err, context.Canceled) }
	}
	if cfg.RateLimiter != nil {
		g.rl = resilience.NewRateLimiter(*cfg.RateLimiter)
	}
	if cfg.Bulkhead != nil {
		g.bh = resilience.NewBulkhead(*cfg.Bulkhead)
	}
	if cfg.CircuitBreaker != nil {
		g.cb = resilience.NewCircuitBreaker(*cfg.CircuitBreaker)
	}
	return g
}

// Open reports whether the guard's circuit is open.
func (g *Guard) Open() bool {
	return g != nil && g.cb != nil && g.cb.State() == resilience.StateOpen
}

// Guarded runs fn under g, outermost first: rate limiter, bulkhead, circuit
// breaker, retry. Policy rejections become AppErrors; errors from fn are
// returned as they are.
func Guarded[T any](ctx context.Context, g *Guard, fn func(context.Context) (T, error)) (T, error) {
	call := func() (T, error) { return fn(ctx) }
	if g == nil {
		return call()
	}

	if g.retry != nil {
		call = retrying(ctx, *g.retry, call)
	}
	if g.cb != nil {
		call = breaking(g.cb, g.isFailure, call)
	}
	if g.bh != nil {
		call = isolating(ctx, g.bh, call)
	}

	if g.rl != nil {
		if err := g.rl.Wait(ctx); err != nil {
			var zero T
			return zero, rejection(err)
		}
	}
	return call()
}

func retrying[T any](ctx context.Context, cfg resilience.RetryConfig, next func() (T, error)) func() (T, error) {
	return func() (T, error) { return resilience.Retry(ctx, cfg, next) }
}

func breaking[T any](cb *resilience.CircuitBreaker, isFailure func(error) bool, next func() (T, error)) func() (T, error) {
	return func() (T, error) {
		var out T
		var callErr error
		err := cb.ExecuteCounting(func() error {
			out, callErr = next()
			return callErr
		}, isFailure)
		if err != nil && callErr == nil {
			return out, rejection(err)
		}
		return out, callErr
	}
}

func isolating[T any](ctx context.Context, bh *resilience.Bulkhead, next func() (T, error)) func() (T, error) {
	return func() (T, error) {
		var out T
		var callErr error
		err := bh.Execute(ctx, func() error {
			out, callErr = next()
			return callErr
		})
		if err != nil && callErr == nil {
			return out, rejection(err)
		}
		return out, callErr
	}
}

// rejection maps a policy sentinel to an AppError. Context errors pass
// through.
func rejection(err error) error {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return goerrors.ServiceUnavailable("provider").WithCause(err)
	case errors.Is(err, resilience.ErrRateLimited):
		return goerrors.RateLimited().WithCause(err)
	case errors.Is(err, resilience.ErrBulkheadFull), errors.Is(err, resilience.ErrBulkheadTimeout):
		return goerrors.ServiceUnavailable("provider").
			WithCause(err).
			WithDetail("reason", "concurrency limit reached")
	default:
		return err
	}
}

// WithResilience returns a Middleware running every Execute under one
// shared Guard built from cfg. An empty config adds no layer.
func WithResilience[I, O any](cfg ResilienceConfig) Middleware[I, O] {
	g := NewGuard(cfg)
	return func(inner RequestResponse[I, O]) RequestResponse[I, O] {
		if g == nil {
			return inner
		}
		return &guardedRR[I, O]{inner: inner, guard: g}
	}
}

type guardedRR[I, O any] struct {
	inner RequestResponse[I, O]
	guard *Guard
}

func (r *guardedRR[I, O]) Name() string { return r.inner.Name() }

func (r *guardedRR[I, O]) IsAvailable(ctx context.Context) bool {
	return !r.guard.Open() && r.inner.IsAvailable(ctx)
}

func (r *guardedRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	return Guarded(ctx, r.guard, func(ctx context.Context) (O, error) {
		return r.inner.Execute(ctx, input)
	})
}
