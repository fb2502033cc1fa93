package stream

import (
	"context"
	"sync/atomic"

	"github.com/kbukum/crudkit/resilience"
)

// Retry re-subscribes to s when it fails, up to cfg.MaxAttempts attempts in
// total, waiting out an exponential backoff on cfg.Clock between attempts.
// Each attempt is a full new subscription of the upstream chain.
//
// An error is not retried when cfg.RetryIf rejects it, when it is a
// ConsumerError, or when the failed attempt already delivered its value.
// Cancellation during a backoff ends the subscription silently.
func (s *Single[T]) Retry(cfg resilience.RetryConfig) *Single[T] {
	cfg = cfg.WithDefaults()
	return Create(func(ctx context.Context, o Observer[T]) {
		r := &retrier[T]{src: s, cfg: cfg, delays: cfg.NewDelays(), ctx: ctx, down: o}
		r.attempt(1)
	})
}

type retrier[T any] struct {
	src    *Single[T]
	cfg    resilience.RetryConfig
	delays *resilience.Delays
	ctx    context.Context
	down   Observer[T]
}

func (r *retrier[T]) attempt(n int) {
	r.src.subscribe(r.ctx, &attemptObserver[T]{r: r, n: n})
}

type attemptObserver[T any] struct {
	r       *retrier[T]
	n       int
	emitted atomic.Bool
}

func (a *attemptObserver[T]) OnNext(v T) {
	a.emitted.Store(true)
	a.r.down.OnNext(v)
}

func (a *attemptObserver[T]) OnCompleted() {
	a.r.down.OnCompleted()
}

func (a *attemptObserver[T]) OnError(err error) {
	r := a.r
	if a.emitted.Load() || a.n >= r.cfg.MaxAttempts || r.ctx.Err() != nil ||
		IsConsumerError(err) || !r.cfg.RetryIf(err) {
		r.down.OnError(err)
		return
	}

	backoff := r.delays.Next()
	if r.cfg.OnRetry != nil {
		r.cfg.OnRetry(a.n, err, backoff)
	}

	next := a.n + 1
	go func() {
		if err := resilience.Sleep(r.ctx, r.cfg.Clock, backoff); err != nil {
			return
		}
		r.attempt(next)
	}()
}
