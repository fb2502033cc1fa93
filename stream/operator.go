package stream

import (
	"context"
	"sync/atomic"
)

// Operator wraps a downstream observer into an upstream one. It is called
// once per subscription, so per-subscription state lives in the returned
// observer.
type Operator[T, R any] func(ctx context.Context, downstream Observer[R]) Observer[T]

// Lift returns a Single that applies op to every subscription of s.
func Lift[T, R any](s *Single[T], op Operator[T, R]) *Single[R] {
	return Create(func(ctx context.Context, o Observer[R]) {
		s.subscribe(ctx, op(ctx, o))
	})
}

// Lift applies a type-preserving operator.
func (s *Single[T]) Lift(op Operator[T, T]) *Single[T] {
	return Lift(s, op)
}

// Map transforms the value with fn. If fn fails the error is delivered
// instead of the value and later upstream signals are dropped.
func Map[T, R any](s *Single[T], fn func(T) (R, error)) *Single[R] {
	return Lift(s, func(_ context.Context, down Observer[R]) Observer[T] {
		return &mapObserver[T, R]{down: down, fn: fn}
	})
}

type mapObserver[T, R any] struct {
	down   Observer[R]
	fn     func(T) (R, error)
	failed atomic.Bool
}

func (m *mapObserver[T, R]) OnNext(v T) {
	if m.failed.Load() {
		return
	}
	r, err := m.fn(v)
	if err != nil {
		m.failed.Store(true)
		m.down.OnError(err)
		return
	}
	m.down.OnNext(r)
}

func (m *mapObserver[T, R]) OnError(err error) {
	if m.failed.Load() {
		Undeliverable(err)
		return
	}
	m.down.OnError(err)
}

func (m *mapObserver[T, R]) OnCompleted() {
	if m.failed.Load() {
		return
	}
	m.down.OnCompleted()
}

// DoOnTerminate calls fn after the terminal signal has been delivered
// downstream, with the error or nil on completion.
func (s *Single[T]) DoOnTerminate(fn func(err error)) *Single[T] {
	return s.Lift(func(_ context.Context, down Observer[T]) Observer[T] {
		return Funcs[T]{
			Next: down.OnNext,
			Error: func(err error) {
				defer fn(err)
				down.OnError(err)
			},
			Completed: func() {
				defer fn(nil)
				down.OnCompleted()
			},
		}
	})
}
