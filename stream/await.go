package stream

import (
	"context"
)

type outcome[T any] struct {
	value    T
	hasValue bool
	err      error
}

// Await subscribes to s and blocks until it terminates or ctx is done, in
// which case the subscription is canceled and ctx.Err() returned.
// A stream completing without a value yields ErrNoValue.
//
// Values that a stream releases on termination, such as crud response
// handles, are already released when Await returns them.
func Await[T any](ctx context.Context, s *Single[T]) (T, error) {
	var zero T
	result := make(chan outcome[T], 1)
	var got outcome[T]

	sub := s.Subscribe(ctx, Funcs[T]{
		Next: func(v T) {
			got.value, got.hasValue = v, true
		},
		Error: func(err error) {
			result <- outcome[T]{err: err}
		},
		Completed: func() {
			result <- got
		},
	})

	select {
	case r := <-result:
		if r.err != nil {
			return zero, r.err
		}
		if !r.hasValue {
			return zero, ErrNoValue
		}
		return r.value, nil
	case <-ctx.Done():
		sub.Cancel()
		return zero, ctx.Err()
	}
}
