package stream

import (
	"context"
	"fmt"
	"sync/atomic"
)

const (
	callPending int32 = iota
	callCompleted
	callCanceled
)

// FromCallback returns a Single whose every subscription submits start to
// exec. start initiates an asynchronous call and must invoke done at most
// once with its result; ctx is canceled when the subscription is canceled.
//
// Exactly one of completion or cancellation wins. A result arriving after
// cancellation is dropped, and closed if it has a Close() error method.
// An error returned, or a panic raised, by start, as well as an executor
// rejection, terminates the stream with that error.
func FromCallback[T any](exec Executor, start func(ctx context.Context, done func(T, error)) error) *Single[T] {
	if exec == nil {
		exec = Goroutines()
	}

	return Create(func(ctx context.Context, o Observer[T]) {
		if ctx.Err() != nil {
			return
		}

		var state atomic.Int32
		stop := context.AfterFunc(ctx, func() {
			state.CompareAndSwap(callPending, callCanceled)
		})

		complete := func(v T, err error) {
			if ctx.Err() != nil {
				state.CompareAndSwap(callPending, callCanceled)
			}
			if !state.CompareAndSwap(callPending, callCompleted) {
				if err == nil {
					discard(v)
				}
				return
			}
			stop()
			deliver(o, v, err)
		}

		task := func() {
			if state.Load() != callPending {
				return
			}
			if err := safeStart(ctx, start, complete); err != nil {
				var zero T
				complete(zero, err)
			}
		}

		if err := exec.Execute(task); err != nil {
			var zero T
			complete(zero, err)
		}
	})
}

func safeStart[T any](ctx context.Context, start func(context.Context, func(T, error)) error, done func(T, error)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("stream: call panicked: %w", e)
				return
			}
			err = fmt.Errorf("stream: call panicked: %v", r)
		}
	}()
	return start(ctx, done)
}

// deliver emits the result. A panic from a downstream handler is turned
// into a ConsumerError and delivered once through OnError; a panic while an
// error is being delivered can only be reported.
func deliver[T any](o Observer[T], v T, err error) {
	delivering := err
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		cerr := newConsumerError(r)
		if delivering != nil {
			Undeliverable(cerr)
			return
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					Undeliverable(newConsumerError(r))
				}
			}()
			o.OnError(cerr)
		}()
	}()

	if err != nil {
		o.OnError(err)
		return
	}
	o.OnNext(v)
	o.OnCompleted()
}

func discard[T any](v T) {
	if c, ok := any(v).(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			Undeliverable(err)
		}
	}
}
