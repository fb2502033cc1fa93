package stream

import (
	"context"
	"sync"
	"sync/atomic"
)

// Observer receives the signals of one subscription. Signals are delivered
// serially: at most one OnNext, followed by one of OnCompleted or OnError.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnCompleted()
}

// Funcs adapts plain functions to Observer. Nil fields are ignored.
type Funcs[T any] struct {
	Next      func(T)
	Error     func(error)
	Completed func()
}

func (f Funcs[T]) OnNext(v T) {
	if f.Next != nil {
		f.Next(v)
	}
}

func (f Funcs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
	}
}

func (f Funcs[T]) OnCompleted() {
	if f.Completed != nil {
		f.Completed()
	}
}

// Subscription is the consumer's handle on a running subscription.
type Subscription interface {
	// Cancel stops the subscription. It is idempotent and safe to call from
	// any goroutine, including from inside a handler.
	Cancel()
	// Canceled reports whether the subscription ended by cancellation.
	Canceled() bool
	// Done is closed once the subscription terminated or was canceled.
	Done() <-chan struct{}
}

// OnSubscribe runs a source for one subscription. ctx is canceled when the
// subscription is canceled or has terminated.
type OnSubscribe[T any] func(ctx context.Context, o Observer[T])

// Single is a cold stream of at most one value. It is immutable and may be
// subscribed any number of times.
type Single[T any] struct {
	onSubscribe OnSubscribe[T]
}

// Create returns a Single running fn for every subscription.
func Create[T any](fn OnSubscribe[T]) *Single[T] {
	return &Single[T]{onSubscribe: fn}
}

// Just returns a Single emitting v and completing.
func Just[T any](v T) *Single[T] {
	return Create(func(_ context.Context, o Observer[T]) {
		o.OnNext(v)
		o.OnCompleted()
	})
}

// Fail returns a Single terminating with err.
func Fail[T any](err error) *Single[T] {
	return Create(func(_ context.Context, o Observer[T]) {
		o.OnError(err)
	})
}

// Subscribe starts a new, independent subscription. Signals are delivered
// to o until the subscription terminates or is canceled. Cancelling ctx
// cancels the subscription.
func (s *Single[T]) Subscribe(ctx context.Context, o Observer[T]) Subscription {
	subCtx, cancel := context.WithCancel(ctx)
	sub := &subscription{ctx: subCtx, cancel: cancel, done: make(chan struct{})}
	context.AfterFunc(subCtx, sub.end)
	s.subscribe(subCtx, &guard[T]{down: o, sub: sub})
	return sub
}

// subscribe runs the source without the consumer-facing guard. Operators
// use it to chain subscriptions.
func (s *Single[T]) subscribe(ctx context.Context, o Observer[T]) {
	s.onSubscribe(ctx, o)
}

type subscription struct {
	ctx      context.Context
	cancel   context.CancelFunc
	canceled atomic.Bool
	finished atomic.Bool
	done     chan struct{}
	once     sync.Once
}

func (s *subscription) Cancel() {
	if s.finished.Load() {
		return
	}
	s.canceled.Store(true)
	s.end()
}

func (s *subscription) Canceled() bool {
	if s.canceled.Load() {
		return true
	}
	return !s.finished.Load() && s.ctx.Err() != nil
}

func (s *subscription) Done() <-chan struct{} {
	return s.done
}

// terminating marks the subscription as ended by a terminal signal, before
// that signal is delivered, so a Cancel from inside the handler is a no-op.
func (s *subscription) terminating() {
	s.finished.Store(true)
}

func (s *subscription) end() {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
}

// guard enforces the signal grammar at the consumer boundary: at most one
// value, one terminal signal, nothing after cancellation.
type guard[T any] struct {
	down       Observer[T]
	sub        *subscription
	gotValue   atomic.Bool
	terminated atomic.Bool
}

func (g *guard[T]) stopped() bool {
	return g.terminated.Load() || g.sub.Canceled()
}

func (g *guard[T]) OnNext(v T) {
	if g.stopped() {
		return
	}
	if !g.gotValue.CompareAndSwap(false, true) {
		Undeliverable(errSecondValue)
		return
	}
	g.down.OnNext(v)
}

func (g *guard[T]) OnError(err error) {
	if !g.terminated.CompareAndSwap(false, true) {
		Undeliverable(err)
		return
	}
	if g.sub.Canceled() {
		g.sub.end()
		return
	}
	g.sub.terminating()
	defer g.sub.end()
	g.down.OnError(err)
}

func (g *guard[T]) OnCompleted() {
	if !g.terminated.CompareAndSwap(false, true) {
		return
	}
	if g.sub.Canceled() {
		g.sub.end()
		return
	}
	g.sub.terminating()
	defer g.sub.end()
	g.down.OnCompleted()
}
