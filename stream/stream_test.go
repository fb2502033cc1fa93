package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/goleak"

	"github.com/kbukum/crudkit/resilience"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// recorder collects signals in arrival order.
type recorder[T any] struct {
	mu      sync.Mutex
	signals []string
	values  []T
	err     error
	done    chan struct{}
	once    sync.Once
}

func newRecorder[T any]() *recorder[T] {
	return &recorder[T]{done: make(chan struct{})}
}

func (r *recorder[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.signals = append(r.signals, "next")
	r.values = append(r.values, v)
}

func (r *recorder[T]) OnError(err error) {
	r.mu.Lock()
	r.signals = append(r.signals, "error")
	r.err = err
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder[T]) OnCompleted() {
	r.mu.Lock()
	r.signals = append(r.signals, "completed")
	r.mu.Unlock()
	r.once.Do(func() { close(r.done) })
}

func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a terminal signal")
	}
}

func (r *recorder[T]) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.signals...)
}

type closable struct {
	closes atomic.Int32
}

func (c *closable) Close() error {
	c.closes.Add(1)
	return nil
}

func captureUndeliverable(t *testing.T) func() []error {
	t.Helper()
	var mu sync.Mutex
	var errs []error
	restore := SetErrorHandler(func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	})
	t.Cleanup(restore)
	return func() []error {
		mu.Lock()
		defer mu.Unlock()
		return append([]error(nil), errs...)
	}
}

func asyncValue[T any](v T, calls *atomic.Int32) *Single[T] {
	return FromCallback(Goroutines(), func(_ context.Context, done func(T, error)) error {
		calls.Add(1)
		go done(v, nil)
		return nil
	})
}

func TestFromCallback_DeliversValueThenCompletion(t *testing.T) {
	var calls atomic.Int32
	rec := newRecorder[int]()

	asyncValue(42, &calls).Subscribe(context.Background(), rec)
	rec.wait(t)

	got := rec.snapshot()
	if len(got) != 2 || got[0] != "next" || got[1] != "completed" {
		t.Errorf("expected [next completed], got %v", got)
	}
	if rec.values[0] != 42 {
		t.Errorf("expected 42, got %d", rec.values[0])
	}
}

func TestFromCallback_IsCold(t *testing.T) {
	var calls atomic.Int32
	s := asyncValue("v", &calls)

	time.Sleep(10 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatalf("expected no call before subscribe, got %d", calls.Load())
	}

	for i := 0; i < 2; i++ {
		if _, err := Await(context.Background(), s); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if calls.Load() != 2 {
		t.Errorf("expected one call per subscription, got %d", calls.Load())
	}
}

func TestFromCallback_StartsOffTheSubscriberGoroutine(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	s := FromCallback(Goroutines(), func(_ context.Context, done func(int, error)) error {
		close(started)
		<-release
		done(1, nil)
		return nil
	})

	rec := newRecorder[int]()
	s.Subscribe(context.Background(), rec)
	<-started
	close(release)
	rec.wait(t)
}

func TestFromCallback_ErrorResult(t *testing.T) {
	boom := errors.New("boom")
	s := FromCallback(Goroutines(), func(_ context.Context, done func(int, error)) error {
		done(0, boom)
		return nil
	})

	_, err := Await(context.Background(), s)
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestFromCallback_SynchronousStartError(t *testing.T) {
	boom := errors.New("refused")
	s := FromCallback(Goroutines(), func(context.Context, func(int, error)) error {
		return boom
	})

	rec := newRecorder[int]()
	s.Subscribe(context.Background(), rec)
	rec.wait(t)

	if !errors.Is(rec.err, boom) {
		t.Errorf("expected refused, got %v", rec.err)
	}
}

func TestFromCallback_StartPanicBecomesError(t *testing.T) {
	s := FromCallback(Goroutines(), func(context.Context, func(int, error)) error {
		panic("kaboom")
	})

	_, err := Await(context.Background(), s)
	if err == nil {
		t.Fatal("expected an error from a panicking start")
	}
}

func TestFromCallback_ExecutorRejection(t *testing.T) {
	rejected := errors.New("rejected")
	exec := ExecutorFunc(func(func()) error { return rejected })

	var calls atomic.Int32
	s := FromCallback(exec, func(context.Context, func(int, error)) error {
		calls.Add(1)
		return nil
	})

	_, err := Await(context.Background(), s)
	if !errors.Is(err, rejected) {
		t.Errorf("expected rejected, got %v", err)
	}
	if calls.Load() != 0 {
		t.Error("expected the call not to start")
	}
}

func TestFromCallback_SecondDoneIsDropped(t *testing.T) {
	first := &closable{}
	second := &closable{}
	s := FromCallback(Goroutines(), func(_ context.Context, done func(*closable, error)) error {
		done(first, nil)
		done(second, nil)
		return nil
	})

	v, err := Await(context.Background(), s)
	if err != nil || v != first {
		t.Fatalf("expected the first value, got %v, %v", v, err)
	}
	if second.closes.Load() != 1 {
		t.Errorf("expected the dropped value to be closed once, got %d", second.closes.Load())
	}
}

func TestFromCallback_CancelBeforeCompletionDiscardsResult(t *testing.T) {
	pending := make(chan func(*closable, error), 1)
	var sawCancel atomic.Bool
	s := FromCallback(Goroutines(), func(ctx context.Context, done func(*closable, error)) error {
		context.AfterFunc(ctx, func() { sawCancel.Store(true) })
		pending <- done
		return nil
	})

	rec := newRecorder[*closable]()
	sub := s.Subscribe(context.Background(), rec)
	done := <-pending

	sub.Cancel()
	if !sub.Canceled() {
		t.Error("expected Canceled after Cancel")
	}

	late := &closable{}
	done(late, nil)

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("expected Done to be closed after Cancel")
	}
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("expected no signals after cancel, got %v", got)
	}
	if late.closes.Load() != 1 {
		t.Errorf("expected the late result to be closed once, got %d", late.closes.Load())
	}

	deadline := time.Now().Add(time.Second)
	for !sawCancel.Load() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !sawCancel.Load() {
		t.Error("expected the call context to be canceled")
	}
}

func TestFromCallback_CanceledContextNeverStarts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	sub := asyncValue(1, &calls).Subscribe(ctx, newRecorder[int]())

	<-sub.Done()
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("expected no call, got %d", calls.Load())
	}
}

func TestFromCallback_ConsumerPanicInNextIsDeliveredAsError(t *testing.T) {
	var calls atomic.Int32
	errs := make(chan error, 1)

	asyncValue(1, &calls).Subscribe(context.Background(), Funcs[int]{
		Next:  func(int) { panic("consumer bug") },
		Error: func(err error) { errs <- err },
	})

	select {
	case err := <-errs:
		var ce *ConsumerError
		if !errors.As(err, &ce) || ce.Value != "consumer bug" {
			t.Errorf("expected ConsumerError, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected the consumer panic to be delivered")
	}
}

func TestFromCallback_ConsumerPanicInCompletedIsReported(t *testing.T) {
	reported := captureUndeliverable(t)
	var calls atomic.Int32
	var errorCalls atomic.Int32

	sub := asyncValue(1, &calls).Subscribe(context.Background(), Funcs[int]{
		Completed: func() { panic("completion bug") },
		Error:     func(error) { errorCalls.Add(1) },
	})
	<-sub.Done()

	deadline := time.Now().Add(time.Second)
	for len(reported()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if errs := reported(); len(errs) != 1 || !IsConsumerError(errs[0]) {
		t.Errorf("expected one reported ConsumerError, got %v", errs)
	}
	if errorCalls.Load() != 0 {
		t.Error("expected no OnError after OnCompleted")
	}
}

func TestSubscribe_GuardsSignalGrammar(t *testing.T) {
	reported := captureUndeliverable(t)
	s := Create(func(_ context.Context, o Observer[int]) {
		o.OnNext(1)
		o.OnNext(2)
		o.OnCompleted()
		o.OnError(errors.New("late"))
		o.OnCompleted()
	})

	rec := newRecorder[int]()
	s.Subscribe(context.Background(), rec)

	got := rec.snapshot()
	if len(got) != 2 || got[0] != "next" || got[1] != "completed" {
		t.Errorf("expected [next completed], got %v", got)
	}
	if len(reported()) != 2 {
		t.Errorf("expected the second value and late error to be reported, got %v", reported())
	}
}

func TestCancelInsideNextSuppressesCompletion(t *testing.T) {
	var sub Subscription
	ready := make(chan struct{})
	release := make(chan struct{})

	s := FromCallback(Goroutines(), func(_ context.Context, done func(int, error)) error {
		go func() {
			<-release
			done(1, nil)
		}()
		return nil
	})

	rec := newRecorder[int]()
	sub = s.Subscribe(context.Background(), Funcs[int]{
		Next: func(v int) {
			<-ready
			rec.OnNext(v)
			sub.Cancel()
		},
		Completed: rec.OnCompleted,
		Error:     rec.OnError,
	})
	close(ready)
	close(release)

	<-sub.Done()
	time.Sleep(10 * time.Millisecond)
	if got := rec.snapshot(); len(got) != 1 || got[0] != "next" {
		t.Errorf("expected only the value, got %v", got)
	}
}

func TestMap(t *testing.T) {
	v, err := Await(context.Background(), Map(Just(21), func(i int) (int, error) { return i * 2, nil }))
	if err != nil || v != 42 {
		t.Errorf("expected 42, got %d (%v)", v, err)
	}

	bad := errors.New("bad")
	_, err = Await(context.Background(), Map(Just(1), func(int) (string, error) { return "", bad }))
	if !errors.Is(err, bad) {
		t.Errorf("expected bad, got %v", err)
	}
}

func TestDoOnTerminateRunsAfterDelivery(t *testing.T) {
	var order []string
	s := Just(1).DoOnTerminate(func(err error) { order = append(order, "terminate") })

	s.Subscribe(context.Background(), Funcs[int]{
		Completed: func() { order = append(order, "completed") },
	})

	if len(order) != 2 || order[0] != "completed" || order[1] != "terminate" {
		t.Errorf("expected completion before the hook, got %v", order)
	}
}

func TestAwait_NoValue(t *testing.T) {
	empty := Create(func(_ context.Context, o Observer[int]) { o.OnCompleted() })

	if _, err := Await(context.Background(), empty); !errors.Is(err, ErrNoValue) {
		t.Errorf("expected ErrNoValue, got %v", err)
	}
}

func TestAwait_ContextCancellation(t *testing.T) {
	never := FromCallback(Goroutines(), func(ctx context.Context, done func(int, error)) error {
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := Await(ctx, never); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestRetry_ResubscribesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	s := FromCallback(Goroutines(), func(_ context.Context, done func(int, error)) error {
		if calls.Add(1) < 3 {
			done(0, errors.New("transient"))
			return nil
		}
		done(7, nil)
		return nil
	})

	v, err := Await(context.Background(), s.Retry(resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}))
	if err != nil || v != 7 {
		t.Fatalf("expected 7, got %d (%v)", v, err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 calls, got %d", calls.Load())
	}
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	last := errors.New("still failing")
	s := FromCallback(Goroutines(), func(_ context.Context, done func(int, error)) error {
		calls.Add(1)
		done(0, last)
		return nil
	})

	_, err := Await(context.Background(), s.Retry(resilience.RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond}))
	if !errors.Is(err, last) {
		t.Errorf("expected the last error, got %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 calls, got %d", calls.Load())
	}
}

func TestRetry_RespectsRetryIf(t *testing.T) {
	var calls atomic.Int32
	fatal := errors.New("fatal")
	s := FromCallback(Goroutines(), func(_ context.Context, done func(int, error)) error {
		calls.Add(1)
		done(0, fatal)
		return nil
	})

	cfg := resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
		RetryIf:        func(err error) bool { return !errors.Is(err, fatal) },
	}
	if _, err := Await(context.Background(), s.Retry(cfg)); !errors.Is(err, fatal) {
		t.Errorf("expected fatal, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestRetry_WaitsOnClockAndStopsOnCancel(t *testing.T) {
	mock := clock.NewMock()
	var calls atomic.Int32
	retried := make(chan struct{}, 1)

	s := FromCallback(Goroutines(), func(_ context.Context, done func(int, error)) error {
		calls.Add(1)
		done(0, errors.New("transient"))
		return nil
	})

	cfg := resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Hour,
		Clock:          mock,
		OnRetry:        func(int, error, time.Duration) { retried <- struct{}{} },
	}

	rec := newRecorder[int]()
	sub := s.Retry(cfg).Subscribe(context.Background(), rec)

	<-retried
	time.Sleep(10 * time.Millisecond)
	if calls.Load() != 1 {
		t.Fatalf("expected to wait for the backoff, got %d calls", calls.Load())
	}

	sub.Cancel()
	mock.Add(2 * time.Hour)
	time.Sleep(10 * time.Millisecond)

	if calls.Load() != 1 {
		t.Errorf("expected no attempt after cancel, got %d calls", calls.Load())
	}
	if got := rec.snapshot(); len(got) != 0 {
		t.Errorf("expected no signals after cancel, got %v", got)
	}
}

func TestBoundedExecutor(t *testing.T) {
	exec := NewBoundedExecutor(resilience.BulkheadConfig{Name: "test", MaxConcurrent: 1})

	block := make(chan struct{})
	started := make(chan struct{})
	if err := exec.Execute(func() { close(started); <-block }); err != nil {
		t.Fatalf("expected the first task to be admitted, got %v", err)
	}
	<-started

	if err := exec.Execute(func() {}); !errors.Is(err, resilience.ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if exec.InFlight() != 1 {
		t.Errorf("expected 1 task in flight, got %d", exec.InFlight())
	}
	close(block)
}
