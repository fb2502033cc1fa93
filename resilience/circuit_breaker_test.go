package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

var errDown = errors.New("backend down")

func fail() error { return errDown }
func pass() error { return nil }

func newTestBreaker(mock *clock.Mock, transitions *[]string) *CircuitBreaker {
	return NewCircuitBreaker(CircuitBreakerConfig{
		Name:             "assets",
		MaxFailures:      2,
		Timeout:          time.Minute,
		HalfOpenMaxCalls: 2,
		Clock:            mock,
		OnStateChange: func(_ string, from, to State) {
			if transitions != nil {
				*transitions = append(*transitions, from.String()+">"+to.String())
			}
		},
	})
}

func TestCircuitBreaker_Lifecycle(t *testing.T) {
	mock := clock.NewMock()
	var transitions []string
	cb := newTestBreaker(mock, &transitions)

	_ = cb.Execute(fail)
	_ = cb.Execute(pass)
	_ = cb.Execute(fail)
	if cb.State() != StateClosed {
		t.Fatalf("expected a success to reset the failure run, got %s", cb.State())
	}

	_ = cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("expected open after 2 consecutive failures, got %s", cb.State())
	}
	if err := cb.Execute(func() error {
		t.Error("call admitted while open")
		return nil
	}); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}

	mock.Add(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open after the timeout, got %s", cb.State())
	}

	_ = cb.Execute(pass)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected to need 2 probe successes, got %s", cb.State())
	}
	_ = cb.Execute(pass)
	if cb.State() != StateClosed {
		t.Fatalf("expected closed after 2 probe successes, got %s", cb.State())
	}

	want := []string{"closed>open", "open>half-open", "half-open>closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected transitions %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreaker_ProbeFailureReopens(t *testing.T) {
	mock := clock.NewMock()
	cb := newTestBreaker(mock, nil)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	mock.Add(time.Minute)

	_ = cb.Execute(fail)
	if cb.State() != StateOpen {
		t.Fatalf("expected a failed probe to reopen, got %s", cb.State())
	}
}

func TestCircuitBreaker_LimitsProbes(t *testing.T) {
	mock := clock.NewMock()
	cb := newTestBreaker(mock, nil)
	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	mock.Add(time.Minute)

	admitted := make(chan struct{}, 2)
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(func() error {
				admitted <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	<-admitted
	<-admitted

	if err := cb.Execute(pass); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected a third probe to be rejected, got %v", err)
	}
	close(release)
	wg.Wait()
	if cb.State() != StateClosed {
		t.Errorf("expected the probes to close the circuit, got %s", cb.State())
	}
}

func TestCircuitBreaker_StaleResultIgnored(t *testing.T) {
	mock := clock.NewMock()
	cb := newTestBreaker(mock, nil)

	started := make(chan struct{})
	finish := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = cb.Execute(func() error {
			close(started)
			<-finish
			return fail()
		})
	}()
	<-started

	_ = cb.Execute(fail)
	_ = cb.Execute(fail)
	mock.Add(time.Minute)
	if cb.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}

	// The slow call belongs to the first closed generation.
	close(finish)
	<-done
	if cb.State() != StateHalfOpen {
		t.Errorf("expected a stale failure to leave the state alone, got %s", cb.State())
	}
}

func TestCircuitBreaker_ExecuteCounting(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Hour})
	notFound := errors.New("not found")
	countOnlyDown := func(err error) bool { return errors.Is(err, errDown) }

	for i := 0; i < 3; i++ {
		if err := cb.ExecuteCounting(func() error { return notFound }, countOnlyDown); !errors.Is(err, notFound) {
			t.Fatalf("expected the error to be returned, got %v", err)
		}
	}
	if cb.State() != StateClosed || cb.Failures() != 0 {
		t.Fatalf("expected uncounted errors to leave the circuit closed, got %s with %d failures", cb.State(), cb.Failures())
	}

	_ = cb.ExecuteCounting(fail, countOnlyDown)
	if cb.State() != StateOpen {
		t.Errorf("expected a counted error to open the circuit, got %s", cb.State())
	}
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})
	if cb.config.MaxFailures != 5 || cb.config.Timeout != 30*time.Second || cb.config.HalfOpenMaxCalls != 1 {
		t.Errorf("unexpected defaults: %+v", cb.config)
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(42):     "unknown",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d): expected %s, got %s", s, want, got)
		}
	}
}
