package resilience

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// State is the position of a circuit breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects every call until the open timeout elapses.
	StateOpen
	// StateHalfOpen lets a few probe calls through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned for calls the breaker rejects.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// MaxFailures is the number of consecutive failures that opens the
	// circuit.
	MaxFailures int `yaml:"max_failures" mapstructure:"max_failures" validate:"gte=0"`
	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`
	// HalfOpenMaxCalls is the number of probes admitted, and the number of
	// successes needed to close again.
	HalfOpenMaxCalls int `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls" validate:"gte=0"`

	OnStateChange func(name string, from, to State) `yaml:"-" mapstructure:"-"`
	Clock         clock.Clock                       `yaml:"-" mapstructure:"-"`
}

// DefaultCircuitBreakerConfig opens after 5 failures for 30 seconds.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// CircuitBreaker fails fast while a dependency keeps failing.
//
// Every state change starts a new generation. Results of calls admitted in
// an earlier generation are ignored, so a slow call that started before the
// circuit opened cannot close it.
type CircuitBreaker struct {
	config CircuitBreakerConfig
	clock  clock.Clock

	mu         sync.Mutex
	state      State
	generation uint64
	failures   int
	probes     int
	passed     int
	openedAt   time.Time
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	d := DefaultCircuitBreakerConfig(config.Name)
	if config.MaxFailures <= 0 {
		config.MaxFailures = d.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = d.Timeout
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = d.HalfOpenMaxCalls
	}
	if config.Clock == nil {
		config.Clock = clock.New()
	}
	return &CircuitBreaker{config: config, clock: config.Clock}
}

// Execute runs fn unless the circuit rejects it. Every error counts as a
// failure.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	return cb.ExecuteCounting(fn, nil)
}

// ExecuteCounting is Execute where isFailure picks the errors that count
// against the circuit. Errors that do not count are still returned, and
// count as successes. A nil isFailure counts every error.
func (cb *CircuitBreaker) ExecuteCounting(fn func() error, isFailure func(error) bool) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}
	err = fn()
	cb.settle(gen, err != nil && (isFailure == nil || isFailure(err)))
	return err
}

// State returns the current state. An open circuit whose timeout elapsed
// reports half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	return cb.state
}

// Failures is the current run of consecutive failures.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
}

func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()

	switch cb.state {
	case StateOpen:
		return 0, ErrCircuitOpen
	case StateHalfOpen:
		if cb.probes >= cb.config.HalfOpenMaxCalls {
			return 0, ErrCircuitOpen
		}
		cb.probes++
	}
	return cb.generation, nil
}

func (cb *CircuitBreaker) settle(gen uint64, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.refresh()
	if gen != cb.generation {
		return
	}

	switch {
	case failed && cb.state == StateHalfOpen:
		cb.setState(StateOpen)
	case failed:
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			cb.setState(StateOpen)
		}
	case cb.state == StateHalfOpen:
		cb.passed++
		if cb.passed >= cb.config.HalfOpenMaxCalls {
			cb.setState(StateClosed)
		}
	default:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) refresh() {
	if cb.state == StateOpen && cb.clock.Since(cb.openedAt) >= cb.config.Timeout {
		cb.setState(StateHalfOpen)
	}
}

func (cb *CircuitBreaker) setState(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.generation++
	cb.failures, cb.probes, cb.passed = 0, 0, 0
	if to == StateOpen {
		cb.openedAt = cb.clock.Now()
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}
