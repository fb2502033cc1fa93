package stream

import (
	"context"

	"github.com/kbukum/crudkit/resilience"
)

// Executor runs tasks asynchronously. Execute must not run task on the
// calling goroutine; it returns an error when the task is rejected.
type Executor interface {
	Execute(task func()) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(task func()) error

func (f ExecutorFunc) Execute(task func()) error { return f(task) }

// Goroutines returns an unbounded executor running each task on its own
// goroutine.
func Goroutines() Executor {
	return ExecutorFunc(func(task func()) error {
		go task()
		return nil
	})
}

// BoundedExecutor caps the number of tasks in flight with a bulkhead.
// Tasks beyond the cap wait up to the configured MaxWait, then are rejected
// with resilience.ErrBulkheadFull or resilience.ErrBulkheadTimeout.
type BoundedExecutor struct {
	bulkhead *resilience.Bulkhead
}

// NewBoundedExecutor returns an executor limited by cfg.
func NewBoundedExecutor(cfg resilience.BulkheadConfig) *BoundedExecutor {
	return &BoundedExecutor{bulkhead: resilience.NewBulkhead(cfg)}
}

func (e *BoundedExecutor) Execute(task func()) error {
	return e.bulkhead.Go(context.Background(), task)
}

// InFlight returns the number of running tasks.
func (e *BoundedExecutor) InFlight() int { return e.bulkhead.InUse() }
