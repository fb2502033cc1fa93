package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/kbukum/crudkit/logger"
)

// BaseLazyComponent runs an initializer on first use and remembers the
// outcome until Close. A failed initialization is attempted again on the
// next call to Initialize.
type BaseLazyComponent struct {
	name   string
	init   func(context.Context) error
	health func(context.Context) error
	closer func() error

	mu    sync.Mutex
	ready bool
	err   error
}

// NewBaseLazyComponent creates a lazy component around init.
func NewBaseLazyComponent(name string, init func(context.Context) error) *BaseLazyComponent {
	return &BaseLazyComponent{name: name, init: init}
}

// WithHealthCheck adds a check run by HealthCheck once initialized.
func (b *BaseLazyComponent) WithHealthCheck(fn func(context.Context) error) *BaseLazyComponent {
	b.health = fn
	return b
}

// WithCloser sets the function releasing what init acquired.
func (b *BaseLazyComponent) WithCloser(fn func() error) *BaseLazyComponent {
	b.closer = fn
	return b
}

func (b *BaseLazyComponent) Name() string {
	return b.name
}

// Initialize runs init unless an earlier call succeeded. Concurrent callers
// wait for the same attempt.
func (b *BaseLazyComponent) Initialize(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ready {
		return nil
	}
	if b.init == nil {
		return fmt.Errorf("component %s: no initializer", b.name)
	}

	log := logger.Get(b.name)
	if err := b.init(ctx); err != nil {
		b.err = err
		log.Debug("initialization failed", logger.Fields(logger.FieldError, err.Error()))
		return fmt.Errorf("initialize %s: %w", b.name, err)
	}
	b.ready, b.err = true, nil
	log.Debug("initialized")
	return nil
}

// IsInitialized reports whether Initialize succeeded and Close has not run
// since.
func (b *BaseLazyComponent) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ready
}

// Err returns the last initialization failure, or nil.
func (b *BaseLazyComponent) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// HealthCheck fails before initialization, then defers to the custom check.
func (b *BaseLazyComponent) HealthCheck(ctx context.Context) error {
	b.mu.Lock()
	ready, err := b.ready, b.err
	b.mu.Unlock()
	switch {
	case err != nil:
		return fmt.Errorf("component %s: %w", b.name, err)
	case !ready:
		return fmt.Errorf("component %s not initialized", b.name)
	case b.health != nil:
		return b.health(ctx)
	}
	return nil
}

// Close runs the closer if the component is initialized. The component can
// be initialized again afterwards.
func (b *BaseLazyComponent) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return nil
	}
	b.ready = false
	if b.closer == nil {
		return nil
	}
	return b.closer()
}
