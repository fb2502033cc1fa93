package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	goerrors "github.com/kbukum/crudkit/errors"
	"github.com/kbukum/crudkit/logger"
)

// Manager initializes providers from a Registry and hands them out through
// a Selector, or the default provider once one is set.
type Manager[T Provider] struct {
	registry *Registry[T]
	selector Selector[T]
	log      *logger.Logger

	mu          sync.RWMutex
	defaultName string
}

// NewManager returns a manager over registry and selector.
func NewManager[T Provider](registry *Registry[T], selector Selector[T]) *Manager[T] {
	return &Manager[T]{
		registry: registry,
		selector: selector,
		log:      logger.Get("provider"),
	}
}

// Register adds a factory to the registry.
func (m *Manager[T]) Register(name string, factory Factory[T]) {
	m.registry.RegisterFactory(name, factory)
	m.log.Debug("provider registered", logger.Fields("provider", name))
}

// Initialize creates the named provider, runs Init when it is
// Initializable, and stores it. A provider whose Init fails is not stored.
func (m *Manager[T]) Initialize(ctx context.Context, name string, cfg map[string]any) error {
	p, err := m.registry.Create(name, cfg)
	if err != nil {
		return fmt.Errorf("create provider %q: %w", name, err)
	}
	if in, ok := any(p).(Initializable); ok {
		if err := in.Init(ctx); err != nil {
			return fmt.Errorf("init provider %q: %w", name, err)
		}
	}
	m.registry.Set(name, p)
	m.log.Debug("provider initialized", logger.Fields("provider", name))
	return nil
}

// Get returns the default provider if set, otherwise the selector's pick.
func (m *Manager[T]) Get(ctx context.Context) (T, error) {
	m.mu.RLock()
	def := m.defaultName
	m.mu.RUnlock()

	if def != "" {
		return m.GetByName(def)
	}
	return m.selector.Select(ctx, m.registry.Instances())
}

// GetByName returns an initialized provider.
func (m *Manager[T]) GetByName(name string) (T, error) {
	if p, ok := m.registry.Get(name); ok {
		return p, nil
	}
	var zero T
	return zero, goerrors.NotFound("provider", name)
}

// SetDefault pins Get to an initialized provider.
func (m *Manager[T]) SetDefault(name string) error {
	if _, err := m.GetByName(name); err != nil {
		return err
	}
	m.mu.Lock()
	m.defaultName = name
	m.mu.Unlock()
	return nil
}

// Available returns the names of the initialized providers, sorted.
func (m *Manager[T]) Available() []string {
	return sortedNames(m.registry.Instances())
}

// CloseAll closes every Closeable provider in name order and forgets all
// of them. Close errors are joined.
func (m *Manager[T]) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	m.defaultName = ""
	m.mu.Unlock()

	instances := m.registry.Instances()
	var errs []error
	for _, name := range sortedNames(instances) {
		m.registry.Delete(name)
		if c, ok := any(instances[name]).(Closeable); ok {
			if err := c.Close(ctx); err != nil {
				errs = append(errs, fmt.Errorf("close provider %q: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
