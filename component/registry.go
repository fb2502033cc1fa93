package component

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/crudkit/logger"
	"github.com/kbukum/crudkit/observability"
)

// DefaultStopTimeout bounds each component's Stop in StopAll.
const DefaultStopTimeout = 10 * time.Second

// Registry starts components in registration order and stops the started
// ones in reverse.
type Registry struct {
	mu          sync.RWMutex
	components  []Component
	byName      map[string]Component
	started     []Component
	stopTimeout time.Duration
	log         *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:      make(map[string]Component),
		stopTimeout: DefaultStopTimeout,
		log:         logger.Get("component"),
	}
}

// SetStopTimeout changes the per-component Stop deadline.
func (r *Registry) SetStopTimeout(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d > 0 {
		r.stopTimeout = d
	}
}

// Register adds c. Names must be unique.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := c.Name()
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("component %s already registered", name)
	}
	r.components = append(r.components, c)
	r.byName[name] = c
	return nil
}

// StartAll starts every component that is not running yet. It stops at the
// first failure; components started before it stay running until StopAll.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.components {
		if r.running(c.Name()) {
			continue
		}
		if err := c.Start(ctx); err != nil {
			r.log.Error("component start failed", logger.Fields("component", c.Name(), logger.FieldError, err.Error()))
			return fmt.Errorf("start %s: %w", c.Name(), err)
		}
		r.started = append(r.started, c)
		fields := logger.Fields("component", c.Name())
		if d, ok := c.(Describable); ok {
			fields["details"] = d.Describe()
		}
		r.log.Debug("component started", fields)
	}
	return nil
}

// StopAll stops the started components, last started first. Every component
// gets its own deadline; all failures are returned joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for i := len(r.started) - 1; i >= 0; i-- {
		c := r.started[i]
		if err := r.stop(ctx, c); err != nil {
			r.log.Error("component stop failed", logger.Fields("component", c.Name(), logger.FieldError, err.Error()))
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name(), err))
			continue
		}
		r.log.Debug("component stopped", logger.Fields("component", c.Name()))
	}
	r.started = nil

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}

func (r *Registry) running(name string) bool {
	return slices.ContainsFunc(r.started, func(c Component) bool { return c.Name() == name })
}

func (r *Registry) stop(ctx context.Context, c Component) error {
	ctx, cancel := context.WithTimeout(ctx, r.stopTimeout)
	defer cancel()
	return c.Stop(ctx)
}

// Health checks every registered component in registration order. The
// service status is the worst component status.
func (r *Registry) Health(ctx context.Context, service, version string) *observability.ServiceHealth {
	r.mu.RLock()
	checkers := make([]observability.HealthChecker, len(r.components))
	for i, c := range r.components {
		checkers[i] = c
	}
	r.mu.RUnlock()

	return observability.NewServiceHealth(service, version).CheckAll(ctx, checkers...)
}

// Get returns the component registered as name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byName[name]
}

// All returns the registered components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.components)
}
