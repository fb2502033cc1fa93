package httpclient

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/kbukum/crudkit/component"
	"github.com/kbukum/crudkit/observability"
)

// Component wraps an Adapter with lifecycle management.
// Use this when the HTTP adapter is part of a component.Registry.
type Component struct {
	config  Config
	opts    []Option
	adapter atomic.Pointer[Adapter]
	lazy    *component.BaseLazyComponent
}

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// NewComponent creates a new HTTP adapter component.
// The adapter is created lazily in Start().
func NewComponent(cfg Config, opts ...Option) *Component {
	c := &Component{config: cfg, opts: opts}
	c.lazy = component.NewBaseLazyComponent(c.Name(), c.init).
		WithHealthCheck(c.started).
		WithCloser(c.close)
	return c
}

func (c *Component) init(_ context.Context) error {
	a, err := New(c.config, c.opts...)
	if err != nil {
		return err
	}
	c.adapter.Store(a)
	return nil
}

func (c *Component) started(context.Context) error {
	if c.adapter.Load() == nil {
		return errors.New("adapter stopped")
	}
	return nil
}

func (c *Component) close() error {
	a := c.adapter.Swap(nil)
	if a == nil {
		return nil
	}
	return a.Close(context.Background())
}

// Name returns the component name.
func (c *Component) Name() string {
	name := c.config.Name
	if name == "" {
		name = "http"
	}
	return name
}

// Start initializes the HTTP adapter.
func (c *Component) Start(ctx context.Context) error {
	return c.lazy.Initialize(ctx)
}

// Stop closes the HTTP adapter and releases resources.
func (c *Component) Stop(_ context.Context) error {
	return c.lazy.Close()
}

// CheckHealth reports down outside Start and Stop, and the adapter's
// circuit breaker health in between.
func (c *Component) CheckHealth(ctx context.Context) observability.Health {
	down := observability.Health{Name: c.Name(), Status: observability.HealthStatusDown}
	if err := c.lazy.HealthCheck(ctx); err != nil {
		down.Message = err.Error()
		return down
	}
	a := c.adapter.Load()
	if a == nil {
		down.Message = "adapter stopped"
		return down
	}
	return a.CheckHealth(ctx)
}

// Describe returns the base URL for the registry's start log.
func (c *Component) Describe() string {
	return c.config.BaseURL
}

// Adapter returns the underlying HTTP adapter, or nil before Start and
// after Stop.
func (c *Component) Adapter() *Adapter {
	return c.adapter.Load()
}
