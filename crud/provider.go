package crud

import (
	"context"

	"github.com/kbukum/crudkit/provider"
	"github.com/kbukum/crudkit/stream"
	"github.com/kbukum/crudkit/template"
)

// Option configures a Provider.
type Option func(*Provider)

// WithTemplate sets the default template of every resource.
func WithTemplate(t template.Template) Option {
	return func(p *Provider) { p.base = t }
}

// WithExecutor sets the executor transport calls are started on.
// The default starts each call on its own goroutine.
func WithExecutor(exec stream.Executor) Option {
	return func(p *Provider) {
		if exec != nil {
			p.exec = exec
		}
	}
}

// WithName sets the provider name.
func WithName(name string) Option {
	return func(p *Provider) { p.name = name }
}

var _ provider.Provider = (*Provider)(nil)

// Provider hands out resources sharing one transport, executor and
// default template.
type Provider struct {
	name      string
	transport Transport
	exec      stream.Executor
	base      template.Template
}

// NewProvider returns a provider over t.
func NewProvider(t Transport, opts ...Option) *Provider {
	p := &Provider{
		name:      "crud",
		transport: t,
		exec:      stream.Goroutines(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns the resource at address. It performs no I/O.
func (p *Provider) Get(address string) *Resource {
	return &Resource{
		address:   address,
		base:      p.base,
		transport: p.transport,
		exec:      p.exec,
	}
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.name }

// IsAvailable delegates to the transport when it reports availability.
func (p *Provider) IsAvailable(ctx context.Context) bool {
	if a, ok := p.transport.(provider.Provider); ok {
		return a.IsAvailable(ctx)
	}
	return true
}
