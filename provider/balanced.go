package provider

import (
	"context"

	goerrors "github.com/kbukum/crudkit/errors"
)

// Balanced returns a RequestResponse that asks m for a provider on every
// Execute, so the manager's selector spreads calls across backends and skips
// unavailable ones.
func Balanced[I, O any](name string, m *Manager[RequestResponse[I, O]]) RequestResponse[I, O] {
	return &balancedRR[I, O]{name: name, m: m}
}

type balancedRR[I, O any] struct {
	name string
	m    *Manager[RequestResponse[I, O]]
}

func (b *balancedRR[I, O]) Name() string { return b.name }

func (b *balancedRR[I, O]) IsAvailable(ctx context.Context) bool {
	_, err := b.m.Get(ctx)
	return err == nil
}

func (b *balancedRR[I, O]) Execute(ctx context.Context, input I) (O, error) {
	p, err := b.m.Get(ctx)
	if err != nil {
		var zero O
		return zero, goerrors.ServiceUnavailable(b.name).WithCause(err)
	}
	return p.Execute(ctx, input)
}
