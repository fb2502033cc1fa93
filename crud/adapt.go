package crud

import (
	"context"

	"github.com/kbukum/crudkit/provider"
)

// FromProvider turns a blocking request/response provider, typically an
// HTTP adapter wrapped in provider middleware, into a Transport. The call
// runs on the goroutine that invokes it, which for a Resource is an
// executor worker.
func FromProvider(p provider.RequestResponse[Request, Response]) Transport {
	return &providerTransport{p: p}
}

type providerTransport struct {
	p provider.RequestResponse[Request, Response]
}

func (t *providerTransport) Name() string                         { return t.p.Name() }
func (t *providerTransport) IsAvailable(ctx context.Context) bool { return t.p.IsAvailable(ctx) }

func (t *providerTransport) Invoke(ctx context.Context, req Request, done func(Response, error)) error {
	resp, err := t.p.Execute(ctx, req)
	done(resp, err)
	return nil
}
