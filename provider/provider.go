package provider

import "context"

// Provider is a named backend that can report whether it takes calls.
type Provider interface {
	Name() string
	IsAvailable(ctx context.Context) bool
}

// Factory builds a provider from loosely typed settings.
type Factory[T Provider] func(cfg map[string]any) (T, error)

// Initializable providers are set up by the Manager before they are stored.
type Initializable interface {
	Init(ctx context.Context) error
}

// Closeable providers release their resources on Manager.CloseAll.
type Closeable interface {
	Close(ctx context.Context) error
}
