package provider

import (
	"context"
	"net/http"
	"sort"
	"sync/atomic"

	goerrors "github.com/kbukum/crudkit/errors"
)

// ErrNoProvider is returned by selectors when no candidate is available.
var ErrNoProvider = goerrors.New(goerrors.ErrCodeServiceUnavailable, "no available provider", http.StatusServiceUnavailable)

// Selector picks a provider from the available options.
type Selector[T Provider] interface {
	Select(ctx context.Context, providers map[string]T) (T, error)
}

// PrioritySelector tries providers in Priority order and returns the first
// available one. Providers missing from Priority are never chosen.
type PrioritySelector[T Provider] struct {
	Priority []string
}

func (s *PrioritySelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	return firstAvailable(ctx, providers, s.Priority, 0)
}

// RoundRobinSelector rotates over providers in name order, skipping
// unavailable ones.
type RoundRobinSelector[T Provider] struct {
	next atomic.Uint64
}

func (s *RoundRobinSelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	names := sortedNames(providers)
	if len(names) == 0 {
		var zero T
		return zero, ErrNoProvider
	}
	return firstAvailable(ctx, providers, names, int((s.next.Add(1)-1)%uint64(len(names))))
}

// HealthCheckSelector picks the first available provider in name order.
type HealthCheckSelector[T Provider] struct{}

func (s *HealthCheckSelector[T]) Select(ctx context.Context, providers map[string]T) (T, error) {
	return firstAvailable(ctx, providers, sortedNames(providers), 0)
}

// firstAvailable walks names once, starting at offset and wrapping around.
func firstAvailable[T Provider](ctx context.Context, providers map[string]T, names []string, offset int) (T, error) {
	for i := range names {
		name := names[(offset+i)%len(names)]
		if p, ok := providers[name]; ok && p.IsAvailable(ctx) {
			return p, nil
		}
	}
	var zero T
	return zero, ErrNoProvider
}

func sortedNames[T any](providers map[string]T) []string {
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
