package provider

import (
	"maps"
	"sync"

	goerrors "github.com/kbukum/crudkit/errors"
)

// Registry holds named provider factories and the instances created from
// them.
type Registry[T Provider] struct {
	mu        sync.RWMutex
	factories map[string]Factory[T]
	instances map[string]T
}

// NewRegistry creates an empty Registry.
func NewRegistry[T Provider]() *Registry[T] {
	return &Registry[T]{
		factories: make(map[string]Factory[T]),
		instances: make(map[string]T),
	}
}

// RegisterFactory registers factory under name, replacing any previous one.
func (r *Registry[T]) RegisterFactory(name string, factory Factory[T]) {
	r.mu.Lock()
	r.factories[name] = factory
	r.mu.Unlock()
}

// Create builds a provider with the named factory. An unknown name yields a
// NOT_FOUND error.
func (r *Registry[T]) Create(name string, cfg map[string]any) (T, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		var zero T
		return zero, goerrors.NotFound("provider factory", name)
	}
	return factory(cfg)
}

// Get returns the instance stored under name.
func (r *Registry[T]) Get(name string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// Set stores instance under name.
func (r *Registry[T]) Set(name string, instance T) {
	r.mu.Lock()
	r.instances[name] = instance
	r.mu.Unlock()
}

// Delete forgets the instance stored under name.
func (r *Registry[T]) Delete(name string) {
	r.mu.Lock()
	delete(r.instances, name)
	r.mu.Unlock()
}

// Instances returns a copy of the stored instances.
func (r *Registry[T]) Instances() map[string]T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return maps.Clone(r.instances)
}

// List returns the factory names in sorted order.
func (r *Registry[T]) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedNames(r.factories)
}
