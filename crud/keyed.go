package crud

// Keyed hands out resources by application key instead of address.
type Keyed[K any] struct {
	provider *Provider
	address  func(K) string
}

// KeyedBy returns a view of p that maps keys to addresses with address.
func KeyedBy[K any](p *Provider, address func(K) string) *Keyed[K] {
	return &Keyed[K]{provider: p, address: address}
}

// Get returns the resource for key.
func (k *Keyed[K]) Get(key K) *Resource {
	return k.provider.Get(k.address(key))
}
