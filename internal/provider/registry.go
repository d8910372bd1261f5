package provider

import (
	"fmt"
	"net/http"
	"sync"
)

// Factory creates an adapter instance from client credentials.
type Factory func(cfg Config, hc *http.Client) Adapter

// Registry maps provider names to factories and caches built adapters.
// It is the single point of extension for adding a fifth provider.
type Registry struct {
	mu        sync.RWMutex
	factories map[Name]Factory
	cache     map[Name]Adapter

	resolver ConfigResolver
	http     *http.Client
}

// NewRegistry creates a registry. Factories are registered at startup,
// one call per supported provider.
func NewRegistry(resolver ConfigResolver, hc *http.Client) *Registry {
	if hc == nil {
		hc = DefaultHTTPClient()
	}
	return &Registry{
		factories: make(map[Name]Factory),
		cache:     make(map[Name]Adapter),
		resolver:  resolver,
		http:      hc,
	}
}

// Register adds a factory for a provider name.
func (r *Registry) Register(n Name, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[n] = f
}

// Lookup returns the adapter for a provider, building it on first use.
// Fails with ErrUnsupported when no factory is registered for the name.
func (r *Registry) Lookup(n Name) (Adapter, error) {
	r.mu.RLock()
	if a, ok := r.cache[n]; ok {
		r.mu.RUnlock()
		return a, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.cache[n]; ok {
		return a, nil
	}
	f, ok := r.factories[n]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, n)
	}
	a := f(r.resolver.ProviderConfig(n), r.http)
	r.cache[n] = a
	return a, nil
}

// Available returns the registered provider names.
func (r *Registry) Available() []Name {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]Name, 0, len(r.factories))
	for _, n := range All() {
		if _, ok := r.factories[n]; ok {
			names = append(names, n)
		}
	}
	return names
}
