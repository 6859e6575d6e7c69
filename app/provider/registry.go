package provider

import (
	"fmt"
	"sort"
)

// Registry keeps a mapping from provider types to their adapters.
type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter)}
	for _, adapter := range adapters {
		r.Register(adapter)
	}
	return r
}

// DefaultRegistry returns a registry with every built-in adapter.
func DefaultRegistry() *Registry {
	return NewRegistry(NewCurrentsAdapter(), NewNewsAPIAdapter(), NewRSSAdapter())
}

// Register adds or replaces an adapter.
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Type()] = adapter
}

func (r *Registry) Resolve(providerType string) (Adapter, error) {
	if adapter, ok := r.adapters[providerType]; ok {
		return adapter, nil
	}
	return nil, fmt.Errorf("provider type %q is not registered", providerType)
}

func (r *Registry) Has(providerType string) bool {
	_, ok := r.adapters[providerType]
	return ok
}

func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
