package gateway

import "fmt"

// Registry holds the configured gateway adapters
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates an empty adapter registry
func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

// Register adds an adapter under its own name
func (r *Registry) Register(adapter Adapter) {
	r.adapters[adapter.Name()] = adapter
}

// Get retrieves an adapter by gateway identifier
func (r *Registry) Get(name string) (Adapter, error) {
	adapter, exists := r.adapters[name]
	if !exists {
		return nil, fmt.Errorf("payment gateway '%s' not configured", name)
	}
	return adapter, nil
}

// List returns all registered gateway identifiers
func (r *Registry) List() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
