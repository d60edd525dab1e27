package sources

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the configured adapters. Populated once at startup,
// read-only afterwards.
type Registry struct {
	adapters map[string]Adapter
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
	}
}

func (r *Registry) Register(adapter Adapter) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := adapter.Source()
	if _, exists := r.adapters[name]; exists {
		return fmt.Errorf("adapter for source '%s' already registered", name)
	}
	r.adapters[name] = adapter
	return nil
}

func (r *Registry) Get(source string) (Adapter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	adapter, ok := r.adapters[source]
	return adapter, ok
}

// Names returns the registered source names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
