package coverage

import (
	"fmt"
	"sort"
	"sync"
)

// Registry manages coverage builders by name.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates a new, empty builder registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Register adds a builder to the registry.
func (r *Registry) Register(b Builder) error {
	if b == nil {
		return fmt.Errorf("cannot register nil builder")
	}
	name := b.Name()
	if name == "" {
		return fmt.Errorf("builder name cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builders[name]; exists {
		return fmt.Errorf("builder already registered: %s", name)
	}

	r.builders[name] = b
	return nil
}

// Get returns a builder by name.
func (r *Registry) Get(name string) (Builder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("builder not found: %s", name)
	}
	return b, nil
}

// List returns all registered builder names (sorted).
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has checks if a builder is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Count returns the number of registered builders.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.builders)
}

// Unregister removes a builder from the registry.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.builders[name]; !ok {
		return fmt.Errorf("builder not found: %s", name)
	}
	delete(r.builders, name)
	return nil
}

// DefaultRegistry holds the built-in tile, cover and stretch builders.
var DefaultRegistry = newDefaultRegistry()

func newDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, b := range []Builder{tileBuilder{}, coverBuilder{}, stretchBuilder{}} {
		if err := r.Register(b); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a builder to the default registry.
func Register(b Builder) error {
	return DefaultRegistry.Register(b)
}

// Get returns a builder from the default registry.
func Get(name string) (Builder, error) {
	return DefaultRegistry.Get(name)
}

// List returns all builder names from the default registry.
func List() []string {
	return DefaultRegistry.List()
}
