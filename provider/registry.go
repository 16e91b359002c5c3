package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Factory builds a provider on demand.
type Factory func() (Provider, error)

var (
	registry = make(map[string]Factory)
	mu       sync.RWMutex
)

// UnknownProviderError is returned by Get for names nobody registered.
type UnknownProviderError struct {
	Name      string
	Available []string
}

func (e *UnknownProviderError) Error() string {
	return fmt.Sprintf("unknown provider: %q (available: %v)", e.Name, e.Available)
}

// Register adds a provider factory to the registry, replacing any factory
// already registered under name. Provider packages call it from init(); the
// binary calls it again to install configured credentials.
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[name] = factory
}

// Get builds the provider registered under name.
func Get(name string) (Provider, error) {
	mu.RLock()
	factory, ok := registry[name]
	mu.RUnlock()

	if !ok {
		return nil, &UnknownProviderError{Name: name, Available: Available()}
	}

	p, err := factory()
	if err != nil {
		return nil, fmt.Errorf("building provider %q: %w", name, err)
	}
	return p, nil
}

// Available returns the sorted names of all registered providers.
func Available() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a provider is registered.
func IsRegistered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[name]
	return ok
}
