package providers

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"nathanbeddoewebdev/sdcomfy/internal/domain"
	"nathanbeddoewebdev/sdcomfy/internal/services/auth"
	"nathanbeddoewebdev/sdcomfy/internal/util"
)

// Target selects where a provider operates. Empty fields fall back to the
// provider's own defaults.
type Target struct {
	Region  string
	Profile string
}

// Factory builds a provider for a target. Credentials come from store when
// it holds them, else from the provider's own default chain.
type Factory func(store auth.Store, target Target) (domain.Provider, error)

var (
	mu       sync.RWMutex
	registry = map[string]Factory{}
)

// Register adds a provider under name. It panics on an empty name, a nil
// factory or a duplicate, all of which are programming errors.
func Register(name string, factory Factory) {
	normalizedName := util.NormalizeKey(name)
	if normalizedName == "" {
		panic("providers: empty provider name")
	}
	if factory == nil {
		panic("providers: nil factory")
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[normalizedName]; exists {
		panic(fmt.Sprintf("providers: provider %q already registered", name))
	}

	registry[normalizedName] = factory
}

// Get builds the provider registered under name for target.
func Get(name string, store auth.Store, target Target) (domain.Provider, error) {
	mu.RLock()
	factory, ok := registry[util.NormalizeKey(name)]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("providers: unknown provider %q (registered: %s)", name, strings.Join(List(), ", "))
	}

	provider, err := factory(store, target)
	if err != nil {
		return nil, fmt.Errorf("providers: %s: %w", util.NormalizeKey(name), err)
	}
	return provider, nil
}

// Reset clears the provider registry. Intended for use in tests only.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = map[string]Factory{}
}

// List returns the registered provider names, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
