package schema

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registry   = make(map[string]Set)
	registryMu sync.RWMutex
)

// Register adds a field set to the registry.
// Panics if a set with the same name is already registered.
func Register(s Set) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[s.Name]; exists {
		panic(fmt.Sprintf("field set already registered: %s", s.Name))
	}
	registry[s.Name] = s
}

// RegisterAll registers every set, validating each first.
func RegisterAll(sets []Set) error {
	for i := range sets {
		if err := sets[i].normalize(); err != nil {
			return err
		}
	}
	for _, s := range sets {
		Register(s)
	}
	return nil
}

// Get returns a field set by name.
func Get(name string) (Set, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	s, ok := registry[name]
	return s, ok
}

// Default returns the set to use when a caller names none: the only
// registered set, or the first by name.
func Default() (Set, bool) {
	all := All()
	if len(all) == 0 {
		return Set{}, false
	}
	return all[0], true
}

// All returns all registered sets sorted by name.
func All() []Set {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Set, 0, len(registry))
	for _, s := range registry {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Count returns the number of registered sets.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered sets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]Set)
}
