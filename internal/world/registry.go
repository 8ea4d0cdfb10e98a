package world

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

const defaultNamespace = "minecraft:"

// ErrRegistryClosed is returned once the owning session has been stopped.
var ErrRegistryClosed = errors.New("registry closed")

// Registry resolves block states and biomes to canonical, interned strings.
// Block states render as "namespace:name[key=value,...]" with sorted keys.
type Registry struct {
	mu      sync.Mutex
	closed  bool
	states  map[string]string
	biomes  map[string]string
	lookups int
}

// RegistryStats reports interning activity.
type RegistryStats struct {
	BlockStates int
	Biomes      int
	Lookups     int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		states: make(map[string]string),
		biomes: make(map[string]string),
	}
}

// BlockState returns the canonical string for a block name and its properties.
func (r *Registry) BlockState(name string, properties map[string]string) (string, error) {
	key := formatBlockState(name, properties)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrRegistryClosed
	}
	r.lookups++
	if interned, ok := r.states[key]; ok {
		return interned, nil
	}
	r.states[key] = key
	return key, nil
}

// Biome returns the canonical, namespaced biome identifier.
func (r *Registry) Biome(name string) (string, error) {
	key := namespaced(name, "plains")

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", ErrRegistryClosed
	}
	r.lookups++
	if interned, ok := r.biomes[key]; ok {
		return interned, nil
	}
	r.biomes[key] = key
	return key, nil
}

// Stats returns a copy of the registry counters.
func (r *Registry) Stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegistryStats{BlockStates: len(r.states), Biomes: len(r.biomes), Lookups: r.lookups}
}

// Close drops the interned tables. Further lookups fail.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.states = nil
	r.biomes = nil
}

func formatBlockState(name string, properties map[string]string) string {
	name = namespaced(name, "air")
	if len(properties) == 0 {
		return name
	}
	keys := make([]string, 0, len(properties))
	for k := range properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('[')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(properties[k])
	}
	b.WriteByte(']')
	return b.String()
}

func namespaced(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultNamespace + fallback
	}
	if strings.Contains(name, ":") {
		return name
	}
	return defaultNamespace + name
}
