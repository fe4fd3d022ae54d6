package entitytype

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrNotFound is returned when an entity type is not registered
var ErrNotFound = errors.New("entity type not found")

// Provider gives read access to entity type definitions and bundle info
type Provider interface {
	// Definition returns the entity type, or an error wrapping ErrNotFound
	Definition(id string) (*Definition, error)

	// Definitions returns every registered entity type ordered by ID
	Definitions() []*Definition

	// Bundles returns the bundle names of an entity type in a stable order
	Bundles(id string) []string
}

// Registry manages all entity type definitions of the application
type Registry struct {
	types   map[string]*Definition
	bundles map[string][]string
	mu      sync.RWMutex
}

// NewRegistry creates a new entity type registry
func NewRegistry() *Registry {
	return &Registry{
		types:   make(map[string]*Definition),
		bundles: make(map[string][]string),
	}
}

// Register registers a new entity type
func (r *Registry) Register(def *Definition) error {
	if def == nil || def.ID == "" {
		return fmt.Errorf("entity type must have an id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[def.ID]; exists {
		return fmt.Errorf("entity type %s is already registered", def.ID)
	}
	r.types[def.ID] = def
	return nil
}

// RegisterBundle adds a bundle to a registered entity type
func (r *Registry) RegisterBundle(entityTypeID, bundle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[entityTypeID]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, entityTypeID)
	}
	for _, b := range r.bundles[entityTypeID] {
		if b == bundle {
			return nil
		}
	}
	r.bundles[entityTypeID] = append(r.bundles[entityTypeID], bundle)
	return nil
}

// Definition retrieves an entity type by ID
func (r *Registry) Definition(id string) (*Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, exists := r.types[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return def, nil
}

// Definitions returns all entity types ordered by ID
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]*Definition, 0, len(r.types))
	for _, def := range r.types {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].ID < defs[j].ID })
	return defs
}

// Bundles returns the registered bundles of an entity type. An entity type
// without registered bundles has a single bundle named after itself.
func (r *Registry) Bundles(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, exists := r.types[id]; !exists {
		return nil
	}
	bundles := r.bundles[id]
	if len(bundles) == 0 {
		return []string{id}
	}
	out := make([]string, len(bundles))
	copy(out, bundles)
	return out
}

// Count returns the number of registered entity types
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.types)
}
