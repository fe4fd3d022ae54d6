// Package extension provides the contribution and alter points extensions use
// to add to or change field metadata.
package extension

import (
	"fmt"
	"sync"
)

// Implementation is one extension's callback registered for a hook
type Implementation struct {
	Hook     string
	Provider string
	Fn       any
}

// Registry keeps hook implementations in registration order
type Registry struct {
	hooks  map[string][]*Implementation
	alters map[string][]*Implementation
	mu     sync.RWMutex
}

// NewRegistry creates a new extension registry
func NewRegistry() *Registry {
	return &Registry{
		hooks:  make(map[string][]*Implementation),
		alters: make(map[string][]*Implementation),
	}
}

// Register adds a contribution implementation for hook
func (r *Registry) Register(hook, provider string, fn any) {
	r.add(r.hooks, hook, provider, fn)
}

// RegisterAlter adds an alter implementation for hook
func (r *Registry) RegisterAlter(hook, provider string, fn any) {
	r.add(r.alters, hook, provider, fn)
}

func (r *Registry) add(into map[string][]*Implementation, hook, provider string, fn any) {
	if fn == nil {
		panic(fmt.Sprintf("extension: nil implementation of %s for %s", hook, provider))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	into[hook] = append(into[hook], &Implementation{Hook: hook, Provider: provider, Fn: fn})
}

// Implementations returns the contribution implementations of hook
func (r *Registry) Implementations(hook string) []*Implementation {
	return r.snapshot(r.hooks, hook)
}

// AlterImplementations returns the alter implementations of hook
func (r *Registry) AlterImplementations(hook string) []*Implementation {
	return r.snapshot(r.alters, hook)
}

// HasImplementations returns true if any contribution or alter is registered for hook
func (r *Registry) HasImplementations(hook string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.hooks[hook]) > 0 || len(r.alters[hook]) > 0
}

// Providers returns the names of extensions contributing to hook, in order
func (r *Registry) Providers(hook string) []string {
	impls := r.Implementations(hook)
	out := make([]string, 0, len(impls))
	for _, impl := range impls {
		out = append(out, impl.Provider)
	}
	return out
}

func (r *Registry) snapshot(from map[string][]*Implementation, hook string) []*Implementation {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	impls := from[hook]
	out := make([]*Implementation, len(impls))
	copy(out, impls)
	return out
}

// InvokeAllWith calls invoke for every contribution of hook in registration
// order. Implementations whose function is not an F are an error. The first
// failing call stops the iteration.
func InvokeAllWith[F any](r *Registry, hook string, invoke func(fn F, provider string) error) error {
	return run(r.Implementations(hook), hook, invoke)
}

// Alter calls alter for every alter implementation of hook in registration
// order.
func Alter[F any](r *Registry, hook string, alter func(fn F, provider string) error) error {
	return run(r.AlterImplementations(hook), hook+"_alter", alter)
}

func run[F any](impls []*Implementation, hook string, call func(fn F, provider string) error) error {
	for _, impl := range impls {
		fn, ok := impl.Fn.(F)
		if !ok {
			return fmt.Errorf("hook %s (%s) has unexpected implementation type %T", hook, impl.Provider, impl.Fn)
		}
		if err := call(fn, impl.Provider); err != nil {
			return fmt.Errorf("hook %s (%s) failed: %w", hook, impl.Provider, err)
		}
	}
	return nil
}
