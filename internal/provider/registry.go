// internal/provider/registry.go
package provider

import (
	"sync"
)

// Registry holds the configured delivery providers. A provider marked
// unusable (repeated auth failures) stays registered but is skipped by
// selection until an operator intervenes.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	unusable  map[string]bool
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{
		providers: make(map[string]Provider),
		unusable:  make(map[string]bool),
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get returns the named provider if it exists and is usable.
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	if !ok || r.unusable[name] {
		return nil, false
	}
	return p, true
}

// UsableNames lists providers not marked unusable, in no particular order.
func (r *Registry) UsableNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := []string{}
	for name := range r.providers {
		if !r.unusable[name] {
			names = append(names, name)
		}
	}
	return names
}

// MarkUnusable takes a provider out of rotation.
func (r *Registry) MarkUnusable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.unusable[name] = true
}

// MarkUsable puts a provider back into rotation.
func (r *Registry) MarkUsable(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.unusable, name)
}
