// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package templates

import (
	"slices"
	"sync"
)

// Registry maps template names to factories. The set of templates is given
// explicitly at construction; there is no package-level registration.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates a registry holding a copy of the given factories.
func NewRegistry(factories map[string]Factory) *Registry {
	r := &Registry{factories: make(map[string]Factory, len(factories))}
	for name, f := range factories {
		r.factories[name] = f
	}
	return r
}

// Register adds or replaces the factory for name.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered template names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve builds the template selected by params["template"]. It returns a
// *NotImplementedError when the name is empty or unregistered, and whatever
// the factory returns otherwise.
func (r *Registry) Resolve(params Params) (Template, error) {
	name := params.Name()

	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok || f == nil {
		return nil, &NotImplementedError{Name: name}
	}
	return f(params.Clone())
}
