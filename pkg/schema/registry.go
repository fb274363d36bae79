package schema

import (
	"fmt"
	"sync"
)

// Registry manages every entity of the schema. It is safe for concurrent
// use and immutable once the host application has finished registering.
type Registry struct {
	entities map[string]*Entity
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]*Entity)}
}

// Register adds an entity to the registry.
func (r *Registry) Register(e *Entity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entities[e.Name]; exists {
		return fmt.Errorf("entity %s is already registered", e.Name)
	}
	r.entities[e.Name] = e
	return nil
}

// MustRegister registers entities and panics on duplicates. Intended
// for static schema declarations at startup.
func (r *Registry) MustRegister(entities ...*Entity) {
	for _, e := range entities {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
}

// Validate checks that every relation targets a registered entity and
// that declared inverses exist on the target.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entities {
		for _, rel := range e.Relations {
			target, ok := r.entities[rel.Target]
			if !ok {
				return fmt.Errorf("entity %s: relation %s targets unknown entity %s", e.Name, rel.Name, rel.Target)
			}
			if rel.Inverse == "" {
				continue
			}
			inv, ok := target.Relations[rel.Inverse]
			if !ok || inv.ToMany || inv.Target != e.Name {
				return fmt.Errorf("entity %s: relation %s declares invalid inverse %s on %s", e.Name, rel.Name, rel.Inverse, rel.Target)
			}
		}
	}
	return nil
}

// Get retrieves an entity by name.
func (r *Registry) Get(name string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[name]
	return e, ok
}

// List returns the names of all registered entities.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entities))
	for name := range r.entities {
		names = append(names, name)
	}
	return names
}

// Attributes implements Introspector.
func (r *Registry) Attributes(entity string) []string {
	e, ok := r.Get(entity)
	if !ok {
		return nil
	}
	return e.Attributes()
}

// HasAttribute implements Introspector.
func (r *Registry) HasAttribute(entity, name string) bool {
	e, ok := r.Get(entity)
	return ok && e.HasAttribute(name)
}

// IsRelation implements Introspector.
func (r *Registry) IsRelation(entity, name string) bool {
	e, ok := r.Get(entity)
	if !ok {
		return false
	}
	_, ok = e.Relations[name]
	return ok
}

// IsToMany implements Introspector.
func (r *Registry) IsToMany(entity, name string) bool {
	e, ok := r.Get(entity)
	if !ok {
		return false
	}
	rel, ok := e.Relations[name]
	return ok && rel.ToMany
}

// RelationTarget implements Introspector.
func (r *Registry) RelationTarget(entity, name string) (string, bool) {
	e, ok := r.Get(entity)
	if !ok {
		return "", false
	}
	rel, ok := e.Relations[name]
	if !ok {
		return "", false
	}
	return rel.Target, true
}

// PK implements Introspector.
func (r *Registry) PK(entity string) string {
	e, ok := r.Get(entity)
	if !ok {
		return "id"
	}
	return e.PK
}
