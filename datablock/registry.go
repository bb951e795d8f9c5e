package datablock

import (
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/c360/arfstream/errors"
)

// Properties holds per-id metadata recorded when a chunk id is registered.
// The "uuid" key is always present after registration.
type Properties map[string]any

// Registry tracks the chunk ids seen during one traversal and detects
// duplicate registrations. It is scoped: construct one per traversal and pass
// it to the components that need it.
type Registry struct {
	mu  sync.Mutex
	ids map[string]Properties
}

// NewRegistry returns an empty id registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]Properties)}
}

// Add registers id with the given properties, stamping a generated uuid when
// the caller does not supply one. Registering an id twice fails with
// ErrDuplicateID.
func (r *Registry) Add(id string, props Properties) (Properties, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.ids[id]; ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrDuplicateID, id)
	}

	stored := make(Properties, len(props)+1)
	for k, v := range props {
		stored[k] = v
	}
	if _, ok := stored["uuid"]; !ok {
		stored["uuid"] = uuid.New().String()
	}
	r.ids[id] = stored
	return stored, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

// Properties returns the properties recorded for id.
func (r *Registry) Properties(id string) (Properties, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	props, ok := r.ids[id]
	return props, ok
}

// IDs returns the registered ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of registered ids.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}
