// Package filters provides named chunk predicates for config-driven
// stream selection.
//
// Predicates are plain functions combined with All/Any/Not. A Registry
// maps names to predicates so toolchain configs can refer to them; it is
// populated explicitly at startup rather than through package globals.
// Expression builds predicates from expr-lang source over a small chunk
// environment.
package filters

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/arfstream/datablock"
	"github.com/c360/arfstream/errors"
)

// Predicate reports whether a chunk should be passed on.
type Predicate func(datablock.Chunk) bool

// Registry maps filter names to predicates.
type Registry struct {
	mu    sync.RWMutex
	preds map[string]Predicate
}

// NewRegistry returns an empty filter registry.
func NewRegistry() *Registry {
	return &Registry{preds: make(map[string]Predicate)}
}

// Register adds a named predicate. Registering an empty name, a nil
// predicate, or a name already present is an error.
func (r *Registry) Register(name string, p Predicate) error {
	if name == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "FilterRegistry", "Register", "register filter with empty name")
	}
	if p == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "FilterRegistry", "Register", "register nil filter "+name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.preds[name]; ok {
		return fmt.Errorf("%w: filter %q", errors.ErrDuplicateID, name)
	}
	r.preds[name] = p
	return nil
}

// Lookup returns the predicate registered under name.
func (r *Registry) Lookup(name string) (Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.preds[name]
	return p, ok
}

// Names returns the registered filter names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.preds))
	for name := range r.preds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AllTags matches chunks carrying every given tag.
func AllTags(tags ...datablock.Tag) Predicate {
	return func(c datablock.Chunk) bool {
		return c.Tags.HasAll(tags...)
	}
}

// AnyTag matches chunks carrying at least one of the given tags.
func AnyTag(tags ...datablock.Tag) Predicate {
	return func(c datablock.Chunk) bool {
		return c.Tags.HasAny(tags...)
	}
}

// All combines predicates conjunctively. With no arguments it matches
// everything.
func All(ps ...Predicate) Predicate {
	return func(c datablock.Chunk) bool {
		for _, p := range ps {
			if !p(c) {
				return false
			}
		}
		return true
	}
}

// Any combines predicates disjunctively. With no arguments it matches
// nothing.
func Any(ps ...Predicate) Predicate {
	return func(c datablock.Chunk) bool {
		for _, p := range ps {
			if p(c) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate.
func Not(p Predicate) Predicate {
	return func(c datablock.Chunk) bool {
		return !p(c)
	}
}
