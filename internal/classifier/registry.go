package classifier

import "github.com/roach88/taskplan/internal/ir"

// Registry is an immutable snapshot of the category and deliverable
// registries for one planning run. Inactive entries are kept so the
// classifier can tell "inactive" apart from "unknown".
type Registry struct {
	categories   map[string]ir.RegistryEntry
	deliverables map[string]ir.RegistryEntry
}

// NewRegistry indexes the given entries by key. Later duplicates win.
func NewRegistry(categories, deliverables []ir.RegistryEntry) *Registry {
	r := &Registry{
		categories:   make(map[string]ir.RegistryEntry, len(categories)),
		deliverables: make(map[string]ir.RegistryEntry, len(deliverables)),
	}
	for _, c := range categories {
		r.categories[c.Key] = c
	}
	for _, d := range deliverables {
		r.deliverables[d.Key] = d
	}
	return r
}

// Category looks up a category entry by key.
func (r *Registry) Category(key string) (ir.RegistryEntry, bool) {
	e, ok := r.categories[key]
	return e, ok
}

// Deliverable looks up a deliverable entry by key.
func (r *Registry) Deliverable(key string) (ir.RegistryEntry, bool) {
	e, ok := r.deliverables[key]
	return e, ok
}
