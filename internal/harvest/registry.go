package harvest

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Registry maps variant names to their implementations.
type Registry struct {
	variants map[string]Variant
	order    []string // insertion order for deterministic iteration
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{variants: make(map[string]Variant)}
}

// Register adds a variant, replacing one with the same name.
func (r *Registry) Register(v Variant) {
	name := v.Name()
	if _, ok := r.variants[name]; !ok {
		r.order = append(r.order, name)
	}
	r.variants[name] = v
}

// Get returns a variant by name.
func (r *Registry) Get(name string) (Variant, error) {
	v, ok := r.variants[name]
	if !ok {
		valid := r.Names()
		sort.Strings(valid)
		return nil, eris.Errorf("harvest: unknown variant %q (valid: %v)", name, valid)
	}
	return v, nil
}

// All returns all variants in registration order.
func (r *Registry) All() []Variant {
	out := make([]Variant, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.variants[name])
	}
	return out
}

// Names returns all variant names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}
