package replacement

import (
	"fmt"
	"maps"
	"slices"
)

// Names of the built-in policies.
const (
	// PolicyEmissary is Emissary with stack recency and the address
	// classifier.
	PolicyEmissary = "emissary"

	// PolicyEmissaryHit is Emissary with clock recency where lines earn
	// protection by hitting.
	PolicyEmissaryHit = "emissary-hit"

	// PolicyLRU is plain least-recently-used replacement.
	PolicyLRU = "lru"
)

// A Constructor builds a policy for the given geometry.
type Constructor func(g Geometry) (Policy, error)

// Registry maps policy names to constructors.
type Registry struct {
	constructors map[string]Constructor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register adds a constructor under name.
func (r *Registry) Register(name string, c Constructor) error {
	if _, ok := r.constructors[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicatePolicy, name)
	}
	r.constructors[name] = c
	return nil
}

// New builds the policy registered under name.
func (r *Registry) New(name string, g Geometry) (Policy, error) {
	c, ok := r.constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
	return c(g)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.constructors[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.constructors))
}

// RegisterBuiltins adds the policies shipped with this package. Hosts call
// it once at startup.
func RegisterBuiltins(r *Registry) error {
	builtins := []struct {
		name string
		opts []EmissaryOption
	}{
		{PolicyEmissary, []EmissaryOption{
			WithEncoding(StackEncoding),
			WithProtectionRule(RecencyRefresh{Classify: AddressClassifier}),
		}},
		{PolicyEmissaryHit, []EmissaryOption{
			WithEncoding(ClockEncoding),
			WithProtectionRule(ProtectOnHit{}),
		}},
		{PolicyLRU, []EmissaryOption{
			WithEncoding(StackEncoding),
			WithProtectionRule(RecencyRefresh{Classify: NeverProtect}),
		}},
	}

	for _, b := range builtins {
		opts := b.opts
		err := r.Register(b.name, func(g Geometry) (Policy, error) {
			p, err := NewEmissary(g, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
