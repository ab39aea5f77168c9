package model

// Registry resolves wire type names to model types.
type Registry interface {
	Lookup(name string) (*Type, bool)
}

// TypeMap is a Registry over a fixed set of hand-written types.
type TypeMap map[string]*Type

// NewTypeMap indexes types by name. Later types win on duplicate names.
func NewTypeMap(types ...*Type) TypeMap {
	m := make(TypeMap, len(types))
	for _, t := range types {
		m[t.Name()] = t
	}
	return m
}

// Lookup returns the type registered under name.
func (m TypeMap) Lookup(name string) (*Type, bool) {
	t, ok := m[name]
	return t, ok
}

// Ensure TypeMap implements Registry.
var _ Registry = TypeMap(nil)
