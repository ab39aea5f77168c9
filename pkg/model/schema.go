package model

import (
	"maps"
	"slices"

	"github.com/matzehuels/apigraph/pkg/errors"
)

// RelationDef declares one relation of a schema type.
type RelationDef struct {
	Kind   string `json:"kind" toml:"kind" yaml:"kind"`       // "to-one" or "to-many"
	Target string `json:"target" toml:"target" yaml:"target"` // Wire type name of the related resources
}

// TypeDef declares the relations of one wire type.
type TypeDef struct {
	Relations map[string]RelationDef `json:"relations,omitempty" toml:"relations" yaml:"relations"`
}

// Schema is a Registry of [Generic] model types built from declarations.
//
// A closed schema only knows the declared types and relations. An open schema
// (see [WithOpen]) additionally creates types on demand and infers the kind of
// undeclared relations from the payload, which makes it possible to
// materialize arbitrary JSON:API documents.
//
// Schema is immutable once built and safe for concurrent use.
type Schema struct {
	defs  map[string]TypeDef
	open  bool
	types map[string]*Type
}

// SchemaOption configures a Schema.
type SchemaOption func(*Schema)

// WithOpen makes the schema accept undeclared types and relations.
func WithOpen() SchemaOption {
	return func(s *Schema) { s.open = true }
}

// NewSchema validates defs and returns the corresponding Schema.
// Every relation kind must parse and every relation target must be a
// declared type, unless the schema is open.
func NewSchema(defs map[string]TypeDef, opts ...SchemaOption) (*Schema, error) {
	s := &Schema{
		defs:  make(map[string]TypeDef, len(defs)),
		types: make(map[string]*Type, len(defs)),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, name := range slices.Sorted(maps.Keys(defs)) {
		if err := errors.ValidateTypeName(name); err != nil {
			return nil, err
		}
		def := defs[name]
		for _, rel := range slices.Sorted(maps.Keys(def.Relations)) {
			rd := def.Relations[rel]
			if _, err := ParseRelationKind(rd.Kind); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInvalidSchema, err, "%s.%s", name, rel)
			}
			if _, ok := defs[rd.Target]; !ok && !s.open {
				return nil, errors.New(errors.ErrCodeInvalidSchema, "%s.%s: unknown target type %q", name, rel, rd.Target)
			}
		}
		s.defs[name] = def
		s.types[name] = s.newType(name)
	}
	return s, nil
}

// OpenSchema returns an open schema without declarations.
func OpenSchema() *Schema {
	s, _ := NewSchema(nil, WithOpen())
	return s
}

// Lookup returns the generic model type for name.
// For undeclared names an open schema returns a new type on every call and
// keeps no record of it, so arbitrary payloads cannot grow the schema.
func (s *Schema) Lookup(name string) (*Type, bool) {
	if t, ok := s.types[name]; ok {
		return t, true
	}
	if !s.open || name == "" {
		return nil, false
	}
	return s.newType(name), true
}

// Types returns the declared type names in sorted order.
func (s *Schema) Types() []string {
	return slices.Sorted(maps.Keys(s.defs))
}

// Open reports whether the schema accepts undeclared types.
func (s *Schema) Open() bool { return s.open }

func (s *Schema) newType(name string) *Type {
	return NewType(name, func() Model { return &Generic{schema: s} })
}

// relation resolves a declared relation of typ.
func (s *Schema) relation(typ, name string) (Relation, bool) {
	rd, ok := s.defs[typ].Relations[name]
	if !ok {
		return nil, false
	}
	kind, err := ParseRelationKind(rd.Kind)
	if err != nil {
		return nil, false
	}
	target, ok := s.Lookup(rd.Target)
	if !ok {
		return nil, false
	}
	return relation{kind: kind, target: target}, true
}

// Ensure Schema implements Registry.
var _ Registry = (*Schema)(nil)
