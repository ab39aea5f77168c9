// Package model defines the contract between materialized domain values and
// the graph builder.
//
// # Overview
//
// A concrete model type is described by a [Type]: a wire type name plus a
// no-argument constructor. Instances implement [Model]:
//
//   - PopulateFromResource fills attributes from the raw resource
//   - Relation is the relation accessor: it returns the [Relation]
//     descriptor declared under a relationship name
//   - SetRelation stores a resolved relation value
//
// A [Relation] is a tagged variant with an explicit [RelationKind]
// discriminator and a target [Type]. [ToOne] and [ToMany] build the two
// supported variants.
//
// # Example
//
//	var PersonType = model.NewType("people", func() model.Model { return &Person{} })
//
//	func (a *Article) Relation(name string) model.Relation {
//	    switch name {
//	    case "author":
//	        return model.ToOne(PersonType)
//	    }
//	    return nil
//	}
//
//	func (a *Article) SetRelation(name string, v any) (err error) {
//	    switch name {
//	    case "author":
//	        a.Author, err = model.As[*Person](v)
//	    }
//	    return err
//	}
//
// For payloads without hand-written types, [Schema] and [Generic] provide a
// schema-driven model.
package model

import (
	"strconv"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/jsonapi"
)

// Model is a materialized domain value.
type Model interface {
	// PopulateFromResource copies attributes out of the raw document.
	PopulateFromResource(doc *jsonapi.Resource) error
	// Relation returns the descriptor for a relationship name,
	// or nil if the model declares no such relation.
	Relation(name string) Relation
	// SetRelation stores a resolved relation: a Model for to-one
	// relations, a []Model for to-many relations.
	SetRelation(name string, value any) error
}

// Type names a concrete model type and constructs empty instances of it.
// Types are compared by identity.
type Type struct {
	name string
	new  func() Model
}

// NewType returns a Type for the given wire type name.
func NewType(name string, fn func() Model) *Type {
	return &Type{name: name, new: fn}
}

// Name returns the wire type name.
func (t *Type) Name() string { return t.name }

// New constructs an empty instance.
func (t *Type) New() Model { return t.new() }

// String implements fmt.Stringer.
func (t *Type) String() string { return t.name }

// RelationKind discriminates relation variants.
type RelationKind int

const (
	// KindToOne marks a relation holding at most one model.
	KindToOne RelationKind = iota + 1
	// KindToMany marks a relation holding an ordered sequence of models.
	KindToMany
)

// String returns "to-one", "to-many", or a placeholder for unknown kinds.
func (k RelationKind) String() string {
	switch k {
	case KindToOne:
		return "to-one"
	case KindToMany:
		return "to-many"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseRelationKind converts "to-one" or "to-many" into a RelationKind.
func ParseRelationKind(s string) (RelationKind, error) {
	switch s {
	case "to-one", "one":
		return KindToOne, nil
	case "to-many", "many":
		return KindToMany, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidSchema, "unknown relation kind %q (want to-one or to-many)", s)
	}
}

// Relation describes one relationship slot of a model.
type Relation interface {
	Kind() RelationKind
	Target() *Type
}

type relation struct {
	kind   RelationKind
	target *Type
}

func (r relation) Kind() RelationKind { return r.kind }
func (r relation) Target() *Type      { return r.target }

// ToOne declares a to-one relation to models of type t.
func ToOne(t *Type) Relation { return relation{kind: KindToOne, target: t} }

// ToMany declares a to-many relation to models of type t.
func ToMany(t *Type) Relation { return relation{kind: KindToMany, target: t} }

// As converts a to-one relation value into a concrete model type.
func As[T Model](v any) (T, error) {
	var zero T
	m, ok := v.(T)
	if !ok {
		return zero, errors.New(errors.ErrCodeInvalidInput, "relation value %T is not %T", v, zero)
	}
	return m, nil
}

// AsSlice converts a to-many relation value into a slice of a concrete model type.
func AsSlice[T Model](v any) ([]T, error) {
	ms, ok := v.([]Model)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "relation value %T is not a model sequence", v)
	}
	out := make([]T, 0, len(ms))
	for _, m := range ms {
		t, err := As[T](m)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
