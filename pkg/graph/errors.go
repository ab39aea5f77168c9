package graph

import (
	"fmt"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/model"
)

// UnknownRelationKindError reports a relation whose descriptor is neither
// to-one nor to-many, or a relationship the model does not declare at all.
type UnknownRelationKindError struct {
	Resource Key
	Relation string
	// Kind is the discriminator found. It is zero when the model returned
	// no descriptor for the relationship.
	Kind model.RelationKind
}

func (e *UnknownRelationKindError) Error() string {
	if e.Kind == 0 {
		return fmt.Sprintf("%s: relationship %q is not declared by the model", e.Resource, e.Relation)
	}
	return fmt.Sprintf("%s: relationship %q has unknown relation kind %s", e.Resource, e.Relation, e.Kind)
}

// Code implements the coded-error contract of package errors.
func (e *UnknownRelationKindError) Code() errors.Code { return errors.ErrCodeUnknownRelationKind }

// ConsistencyError reports a document that should have been materialized but
// has no entry in the ModelIndex.
type ConsistencyError struct {
	Resource Key
	// Section is "data" or "included".
	Section string
	Index   int
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("%s[%d]: %s was never materialized", e.Section, e.Index, e.Resource)
}

// Code implements the coded-error contract of package errors.
func (e *ConsistencyError) Code() errors.Code { return errors.ErrCodeConsistency }
