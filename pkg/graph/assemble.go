package graph

import (
	"github.com/matzehuels/apigraph/pkg/jsonapi"
	"github.com/matzehuels/apigraph/pkg/model"
)

// AssemblePrimary returns the models of the primary documents, in order.
// Every document must already be materialized.
func AssemblePrimary(models *ModelIndex, docs []jsonapi.Resource) ([]model.Model, error) {
	return assemble(models, docs, "data")
}

// AssembleIncluded returns the models of the included documents, in the
// order of the included array. The result has exactly len(included)
// elements; a (type, id) listed twice yields the same instance twice.
//
// An included document that was never materialized fails with
// CONSISTENCY_ERROR, since no typed model can stand in for it. Run
// [Builder.MaterializeRegistered] first to materialize documents that no
// relationship reaches.
func AssembleIncluded(models *ModelIndex, included []jsonapi.Resource) ([]model.Model, error) {
	return assemble(models, included, "included")
}

func assemble(models *ModelIndex, docs []jsonapi.Resource, section string) ([]model.Model, error) {
	out := make([]model.Model, len(docs))
	for i := range docs {
		key := KeyOf(&docs[i])
		m, ok := models.Get(key)
		if !ok {
			return nil, &ConsistencyError{Resource: key, Section: section, Index: i}
		}
		out[i] = m
	}
	return out, nil
}
