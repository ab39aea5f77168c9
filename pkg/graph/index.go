package graph

import (
	"github.com/matzehuels/apigraph/pkg/jsonapi"
	"github.com/matzehuels/apigraph/pkg/model"
)

// Key identifies a resource by type and id.
type Key struct {
	Type string
	ID   string
}

// KeyOf returns the key of a resource document.
func KeyOf(doc *jsonapi.Resource) Key {
	return Key{Type: doc.Type, ID: doc.ID}
}

// String returns "type/id".
func (k Key) String() string { return k.Type + "/" + k.ID }

// ResourceIndex maps (type, id) to raw resource documents.
// It is read-only once built.
type ResourceIndex struct {
	byType map[string]map[string]*jsonapi.Resource
	count  int
}

// BuildResourceIndex indexes every included document, then every primary
// document. A key seen twice keeps the last document indexed, so a primary
// document shadows an included copy of itself.
//
// The index points into the given slices; they must not be modified while
// the index is in use.
func BuildResourceIndex(included, primary []jsonapi.Resource) *ResourceIndex {
	ix := &ResourceIndex{byType: make(map[string]map[string]*jsonapi.Resource)}
	for i := range included {
		ix.index(&included[i])
	}
	for i := range primary {
		ix.index(&primary[i])
	}
	return ix
}

func (ix *ResourceIndex) index(doc *jsonapi.Resource) {
	bucket, ok := ix.byType[doc.Type]
	if !ok {
		bucket = make(map[string]*jsonapi.Resource)
		ix.byType[doc.Type] = bucket
	}
	if _, exists := bucket[doc.ID]; !exists {
		ix.count++
	}
	bucket[doc.ID] = doc
}

// Lookup returns the document indexed under (typ, id).
func (ix *ResourceIndex) Lookup(typ, id string) (*jsonapi.Resource, bool) {
	doc, ok := ix.byType[typ][id]
	return doc, ok
}

// HasType reports whether any document of typ was indexed.
func (ix *ResourceIndex) HasType(typ string) bool {
	_, ok := ix.byType[typ]
	return ok
}

// Len returns the number of distinct keys indexed.
func (ix *ResourceIndex) Len() int { return ix.count }

// ModelIndex memoizes materialized models by (type, id).
// Entries are never replaced once set.
type ModelIndex struct {
	byType map[string]map[string]model.Model
	order  []Key
}

// NewModelIndex returns an empty ModelIndex.
func NewModelIndex() *ModelIndex {
	return &ModelIndex{byType: make(map[string]map[string]model.Model)}
}

// Set registers m under k. If k already holds a model, the existing entry is
// kept and Set returns false.
func (ix *ModelIndex) Set(k Key, m model.Model) bool {
	bucket, ok := ix.byType[k.Type]
	if !ok {
		bucket = make(map[string]model.Model)
		ix.byType[k.Type] = bucket
	}
	if _, exists := bucket[k.ID]; exists {
		return false
	}
	bucket[k.ID] = m
	ix.order = append(ix.order, k)
	return true
}

// Get returns the model registered under k.
func (ix *ModelIndex) Get(k Key) (model.Model, bool) {
	m, ok := ix.byType[k.Type][k.ID]
	return m, ok
}

// Len returns the number of materialized models.
func (ix *ModelIndex) Len() int { return len(ix.order) }

// Keys returns all keys in materialization order.
func (ix *ModelIndex) Keys() []Key {
	out := make([]Key, len(ix.order))
	copy(out, ix.order)
	return out
}
