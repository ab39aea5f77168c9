// Package jsonapi defines the wire representation of JSON:API retrieval
// responses.
//
// # Overview
//
// A retrieval response carries a primary data section (a single resource,
// an array of resources, or null) plus an optional side-loaded included
// array:
//
//	{
//	  "data": {"type": "articles", "id": "1", "relationships": {...}},
//	  "included": [{"type": "people", "id": "9", "attributes": {...}}]
//	}
//
// [Body] keeps the primary data raw until the caller decides which shape it
// expects, via [Body.One] or [Body.Many]. Relationship data is decoded into a
// [Linkage] which preserves the difference between an absent member, an
// explicit null, a single [ResourceStub] and an array of stubs.
//
// This package performs no graph work. Turning documents into wired model
// values is the job of [graph] and [response].
//
// [graph]: github.com/matzehuels/apigraph/pkg/graph
// [response]: github.com/matzehuels/apigraph/pkg/response
package jsonapi
