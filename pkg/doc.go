// Package pkg provides the core libraries for apigraph.
//
// # Overview
//
// apigraph turns JSON:API compound documents into object graphs. Every
// resource, whether primary or included, becomes exactly one model instance,
// and relationships become direct references between those instances. Shared
// and cyclic references are preserved: if two articles have the same author,
// both point at the same author model.
//
// # Architecture
//
// The typical data flow:
//
//	raw bytes
//	    ↓
//	[jsonapi] (decode and validate the document)
//	    ↓
//	[graph] (index resources, materialize models, wire relations)
//	    ↓
//	[response] (single or collection view, included list, export)
//	    ↓
//	[render] (DOT, SVG, PNG)
//
// # Quick Start
//
//	schema, _ := model.NewSchema(map[string]model.TypeDef{
//	    "articles": {Relations: map[string]model.RelationDef{
//	        "author": {Kind: "to-one", Target: "people"},
//	    }},
//	    "people": {},
//	})
//	articles, _ := schema.Lookup("articles")
//
//	resp, err := response.Decode(raw, articles)
//	if err != nil {
//	    return err
//	}
//	article := resp.Primary()[0].(*model.Generic)
//	author := article.One("author")
//
// # Main Packages
//
// [model] - The Model contract, relation kinds, and the schema-driven
// Generic model used when no hand-written types exist.
//
// [jsonapi] - Wire types for documents, resources, linkage and error
// objects.
//
// [graph] - ResourceIndex, ModelIndex and the Builder that materializes
// models iteratively, so deep or cyclic graphs never grow the call stack.
//
// [response] - Single and Collection responses built on top of [graph].
//
// [client] - HTTP client for JSON:API servers with caching, retries and
// request de-duplication.
//
// [cache] - File, Redis and null caches shared by the client and server.
//
// [render] - Node-link diagrams of materialized graphs via Graphviz.
//
// [observability] - Hooks for materialization, rendering, cache and HTTP
// events.
//
// [errors] - Coded errors shared by every package.
//
// [model]: https://pkg.go.dev/github.com/matzehuels/apigraph/pkg/model
// [jsonapi]: https://pkg.go.dev/github.com/matzehuels/apigraph/pkg/jsonapi
// [graph]: https://pkg.go.dev/github.com/matzehuels/apigraph/pkg/graph
// [response]: https://pkg.go.dev/github.com/matzehuels/apigraph/pkg/response
// [client]: https://pkg.go.dev/github.com/matzehuels/apigraph/pkg/client
// [cache]: https://pkg.go.dev/github.com/matzehuels/apigraph/pkg/cache
// [render]: https://pkg.go.dev/github.com/matzehuels/apigraph/pkg/render
// [observability]: https://pkg.go.dev/github.com/matzehuels/apigraph/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/apigraph/pkg/errors
package pkg
