// Package graph materializes JSON:API resource documents into a
// de-duplicated graph of model values.
//
// # Overview
//
// Materialization works on two per-response tables:
//
//   - [ResourceIndex]: (type, id) → raw resource document, built once from
//     the included array and then the primary data
//   - [ModelIndex]: (type, id) → materialized model, append-only
//
// A [Builder] turns a raw document into a model, memoizing through the
// ModelIndex so that every (type, id) is materialized exactly once and every
// relation pointing at it holds the same instance:
//
//	resources := graph.BuildResourceIndex(body.Included, primary)
//	b := graph.NewBuilder(resources, graph.WithLogger(logger))
//	article, err := b.Materialize(&primary[0], ArticleType)
//
// # Cycles
//
// Models are registered in the ModelIndex before their relationships are
// resolved, and resolution runs off an explicit work-list instead of the call
// stack. A cycle (A → B → A) or a self reference (A → A) therefore hits the
// memo and reuses the in-progress instance; traversal depth never grows with
// the length of a relationship path.
//
// # Leniency
//
// Relationship stubs whose documents were not sent in the response (sparse
// includes) are skipped: to-many relations omit them and to-one relations
// stay unset. Relations of an unknown kind fail with
// UNKNOWN_RELATION_KIND, and an included document that was never
// materialized fails assembly with CONSISTENCY_ERROR.
//
// # Export
//
// [Export] converts a materialized graph into the serializable [Graph]
// node-link format used by the CLI, the HTTP server and the renderer.
//
// # Concurrency
//
// Indexes and builders belong to a single response and are not safe for
// concurrent use.
package graph
