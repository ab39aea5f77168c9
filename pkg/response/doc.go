// Package response builds materialized model graphs from JSON:API documents.
//
// # Overview
//
// A response body holds primary data (one resource, or a collection) plus an
// optional included array of side-loaded resources. The two shapes map to
// [Single] and [Collection]; [Decode] picks one from the payload:
//
//	resp, err := response.Decode(raw, ArticleType, response.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	for _, m := range resp.Primary() {
//	    article := m.(*Article)
//	    fmt.Println(article.Title, article.Author.Name)
//	}
//
// # Construction
//
// Construction runs in a fixed order: validate documents, index included
// documents, index primary documents, materialize every primary document,
// assemble the primary models, then assemble the included models. All
// views share one memo table, so a resource referenced from the primary data
// and listed in included is the same Go value everywhere.
//
// Construction either succeeds completely or returns a nil response and the
// error. Errors carry codes from package errors:
//
//   - INVALID_DOCUMENT: malformed JSON or a resource without type or id
//   - API_ERROR: the document holds top-level errors and no data
//   - UNKNOWN_RELATION_KIND: a model declared a relation the builder cannot wire
//   - CONSISTENCY_ERROR: an included resource was never materialized
//
// # Model Types
//
// The model type of the primary data is passed explicitly. Passing nil
// resolves each primary document by its wire type through the registry set
// with [WithRegistry]. A registry also lets included documents that no
// relationship reaches be materialized instead of failing assembly.
package response
