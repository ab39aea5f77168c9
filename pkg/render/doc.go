// Package render draws materialized response graphs as node-link diagrams.
//
// # Overview
//
// The [ToDOT] function converts a [graph.Graph] into Graphviz DOT source.
// Each materialized resource becomes a box labelled with its display label
// and each resolved relation becomes an arrow labelled with the relation
// name. The DOT source can be rendered with [Render] using the embedded
// Graphviz library, so no external binaries are needed.
//
//	g := resp.Graph()
//	dot := render.ToDOT(g, render.Options{Detailed: true})
//	svg, err := render.Render(ctx, dot, render.FormatSVG)
//
// # Styling
//
// Primary resources are filled and drawn with a bold outline. Included
// resources are white. Included resources that no relation points at are
// drawn dashed, which makes orphaned included documents easy to spot.
//
// # Formats
//
//   - [FormatDOT]: the DOT source itself
//   - [FormatSVG]: SVG with a normalized viewBox
//   - [FormatPNG]: raster image
//
// [graph.Graph]: github.com/matzehuels/apigraph/pkg/graph.Graph
package render
