package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/apigraph/pkg/errors"
	"github.com/matzehuels/apigraph/pkg/graph"
	"github.com/matzehuels/apigraph/pkg/observability"
)

// Output formats accepted by [Render].
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
	FormatPNG = "png"
)

// Formats lists the supported output formats.
var Formats = []string{FormatDOT, FormatSVG, FormatPNG}

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed adds the resource attributes to node labels.
	// When false, only the display label is shown.
	Detailed bool
	// HideRelations omits relation names from edge labels.
	HideRelations bool
	// RankDir sets the Graphviz layout direction. Defaults to "LR".
	RankDir string
}

// ToDOT converts a graph to Graphviz DOT format.
// Nodes and edges are written in the order they appear in g, so the output
// is deterministic for an exported graph.
func ToDOT(g graph.Graph, opts Options) string {
	rankdir := opts.RankDir
	if rankdir == "" {
		rankdir = "LR"
	}

	targets := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		targets[e.To] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", rankdir)
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10, color=\"#555555\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for i := range g.Nodes {
		n := &g.Nodes[i]
		attrs := fmtAttrs(n, fmtLabel(n, opts.Detailed), targets[n.ID])
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		if opts.HideRelations {
			fmt.Fprintf(&buf, "  %q -> %q;\n", e.From, e.To)
			continue
		}
		fmt.Fprintf(&buf, "  %q -> %q [label=%q];\n", e.From, e.To, e.Relation)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *graph.Node, detailed bool) string {
	label := n.DisplayLabel()
	if label != n.ID {
		label = n.ID + "\n" + label
	}
	if !detailed || len(n.Attributes) == 0 {
		return label
	}

	parts := make([]string, 0, len(n.Attributes))
	for _, k := range slices.Sorted(maps.Keys(n.Attributes)) {
		parts = append(parts, fmt.Sprintf("%s: %v", k, n.Attributes[k]))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *graph.Node, label string, referenced bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.IsPrimary():
		attrs = append(attrs, "style=\"rounded,filled,bold\"", "fillcolor=\"#dbe9f6\"")
	case !referenced:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fontcolor=\"#777777\"")
	}
	return attrs
}

// Render renders DOT source in the given format using Graphviz.
// FormatDOT returns the source unchanged.
func Render(ctx context.Context, dot string, format string) (out []byte, err error) {
	hooks := observability.Graph()
	hooks.OnRenderStart(ctx, format, countNodes(dot))
	start := time.Now()
	defer func() { hooks.OnRenderComplete(ctx, format, time.Since(start), err) }()

	switch format {
	case FormatDOT:
		return []byte(dot), nil
	case FormatSVG:
		svg, err := renderGraphviz(ctx, dot, graphviz.SVG)
		if err != nil {
			return nil, err
		}
		return normalizeViewBox(svg), nil
	case FormatPNG:
		return renderGraphviz(ctx, dot, graphviz.PNG)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// countNodes counts node statements in DOT source produced by ToDOT.
func countNodes(dot string) int {
	n := 0
	for _, line := range strings.Split(dot, "\n") {
		if strings.Contains(line, " [label=") && !strings.Contains(line, " -> ") {
			n++
		}
	}
	return n
}

// RenderSVG renders DOT source to SVG.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	return Render(ctx, dot, FormatSVG)
}

func renderGraphviz(ctx context.Context, dot string, format graphviz.Format) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "init graphviz")
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "parse DOT")
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, format, &buf); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, err, "render %s", format)
	}
	return buf.Bytes(), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root svg tag so the drawing scales from its
// viewBox instead of Graphviz's fixed point sizes.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}
