package graph

import (
	"bytes"
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/matzehuels/apigraph/pkg/jsonapi"
)

// Node roles.
const (
	RolePrimary  = "primary"
	RoleIncluded = "included"
)

// labelAttributes are checked in order when a model has no Label method.
var labelAttributes = []string{"name", "title", "label", "slug"}

// Labeler is implemented by models that provide a display label.
type Labeler interface {
	Label() string
}

// =============================================================================
// Graph - Node-Link Serialization
// =============================================================================

// Graph is the serialization format for a materialized response graph.
// Used by the CLI output, the HTTP server, caching and the DOT renderer.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is one materialized resource.
type Node struct {
	ID         string         `json:"id"` // "type/id"
	Type       string         `json:"type"`
	ResourceID string         `json:"resource_id"`
	Label      string         `json:"label,omitempty"`
	Role       string         `json:"role"` // "primary" or "included"
	Attributes map[string]any `json:"attributes,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// IsPrimary reports whether the node is part of the primary data.
func (n *Node) IsPrimary() bool { return n.Role == RolePrimary }

// Edge is a resolved relation between two nodes.
type Edge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

// =============================================================================
// Builder → Graph Conversion
// =============================================================================

// Export converts everything b has materialized into a Graph.
// Nodes are sorted by ID. Edges are sorted by source and relation name, and
// keep payload order within a to-many relation.
func Export(b *Builder, primary []jsonapi.Resource) Graph {
	isPrimary := make(map[Key]bool, len(primary))
	for i := range primary {
		isPrimary[KeyOf(&primary[i])] = true
	}

	keys := b.Models().Keys()
	slices.SortFunc(keys, func(x, y Key) int {
		return cmp.Compare(x.String(), y.String())
	})

	out := Graph{
		Nodes: make([]Node, 0, len(keys)),
		Edges: make([]Edge, 0, len(b.links)),
	}
	for _, k := range keys {
		out.Nodes = append(out.Nodes, b.exportNode(k, isPrimary[k]))
	}

	links := b.Links()
	slices.SortStableFunc(links, func(x, y Link) int {
		if c := cmp.Compare(x.From.String(), y.From.String()); c != 0 {
			return c
		}
		return cmp.Compare(x.Relation, y.Relation)
	})
	for _, l := range links {
		out.Edges = append(out.Edges, Edge{From: l.From.String(), To: l.To.String(), Relation: l.Relation})
	}
	return out
}

func (b *Builder) exportNode(k Key, primary bool) Node {
	n := Node{ID: k.String(), Type: k.Type, ResourceID: k.ID, Role: RoleIncluded}
	if primary {
		n.Role = RolePrimary
	}
	if doc, ok := b.resources.Lookup(k.Type, k.ID); ok {
		attrs := map[string]any{}
		if err := doc.DecodeAttributes(&attrs); err == nil && len(attrs) > 0 {
			n.Attributes = attrs
		}
		n.Meta = doc.Meta
	}
	if m, ok := b.models.Get(k); ok {
		if l, ok := m.(Labeler); ok {
			n.Label = l.Label()
		}
	}
	if n.Label == "" {
		n.Label = labelFromAttributes(n.Attributes)
	}
	return n
}

func labelFromAttributes(attrs map[string]any) string {
	for _, name := range labelAttributes {
		if s, ok := attrs[name].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// =============================================================================
// Graph Serialization API
// =============================================================================

// MarshalGraph converts a Graph to indented JSON bytes.
func MarshalGraph(g Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteGraph(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteGraph writes a Graph as indented JSON to w.
func WriteGraph(g Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(g); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteGraphFile writes a Graph to a JSON file.
func WriteGraphFile(g Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraph(g, f)
}

// UnmarshalGraph deserializes JSON bytes to a Graph.
func UnmarshalGraph(data []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return Graph{}, err
	}
	return g, nil
}

// ReadGraphFile reads a Graph from a JSON file.
func ReadGraphFile(path string) (Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Graph{}, fmt.Errorf("open %s: %w", path, err)
	}
	return UnmarshalGraph(data)
}
