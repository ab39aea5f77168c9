package cli

import (
	"strings"
	"testing"

	"github.com/matzehuels/apigraph/pkg/graph"
)

func TestPrintNodes(t *testing.T) {
	buf := captureOutput(t)
	printNodes(graph.Graph{
		Nodes: []graph.Node{
			{ID: "articles/1", Label: "Hello", Role: graph.RolePrimary},
			{ID: "people/9", Role: graph.RoleIncluded},
		},
		Edges: []graph.Edge{{From: "articles/1", To: "people/9", Relation: "author"}},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("printNodes() wrote %d lines, want 3:\n%s", len(lines), buf)
	}
	if !strings.Contains(lines[0], "articles/1") || !strings.Contains(lines[0], "Hello") {
		t.Errorf("primary line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "author") || !strings.Contains(lines[1], "people/9") {
		t.Errorf("relation line = %q", lines[1])
	}
}

func TestPrintStats(t *testing.T) {
	buf := captureOutput(t)
	printStats(graph.Stats{Models: 4, Links: 3})
	if strings.Contains(buf.String(), "skipped") {
		t.Errorf("no skipped count expected: %q", buf)
	}

	buf.Reset()
	printStats(graph.Stats{Models: 4, Links: 3, Skipped: 2})
	if !strings.Contains(buf.String(), "2 skipped") {
		t.Errorf("printStats() = %q", buf)
	}
}
