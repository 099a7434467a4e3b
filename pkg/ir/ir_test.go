package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/modelprep/modelprep/pkg/errors"
	"github.com/modelprep/modelprep/pkg/graph"
)

func buildGraph(t *testing.T, nodes ...graph.Node) *graph.Graph {
	t.Helper()
	g := graph.New()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.Name, err)
		}
	}
	return g
}

func TestExportTopologicalOrder(t *testing.T) {
	// Inserted consumers-first to ensure ordering comes from the edge
	// relation, not insertion order.
	g := buildGraph(t,
		graph.Node{Name: "NMS", Op: "NMS_TRT", Inputs: []string{"concat_box_loc", "concat_box_conf"}},
		graph.Node{Name: "concat_box_conf", Op: "FlattenConcat_TRT", Inputs: []string{"Input"}},
		graph.Node{Name: "concat_box_loc", Op: "FlattenConcat_TRT", Inputs: []string{"Input"}},
		graph.Node{Name: "Input", Op: "Placeholder"},
	)

	var buf bytes.Buffer
	if err := Export(g, "Input", "NMS", &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Version != FormatVersion {
		t.Errorf("Version = %d, want %d", doc.Version, FormatVersion)
	}
	if doc.Input != "Input" || doc.Output != "NMS" {
		t.Errorf("contract = %q -> %q, want Input -> NMS", doc.Input, doc.Output)
	}

	pos := make(map[string]int, len(doc.Nodes))
	for i, n := range doc.Nodes {
		pos[n.Name] = i
	}
	if len(pos) != 4 {
		t.Fatalf("got %d nodes, want 4", len(pos))
	}
	for _, n := range doc.Nodes {
		for _, ref := range n.Inputs {
			if pos[ref] > pos[n.Name] {
				t.Errorf("producer %s emitted after consumer %s", ref, n.Name)
			}
		}
	}
}

func TestExportMissingOutput(t *testing.T) {
	g := buildGraph(t, graph.Node{Name: "Input", Op: "Placeholder"})

	var buf bytes.Buffer
	err := Export(g, "Input", "NMS", &buf)
	if !errors.Is(err, errors.ErrCodeInvalidGraph) {
		t.Fatalf("Export = %v, want INVALID_GRAPH", err)
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes despite error", buf.Len())
	}
}

func TestExportCycle(t *testing.T) {
	g := buildGraph(t,
		graph.Node{Name: "a", Op: "Identity", Inputs: []string{"b"}},
		graph.Node{Name: "b", Op: "Identity", Inputs: []string{"a"}},
	)

	err := Export(g, "a", "a", &bytes.Buffer{})
	if !errors.Is(err, errors.ErrCodeInvalidGraph) {
		t.Fatalf("Export = %v, want INVALID_GRAPH", err)
	}
}

func TestExportDeepProducerChain(t *testing.T) {
	// A linear chain exercises the traversal at a depth where walking the
	// producer relation recursively would pile up one call frame per node.
	const depth = 5000
	g := graph.New()
	if err := g.AddNode(graph.Node{Name: "n0", Op: "Placeholder"}); err != nil {
		t.Fatalf("AddNode(n0): %v", err)
	}
	for i := 1; i < depth; i++ {
		n := graph.Node{
			Name:   fmt.Sprintf("n%d", i),
			Op:     "Identity",
			Inputs: []string{fmt.Sprintf("n%d", i-1)},
		}
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.Name, err)
		}
	}

	var buf bytes.Buffer
	if err := Export(g, "n0", fmt.Sprintf("n%d", depth-1), &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}

	var doc Document
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Nodes) != depth {
		t.Fatalf("got %d nodes, want %d", len(doc.Nodes), depth)
	}
	for i, n := range doc.Nodes {
		if want := fmt.Sprintf("n%d", i); n.Name != want {
			t.Fatalf("node %d = %s, want %s", i, n.Name, want)
		}
	}
}

func TestExportSkipsDanglingRefs(t *testing.T) {
	g := buildGraph(t,
		graph.Node{Name: "Input", Op: "Placeholder"},
		graph.Node{Name: "NMS", Op: "NMS_TRT", Inputs: []string{"Input", "anchors"}},
	)

	var buf bytes.Buffer
	if err := Export(g, "Input", "NMS", &buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
}

func TestExportFileRoundTrip(t *testing.T) {
	g := buildGraph(t,
		graph.Node{Name: "Input", Op: "Placeholder", Attrs: graph.Attributes{
			"shape": graph.Ints(1, 3, 300, 300),
		}},
		graph.Node{Name: "NMS", Op: "NMS_TRT", Inputs: []string{"Input"}, Attrs: graph.Attributes{
			"confidenceThreshold": graph.Float(1e-8),
		}},
	)

	path := filepath.Join(t.TempDir(), "model.ir.json")
	if err := ExportFile(g, "Input", "NMS", path); err != nil {
		t.Fatalf("ExportFile: %v", err)
	}

	doc, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if doc.Output != "NMS" || len(doc.Nodes) != 2 {
		t.Fatalf("doc = output %q with %d nodes, want NMS with 2", doc.Output, len(doc.Nodes))
	}
	if got := doc.Nodes[1].Attrs["confidenceThreshold"].F; got != 1e-8 {
		t.Errorf("confidenceThreshold = %v, want 1e-8", got)
	}
}
