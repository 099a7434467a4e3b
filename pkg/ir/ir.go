// Package ir serializes a rewritten graph into the interchange format the
// inference engine loads: a topologically ordered node list with a single
// declared output. The format is plain indented JSON so converted models
// stay inspectable with standard tooling.
package ir

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/modelprep/modelprep/pkg/errors"
	"github.com/modelprep/modelprep/pkg/graph"
)

// FormatVersion identifies the interchange layout. Bumped on breaking
// changes so loaders can reject files they do not understand.
const FormatVersion = 1

// Document is the on-disk interchange structure.
type Document struct {
	Version int          `json:"version"`
	Input   string       `json:"input"`
	Output  string       `json:"output"`
	Nodes   []graph.Node `json:"nodes"`
}

// Export writes the graph to w in interchange form, declaring input as
// the node the engine feeds and output as the terminal node it reads.
//
// Nodes are emitted in topological order (producers before consumers) so
// a loader can build the network in a single pass. Nodes orphaned by
// output pruning are still emitted: the engine reads the network from the
// declared output by name and ignores the rest.
//
// Returns an INVALID_GRAPH error if output is not present in the graph.
func Export(g *graph.Graph, input, output string, w io.Writer) error {
	if _, ok := g.Node(output); !ok {
		return errors.New(errors.ErrCodeInvalidGraph, "output node %s not present in graph", output)
	}

	ordered, err := topoSort(g)
	if err != nil {
		return err
	}

	doc := Document{
		Version: FormatVersion,
		Input:   input,
		Output:  output,
		Nodes:   make([]graph.Node, 0, len(ordered)),
	}
	for _, n := range ordered {
		doc.Nodes = append(doc.Nodes, *n)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportFile writes the interchange document to a file at path.
func ExportFile(g *graph.Graph, input, output, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return Export(g, input, output, f)
}

// ReadFile loads an interchange document from path.
func ReadFile(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var doc Document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &doc, nil
}

// topoSort orders nodes producers-first using depth-first traversal in
// graph insertion order. References to nodes missing from the table
// (stripped during pruning) are skipped rather than treated as errors.
// The traversal keeps its own stack so a long producer chain cannot
// exhaust the call stack.
func topoSort(g *graph.Graph) ([]*graph.Node, error) {
	const (
		white = iota // unvisited
		gray         // on the current path
		black        // done
	)

	color := make(map[string]int, g.NodeCount())
	ordered := make([]*graph.Node, 0, g.NodeCount())

	type frame struct {
		node *graph.Node
		next int // index of the next input to follow
	}

	visit := func(root *graph.Node) error {
		stack := []frame{{node: root}}
		color[root.Name] = gray
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if top.next < len(top.node.Inputs) {
				ref := top.node.Inputs[top.next]
				top.next++
				producer, ok := g.Node(ref)
				if !ok {
					continue
				}
				switch color[ref] {
				case white:
					color[ref] = gray
					stack = append(stack, frame{node: producer})
				case gray:
					return errors.New(errors.ErrCodeInvalidGraph, "graph contains a cycle through %s", ref)
				}
				continue
			}
			color[top.node.Name] = black
			ordered = append(ordered, top.node)
			stack = stack[:len(stack)-1]
		}
		return nil
	}

	for _, n := range g.Nodes() {
		if color[n.Name] == white {
			if err := visit(n); err != nil {
				return nil, err
			}
		}
	}
	return ordered, nil
}
