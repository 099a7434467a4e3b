// Package render turns computation graphs into Graphviz DOT and SVG for
// inspecting a model before and after plugin rewriting.
package render

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/modelprep/modelprep/pkg/graph"
)

// Options configures graph rendering.
type Options struct {
	// Detailed includes node attributes in labels. When false, labels
	// show only name and op.
	Detailed bool
}

// ToDOT converts a graph to Graphviz DOT format. Plugin nodes (op names
// with a _TRT suffix) are filled to stand out from stock ops, and graph
// outputs get a double border.
func ToDOT(g *graph.Graph, opts Options) string {
	outputs := make(map[string]bool)
	for _, name := range g.Outputs() {
		outputs[name] = true
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		label := fmtLabel(n, opts.Detailed)
		attrs := fmtAttrs(n, label, outputs[n.Name])
		fmt.Fprintf(&buf, "  %q [%s];\n", n.Name, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, n := range g.Nodes() {
		for _, ref := range n.Inputs {
			fmt.Fprintf(&buf, "  %q -> %q;\n", ref, n.Name)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func fmtLabel(n *graph.Node, detailed bool) string {
	label := n.Name + "\n" + n.Op
	if !detailed || len(n.Attrs) == 0 {
		return label
	}

	parts := make([]string, 0, len(n.Attrs))
	for _, k := range slices.Sorted(maps.Keys(n.Attrs)) {
		parts = append(parts, fmt.Sprintf("%s: %s", k, n.Attrs[k]))
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func fmtAttrs(n *graph.Node, label string, isOutput bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	if strings.HasSuffix(n.Op, "_TRT") {
		attrs = append(attrs, "fillcolor=lightblue")
	}
	if isOutput {
		attrs = append(attrs, "peripheries=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
