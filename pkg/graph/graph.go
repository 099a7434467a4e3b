package graph

import (
	"errors"
	"slices"
)

var (
	// ErrInvalidNodeName is returned by [Graph.AddNode] when the node name
	// is empty. All nodes must have non-empty identifiers.
	ErrInvalidNodeName = errors.New("node name must not be empty")

	// ErrDuplicateNodeName is returned by [Graph.AddNode] when a node with
	// the same name already exists. Node names index the graph's node table
	// and must be unique.
	ErrDuplicateNodeName = errors.New("duplicate node name")
)

// Graph is a mutable computation graph indexed by node name. Edges are
// implicit: each node lists its producers in Inputs, and a node that no
// other node consumes is a graph output.
//
// Insertion order is preserved for deterministic serialization. The zero
// value is not usable - use New.
//
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes   map[string]*Node
	order   []string
	outputs []string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// AddNode adds a node to the graph and refreshes the output registry.
// Returns ErrInvalidNodeName for an empty name or ErrDuplicateNodeName
// if the name is already taken. The node is copied; later mutations of
// the argument do not affect the graph.
func (g *Graph) AddNode(n Node) error {
	if n.Name == "" {
		return ErrInvalidNodeName
	}
	if _, exists := g.nodes[n.Name]; exists {
		return ErrDuplicateNodeName
	}
	node := n.Clone()
	g.nodes[node.Name] = &node
	g.order = append(g.order, node.Name)
	g.refreshOutputs()
	return nil
}

// Node returns the node with the given name and true, or nil and false if
// not found. The pointer refers to the live node, so attribute and input
// mutations affect the graph.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// Consumers returns the names of nodes that list name among their inputs,
// in insertion order. Returns nil if nothing consumes the node.
func (g *Graph) Consumers(name string) []string {
	var out []string
	for _, id := range g.order {
		if slices.Contains(g.nodes[id].Inputs, name) {
			out = append(out, id)
		}
	}
	return out
}

// Outputs returns the current output registry: nodes no other node
// consumes, in insertion order. The registry is refreshed after every
// mutation, so the returned slice reflects the graph's present shape.
func (g *Graph) Outputs() []string { return slices.Clone(g.outputs) }

// Remove deletes the named nodes from the graph. Names not present are
// ignored, and an empty set is a no-op.
//
// When removeExclusiveDeps is true, nodes reachable only through the
// removed set (every consumer deleted) are deleted as well, repeatedly,
// until a fixpoint. Callers pruning graph outputs must pass false here:
// almost every node is reachable only through the outputs, so cascading
// would empty the graph.
//
// Surviving nodes have references to deleted nodes stripped from their
// input lists, and the output registry is recomputed.
func (g *Graph) Remove(names []string, removeExclusiveDeps bool) {
	doomed := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := g.nodes[name]; ok {
			doomed[name] = true
		}
	}
	if len(doomed) == 0 {
		return
	}

	if removeExclusiveDeps {
		for changed := true; changed; {
			changed = false
			for _, name := range g.order {
				if doomed[name] {
					continue
				}
				consumers := g.Consumers(name)
				if len(consumers) == 0 {
					continue
				}
				exclusive := true
				for _, c := range consumers {
					if !doomed[c] {
						exclusive = false
						break
					}
				}
				if exclusive {
					doomed[name] = true
					changed = true
				}
			}
		}
	}

	for name := range doomed {
		delete(g.nodes, name)
	}
	g.order = slices.DeleteFunc(g.order, func(name string) bool { return doomed[name] })
	for _, n := range g.nodes {
		n.Inputs = slices.DeleteFunc(n.Inputs, func(ref string) bool { return doomed[ref] })
	}
	g.refreshOutputs()
}

// refreshOutputs rebuilds the output registry from the consumer relation.
func (g *Graph) refreshOutputs() {
	consumed := make(map[string]bool)
	for _, n := range g.nodes {
		for _, ref := range n.Inputs {
			consumed[ref] = true
		}
	}
	g.outputs = g.outputs[:0]
	for _, name := range g.order {
		if !consumed[name] {
			g.outputs = append(g.outputs, name)
		}
	}
}
