package graph

import (
	"errors"
	"slices"
	"testing"
)

func mustAdd(t *testing.T, g *Graph, nodes ...Node) {
	t.Helper()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.Name, err)
		}
	}
}

func TestAddNode(t *testing.T) {
	g := New()
	mustAdd(t, g, Node{Name: "a", Op: "Const"})

	if err := g.AddNode(Node{Name: ""}); !errors.Is(err, ErrInvalidNodeName) {
		t.Errorf("empty name: got %v, want ErrInvalidNodeName", err)
	}
	if err := g.AddNode(Node{Name: "a"}); !errors.Is(err, ErrDuplicateNodeName) {
		t.Errorf("duplicate: got %v, want ErrDuplicateNodeName", err)
	}
	if got := g.NodeCount(); got != 1 {
		t.Errorf("NodeCount = %d, want 1", got)
	}
}

func TestAddNodeCopies(t *testing.T) {
	g := New()
	n := Node{Name: "a", Inputs: []string{"x"}, Attrs: Attributes{"axis": Int(2)}}
	mustAdd(t, g, n)

	n.Inputs[0] = "mutated"
	n.Attrs["axis"] = Int(99)

	got, _ := g.Node("a")
	if got.Inputs[0] != "x" {
		t.Errorf("inputs aliased: %v", got.Inputs)
	}
	if got.Attrs["axis"].I != 2 {
		t.Errorf("attrs aliased: %v", got.Attrs["axis"])
	}
}

func TestOutputs(t *testing.T) {
	g := New()
	mustAdd(t, g,
		Node{Name: "a"},
		Node{Name: "b", Inputs: []string{"a"}},
		Node{Name: "c", Inputs: []string{"a"}},
		Node{Name: "d", Inputs: []string{"b", "c"}},
	)

	if got := g.Outputs(); !slices.Equal(got, []string{"d"}) {
		t.Errorf("Outputs = %v, want [d]", got)
	}
	if got := g.Consumers("a"); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("Consumers(a) = %v, want [b c]", got)
	}
}

func TestRemove(t *testing.T) {
	// a -> b -> d, a -> c -> d, e standalone
	build := func() *Graph {
		g := New()
		mustAdd(t, g,
			Node{Name: "a"},
			Node{Name: "b", Inputs: []string{"a"}},
			Node{Name: "c", Inputs: []string{"a"}},
			Node{Name: "d", Inputs: []string{"b", "c"}},
			Node{Name: "e"},
		)
		return g
	}

	t.Run("NoCascade", func(t *testing.T) {
		g := build()
		g.Remove([]string{"d"}, false)

		if _, ok := g.Node("d"); ok {
			t.Error("d should be removed")
		}
		for _, name := range []string{"a", "b", "c", "e"} {
			if _, ok := g.Node(name); !ok {
				t.Errorf("%s should survive a non-cascading remove", name)
			}
		}
		// b and c are orphaned producers and become the live outputs.
		if got := g.Outputs(); !slices.Equal(got, []string{"b", "c", "e"}) {
			t.Errorf("Outputs = %v, want [b c e]", got)
		}
	})

	t.Run("Cascade", func(t *testing.T) {
		g := build()
		g.Remove([]string{"d"}, true)

		// Everything upstream of d is exclusive to it and goes with it.
		if got := g.NodeCount(); got != 1 {
			t.Errorf("NodeCount = %d, want 1 (only e)", got)
		}
		if _, ok := g.Node("e"); !ok {
			t.Error("e has no path to d and must survive")
		}
	})

	t.Run("CascadeStopsAtSharedConsumer", func(t *testing.T) {
		g := build()
		mustAdd(t, g, Node{Name: "probe", Inputs: []string{"b"}})
		g.Remove([]string{"d"}, true)

		// b feeds probe as well, so b and its producer a survive.
		for _, name := range []string{"a", "b", "probe"} {
			if _, ok := g.Node(name); !ok {
				t.Errorf("%s should survive, has a consumer outside the removed set", name)
			}
		}
		if _, ok := g.Node("c"); ok {
			t.Error("c is exclusive to d and should cascade away")
		}
	})

	t.Run("EmptySet", func(t *testing.T) {
		g := build()
		g.Remove(nil, false)
		if got := g.NodeCount(); got != 5 {
			t.Errorf("NodeCount = %d, want 5", got)
		}
	})

	t.Run("UnknownNamesIgnored", func(t *testing.T) {
		g := build()
		g.Remove([]string{"nope"}, false)
		if got := g.NodeCount(); got != 5 {
			t.Errorf("NodeCount = %d, want 5", got)
		}
	})
}

func TestRemoveStripsDanglingInputs(t *testing.T) {
	g := New()
	mustAdd(t, g,
		Node{Name: "a"},
		Node{Name: "b", Inputs: []string{"a"}},
		Node{Name: "c", Inputs: []string{"a", "b"}},
	)
	g.Remove([]string{"a"}, false)

	c, _ := g.Node("c")
	if !slices.Equal(c.Inputs, []string{"b"}) {
		t.Errorf("c.Inputs = %v, want [b]", c.Inputs)
	}
}
