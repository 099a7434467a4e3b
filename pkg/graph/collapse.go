package graph

import (
	"fmt"
	"slices"
	"strings"
)

// Rule maps a namespace prefix (or exact node name) to the replacement
// node that stands in for every node under that namespace. Several rules
// may share one replacement: all of their namespaces then collapse into
// the same node.
type Rule struct {
	Namespace   string
	Replacement Node
}

// Matches reports whether name falls under the rule's namespace: either
// an exact match or a qualified child (namespace + "/...").
func (r Rule) Matches(name string) bool {
	return name == r.Namespace || strings.HasPrefix(name, r.Namespace+"/")
}

// CollapseNamespaces replaces every node covered by a rule with that
// rule's replacement node, quotienting each namespace down to one node.
//
// Rewiring preserves the graph's external shape:
//   - a surviving node that referenced a collapsed node now references the
//     replacement (repeated references to the same replacement are deduped);
//   - the replacement's inputs are the external producers the collapsed
//     nodes referenced, in first-seen order, deduped;
//   - edges between two collapsed namespaces become an edge between their
//     replacements, and references inside one namespace vanish.
//
// When rules overlap, the longest matching namespace wins. A rule whose
// namespace matches nothing is a no-op. The replacement node takes over
// the insertion position of the namespace's first member.
//
// Returns an error if a replacement name collides with a surviving node.
func (g *Graph) CollapseNamespaces(rules []Rule) error {
	// Resolve each node to its replacement, longest namespace first.
	mapped := make(map[string]string, len(g.nodes)) // member -> replacement name
	replacements := make(map[string]Node)           // replacement name -> node
	for _, name := range g.order {
		rule, ok := bestRule(rules, name)
		if !ok {
			continue
		}
		mapped[name] = rule.Replacement.Name
		if _, seen := replacements[rule.Replacement.Name]; !seen {
			replacements[rule.Replacement.Name] = rule.Replacement.Clone()
		}
	}
	if len(mapped) == 0 {
		return nil
	}

	for repl := range replacements {
		_, exists := g.nodes[repl]
		_, isMember := mapped[repl]
		if exists && !isMember {
			return fmt.Errorf("replacement node %q collides with an existing node", repl)
		}
	}

	// Gather the replacement inputs before mutating anything: every
	// external (or cross-namespace) producer referenced from inside the
	// namespace, in graph insertion order.
	inputsOf := make(map[string][]string, len(replacements))
	for _, name := range g.order {
		repl, collapsed := mapped[name]
		if !collapsed {
			continue
		}
		for _, ref := range g.nodes[name].Inputs {
			target := ref
			if m, ok := mapped[ref]; ok {
				target = m
			}
			if target == repl {
				continue // internal edge, vanishes
			}
			if !slices.Contains(inputsOf[repl], target) {
				inputsOf[repl] = append(inputsOf[repl], target)
			}
		}
	}

	// Rebuild the node table: members are dropped, the replacement is
	// spliced in at the first member's position, survivors keep their
	// slots with rewired inputs.
	newOrder := make([]string, 0, len(g.order))
	newNodes := make(map[string]*Node, len(g.nodes))
	placed := make(map[string]bool, len(replacements))

	for _, name := range g.order {
		if repl, collapsed := mapped[name]; collapsed {
			if placed[repl] {
				continue
			}
			placed[repl] = true
			node := replacements[repl]
			node.Inputs = inputsOf[repl]
			newNodes[repl] = &node
			newOrder = append(newOrder, repl)
			continue
		}
		node := g.nodes[name]
		node.Inputs = rewire(node.Inputs, mapped)
		newNodes[name] = node
		newOrder = append(newOrder, name)
	}

	g.nodes = newNodes
	g.order = newOrder
	g.refreshOutputs()
	return nil
}

// bestRule returns the rule with the longest namespace matching name.
func bestRule(rules []Rule, name string) (Rule, bool) {
	var best Rule
	found := false
	for _, r := range rules {
		if !r.Matches(name) {
			continue
		}
		if !found || len(r.Namespace) > len(best.Namespace) {
			best = r
			found = true
		}
	}
	return best, found
}

// rewire substitutes collapsed producers with their replacement, deduping
// repeated references to the same replacement while preserving order.
func rewire(inputs []string, mapped map[string]string) []string {
	out := inputs[:0]
	seen := make(map[string]bool)
	for _, ref := range inputs {
		target, collapsed := mapped[ref]
		if !collapsed {
			out = append(out, ref)
			continue
		}
		if seen[target] {
			continue
		}
		seen[target] = true
		out = append(out, target)
	}
	return out
}
