// Package graph implements a name-indexed computation graph with the two
// rewrite operations the conversion pipeline needs: collapsing namespaces
// into single replacement nodes and pruning graph outputs without
// cascading into their dependency subgraphs.
//
// Nodes reference their producers by name, so rewiring is a table
// operation rather than pointer surgery: removing or substituting a node
// cannot leave dangling references behind.
package graph
