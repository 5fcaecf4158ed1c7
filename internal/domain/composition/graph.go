package composition

import "strings"

// Node is one filter in a filter graph with its labelled pads.
type Node struct {
	Inputs  []string
	Filter  string
	Outputs []string
}

func (n Node) String() string {
	var b strings.Builder
	for _, in := range n.Inputs {
		b.WriteString("[" + in + "]")
	}
	b.WriteString(n.Filter)
	for _, out := range n.Outputs {
		b.WriteString("[" + out + "]")
	}
	return b.String()
}

// Graph is an ordered list of filter chains.
type Graph struct {
	Nodes []Node
}

func (g *Graph) Add(n Node) { g.Nodes = append(g.Nodes, n) }

func (g Graph) Empty() bool { return len(g.Nodes) == 0 }

// String serializes the graph to filter_complex syntax.
func (g Graph) String() string {
	parts := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		parts = append(parts, n.String())
	}
	return strings.Join(parts, ";")
}
