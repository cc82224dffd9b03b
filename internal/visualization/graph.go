// Package visualization renders a worker registry's throw routes.
package visualization

import (
	"fmt"
	"slices"
	"strings"

	"github.com/serbanrobu/keepaway/internal/sim"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT     Format = "dot"
	FormatMermaid Format = "mermaid"
	FormatJSON    Format = "json"
)

// Node is one worker in the route graph.
type Node struct {
	ID        int    `json:"id"`
	Operation string `json:"operation"`
	Divisor   uint64 `json:"divisor"`
	Items     int    `json:"items"`
	Inspected uint64 `json:"inspected"`
	Busiest   bool   `json:"busiest,omitempty"`
}

// Edge is one throw route. Branch is "true" or "false".
type Edge struct {
	From   int    `json:"from"`
	To     int    `json:"to"`
	Branch string `json:"branch"`
	Self   bool   `json:"self,omitempty"`
}

// Graph is the route graph of a registry.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Build derives the route graph. The two workers with the highest
// inspection counts are marked busiest once any inspection has happened.
func Build(reg *sim.Registry) Graph {
	g := Graph{
		Nodes: make([]Node, 0, reg.Len()),
		Edges: make([]Edge, 0, 2*reg.Len()),
	}
	for _, w := range reg.Workers {
		g.Nodes = append(g.Nodes, Node{
			ID:        w.ID,
			Operation: w.Operation.String(),
			Divisor:   w.Test.Divisor,
			Items:     len(w.Items),
			Inspected: w.Inspected,
		})
		g.Edges = append(g.Edges,
			Edge{From: w.ID, To: w.Test.IfTrue, Branch: "true", Self: w.Test.IfTrue == w.ID},
			Edge{From: w.ID, To: w.Test.IfFalse, Branch: "false", Self: w.Test.IfFalse == w.ID},
		)
	}

	order := make([]int, len(g.Nodes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case g.Nodes[a].Inspected > g.Nodes[b].Inspected:
			return -1
		case g.Nodes[a].Inspected < g.Nodes[b].Inspected:
			return 1
		}
		return 0
	})
	for _, i := range order[:min(2, len(order))] {
		if g.Nodes[i].Inspected > 0 {
			g.Nodes[i].Busiest = true
		}
	}
	return g
}

// RenderDOT produces a Graphviz DOT representation of the route graph.
func RenderDOT(reg *sim.Registry) string {
	g := Build(reg)

	var b strings.Builder
	b.WriteString("digraph keepaway {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, n := range g.Nodes {
		color := "lightgray"
		if n.Busiest {
			color = "tomato"
		}
		fmt.Fprintf(&b, "  w%d [label=%q, fillcolor=%q];\n", n.ID, nodeLabel(n, "\n"), color)
	}
	b.WriteString("\n")

	for _, e := range g.Edges {
		style := "solid"
		if e.Branch == "false" {
			style = "dashed"
		}
		color := "black"
		if e.Self {
			color = "red"
		}
		fmt.Fprintf(&b, "  w%d -> w%d [label=%q, style=%s, color=%s];\n", e.From, e.To, e.Branch, style, color)
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderMermaid produces a Mermaid flowchart of the route graph.
func RenderMermaid(reg *sim.Registry) string {
	g := Build(reg)

	var b strings.Builder
	b.WriteString("flowchart LR\n")
	for _, n := range g.Nodes {
		fmt.Fprintf(&b, "  w%d[\"%s\"]\n", n.ID, nodeLabel(n, "<br/>"))
	}
	for _, e := range g.Edges {
		arrow := "-->"
		if e.Branch == "false" {
			arrow = "-.->"
		}
		fmt.Fprintf(&b, "  w%d %s|%s| w%d\n", e.From, arrow, e.Branch, e.To)
	}
	for _, n := range g.Nodes {
		if n.Busiest {
			fmt.Fprintf(&b, "  style w%d fill:#ff6347\n", n.ID)
		}
	}
	return b.String()
}

func nodeLabel(n Node, sep string) string {
	parts := []string{
		fmt.Sprintf("Worker %d", n.ID),
		"new = " + n.Operation,
		fmt.Sprintf("divisible by %d", n.Divisor),
	}
	if n.Inspected > 0 {
		parts = append(parts, fmt.Sprintf("inspected %d", n.Inspected))
	} else {
		parts = append(parts, fmt.Sprintf("%d items", n.Items))
	}
	return strings.Join(parts, sep)
}
