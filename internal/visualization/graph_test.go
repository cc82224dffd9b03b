package visualization

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/serbanrobu/keepaway/internal/sim"
)

func testRegistry() *sim.Registry {
	return sim.NewRegistry(
		&sim.Worker{
			Items:     []sim.Item{79, 98},
			Operation: sim.Operation{Kind: sim.Multiply, Operand: sim.ConstOperand(19)},
			Test:      sim.Test{Divisor: 23, IfTrue: 1, IfFalse: 0},
		},
		&sim.Worker{
			Items:     []sim.Item{54},
			Operation: sim.Operation{Kind: sim.Add, Operand: sim.ConstOperand(6)},
			Test:      sim.Test{Divisor: 19, IfTrue: 2, IfFalse: 0},
		},
		&sim.Worker{
			Operation: sim.Operation{Kind: sim.Multiply, Operand: sim.OldOperand()},
			Test:      sim.Test{Divisor: 13, IfTrue: 1, IfFalse: 0},
		},
	)
}

func TestBuild(t *testing.T) {
	reg := testRegistry()
	reg.Workers[0].Inspected = 5
	reg.Workers[1].Inspected = 9
	reg.Workers[2].Inspected = 1

	g := Build(reg)

	wantNodes := []Node{
		{ID: 0, Operation: "old * 19", Divisor: 23, Items: 2, Inspected: 5, Busiest: true},
		{ID: 1, Operation: "old + 6", Divisor: 19, Items: 1, Inspected: 9, Busiest: true},
		{ID: 2, Operation: "old * old", Divisor: 13, Items: 0, Inspected: 1},
	}
	if diff := cmp.Diff(wantNodes, g.Nodes); diff != "" {
		t.Errorf("nodes mismatch (-want +got):\n%s", diff)
	}

	wantEdges := []Edge{
		{From: 0, To: 1, Branch: "true"},
		{From: 0, To: 0, Branch: "false", Self: true},
		{From: 1, To: 2, Branch: "true"},
		{From: 1, To: 0, Branch: "false"},
		{From: 2, To: 1, Branch: "true"},
		{From: 2, To: 0, Branch: "false"},
	}
	if diff := cmp.Diff(wantEdges, g.Edges); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_NoInspections(t *testing.T) {
	g := Build(testRegistry())
	for _, n := range g.Nodes {
		if n.Busiest {
			t.Errorf("worker %d marked busiest before any round", n.ID)
		}
	}
}

func TestRenderDOT(t *testing.T) {
	dot := RenderDOT(testRegistry())

	for _, want := range []string{
		"digraph keepaway {",
		`w0 [label="Worker 0\nnew = old * 19\ndivisible by 23\n2 items", fillcolor="lightgray"];`,
		`w0 -> w1 [label="true", style=solid, color=black];`,
		`w0 -> w0 [label="false", style=dashed, color=red];`,
		`w2 -> w0 [label="false", style=dashed, color=black];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q\n%s", want, dot)
		}
	}
	if !strings.HasSuffix(dot, "}\n") {
		t.Error("DOT should end with closing brace")
	}
}

func TestRenderMermaid(t *testing.T) {
	reg := testRegistry()
	reg.Workers[1].Inspected = 3

	out := RenderMermaid(reg)
	for _, want := range []string{
		"flowchart LR",
		`w1["Worker 1<br/>new = old + 6<br/>divisible by 19<br/>inspected 3"]`,
		"w0 -->|true| w1",
		"w0 -.->|false| w0",
		"style w1 fill:#ff6347",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Mermaid missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "style w0") {
		t.Error("uninspected worker should not be highlighted")
	}
}
