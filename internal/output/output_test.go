package output

import (
	"strings"
	"testing"

	"ripple/internal/core/app"
	"ripple/internal/engine/diffmap"
	"ripple/internal/engine/graph"
	"ripple/internal/engine/ripple"
)

func outputGraph() *graph.Graph {
	g := graph.New()
	g.AddNode(graph.Node{ID: graph.ModuleNodeID("a.py"), Kind: graph.NodeModule, File: "a.py", StartLine: 1, EndLine: 10})
	g.AddNode(graph.Node{ID: "a.py:f", Kind: graph.NodeFunction, File: "a.py", StartLine: 2, EndLine: 4})
	g.AddNode(graph.Node{ID: graph.ModuleNodeID("b.py"), Kind: graph.NodeModule, File: "b.py", StartLine: 1, EndLine: 10})
	g.AddNode(graph.Node{ID: "b.py:caller", Kind: graph.NodeFunction, File: "b.py", StartLine: 2, EndLine: 5})
	g.AddEdge(graph.Edge{Src: graph.ModuleNodeID("a.py"), Dst: "a.py:f", Kind: graph.EdgeDefines, Resolved: true})
	g.AddEdge(graph.Edge{Src: "b.py:caller", Dst: "a.py:f", Kind: graph.EdgeCalls, Resolved: true})
	g.AddEdge(graph.Edge{Src: graph.ModuleNodeID("b.py"), Dst: graph.ModuleNodeID("a.py"), Kind: graph.EdgeImports, Resolved: true})
	g.AddEdge(graph.Edge{Src: "b.py:caller", Dst: "ghost", Kind: graph.EdgeCalls, Resolved: false})
	return g
}

func outputReport(g *graph.Graph) *app.ImpactReport {
	seed, _ := g.Node("a.py:f")
	caller, _ := g.Node("b.py:caller")
	return &app.ImpactReport{
		ChangedFiles: []string{"a.py"},
		Seeds: []diffmap.Seed{
			{Node: seed, Lines: []diffmap.LineRange{{Start: 2, End: 3}}},
		},
		Impacted: []ripple.ImpactedNode{
			{Node: seed, Distance: 0, Tier: ripple.TierDirect},
			{Node: caller, Distance: 1, Tier: ripple.TierHigh, Via: "a.py:f", ViaKind: graph.EdgeCalls},
		},
		Risk: app.RiskMedium,
	}
}

func TestDOT_GraphAndImpact(t *testing.T) {
	g := outputGraph()
	gen := NewDOTGenerator(g)
	gen.SetImpact(outputReport(g))

	out, err := gen.Generate()
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"digraph dependencies",
		`"b.py:caller" -> "a.py:f"`,
		"mistyrose", // seed highlight
		"lightsalmon", // high tier highlight
		"style=dashed", // dangling edge
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "defines") {
		t.Error("defines edges should not be drawn, clusters cover containment")
	}
}

func TestTSV_EdgesAndImpact(t *testing.T) {
	g := outputGraph()
	gen := NewTSVGenerator(g)

	edges, err := gen.Generate()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(edges, "b.py:caller\ta.py:f\tcalls\ttrue") {
		t.Errorf("edges TSV missing resolved call row:\n%s", edges)
	}
	if !strings.Contains(edges, "b.py:caller\tghost\tcalls\tfalse") {
		t.Errorf("edges TSV missing dangling row:\n%s", edges)
	}

	impact, err := gen.GenerateImpact(outputReport(g))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(impact, "b.py:caller\tb.py\t1\thigh\ta.py:f\tcalls\tfalse") {
		t.Errorf("impact TSV missing row:\n%s", impact)
	}
}

func TestMermaid_Impact(t *testing.T) {
	g := outputGraph()
	out, err := NewMermaidGenerator(outputReport(g)).Generate()
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"flowchart LR",
		`a_py_f["a.py:f"]`,
		"-->|calls|",
		"classDef directNode",
		"classDef highNode",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("mermaid output missing %q:\n%s", want, out)
		}
	}
}
