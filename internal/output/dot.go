package output

import (
	"fmt"
	"strings"

	"ripple/internal/core/app"
	"ripple/internal/engine/graph"
	"ripple/internal/engine/ripple"
)

// DOTGenerator renders the dependency graph as Graphviz DOT, optionally
// highlighting the seeds and ripple of an impact report.
type DOTGenerator struct {
	graph  *graph.Graph
	report *app.ImpactReport
}

func NewDOTGenerator(g *graph.Graph) *DOTGenerator {
	return &DOTGenerator{graph: g}
}

func (d *DOTGenerator) SetImpact(report *app.ImpactReport) {
	d.report = report
}

func (d *DOTGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("digraph dependencies {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box, style=rounded, fontname=\"Helvetica\", fontsize=10];\n")
	buf.WriteString("  edge [fontname=\"Helvetica\", fontsize=8, penwidth=1.2];\n")
	buf.WriteString("  splines=polyline;\n")
	buf.WriteString("  overlap=false;\n\n")

	seeds, tierByID := d.impactSets()

	for _, file := range d.graph.Files() {
		cluster := sanitizeID(file)
		buf.WriteString(fmt.Sprintf("  subgraph cluster_%s {\n", cluster))
		buf.WriteString(fmt.Sprintf("    label=%q;\n", file))
		buf.WriteString("    style=filled;\n")
		buf.WriteString("    color=\"whitesmoke\";\n")

		for _, n := range d.graph.NodesInFile(file) {
			label := nodeLabel(n)
			switch {
			case seeds[n.ID]:
				buf.WriteString(fmt.Sprintf("    %q [label=%q, fillcolor=\"mistyrose\", color=\"red\", style=\"rounded,filled\", penwidth=2.0];\n", n.ID, label))
			case tierByID[n.ID] != "":
				buf.WriteString(fmt.Sprintf("    %q [label=%q, fillcolor=%q, style=\"rounded,filled\"];\n", n.ID, label, tierColor(tierByID[n.ID])))
			default:
				buf.WriteString(fmt.Sprintf("    %q [label=%q, fillcolor=\"white\", style=\"rounded,filled\"];\n", n.ID, label))
			}
		}
		buf.WriteString("  }\n\n")
	}

	for _, e := range d.graph.Edges() {
		switch {
		case e.Kind == graph.EdgeDefines:
			// Structural containment is already shown by the file clusters.
		case !e.Resolved:
			buf.WriteString(fmt.Sprintf("  %q -> %q [color=\"grey\", style=dashed, label=%q];\n", e.Src, "dangling_"+sanitizeID(e.Dst), e.Kind))
			buf.WriteString(fmt.Sprintf("  %q [label=%q, shape=ellipse, color=\"grey\", fontcolor=\"grey\"];\n", "dangling_"+sanitizeID(e.Dst), e.Dst))
		case e.Kind == graph.EdgeImports:
			buf.WriteString(fmt.Sprintf("  %q -> %q [color=\"steelblue\"];\n", e.Src, e.Dst))
		default:
			buf.WriteString(fmt.Sprintf("  %q -> %q [color=\"forestgreen\"];\n", e.Src, e.Dst))
		}
	}

	buf.WriteString("}\n")
	return buf.String(), nil
}

func (d *DOTGenerator) impactSets() (map[string]bool, map[string]ripple.Tier) {
	seeds := make(map[string]bool)
	tiers := make(map[string]ripple.Tier)
	if d.report == nil {
		return seeds, tiers
	}
	for _, s := range d.report.Seeds {
		seeds[s.Node.ID] = true
	}
	for _, n := range d.report.Impacted {
		if n.Distance > 0 {
			tiers[n.Node.ID] = n.Tier
		}
	}
	return seeds, tiers
}

func tierColor(t ripple.Tier) string {
	switch t {
	case ripple.TierHigh:
		return "lightsalmon"
	case ripple.TierMedium:
		return "khaki"
	default:
		return "lightgrey"
	}
}

func nodeLabel(n *graph.Node) string {
	name := n.ID[len(n.File)+1:]
	return fmt.Sprintf("%s\n(%s %d-%d)", name, n.Kind, n.StartLine, n.EndLine)
}

func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
