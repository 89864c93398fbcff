package output

import (
	"fmt"
	"strings"

	"ripple/internal/core/app"
	"ripple/internal/engine/graph"
)

// TSVGenerator renders the edge list and impact rows as tab-separated values
// for spreadsheet and scripting consumers.
type TSVGenerator struct {
	graph *graph.Graph
}

func NewTSVGenerator(g *graph.Graph) *TSVGenerator {
	return &TSVGenerator{graph: g}
}

func (t *TSVGenerator) Generate() (string, error) {
	var buf strings.Builder

	buf.WriteString("Src\tDst\tKind\tResolved\n")
	for _, e := range t.graph.Edges() {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%t\n", e.Src, e.Dst, e.Kind, e.Resolved))
	}

	return buf.String(), nil
}

func (t *TSVGenerator) GenerateImpact(report *app.ImpactReport) (string, error) {
	var buf strings.Builder

	buf.WriteString("Node\tFile\tDistance\tTier\tVia\tViaKind\tNameMatchOnly\n")
	for _, n := range report.Impacted {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%d\t%s\t%s\t%s\t%t\n",
			n.Node.ID,
			n.Node.File,
			n.Distance,
			n.Tier,
			n.Via,
			n.ViaKind,
			n.Dangling,
		))
	}

	return buf.String(), nil
}
