package output

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"ripple/internal/core/app"
	"ripple/internal/engine/ripple"
)

// MermaidGenerator renders an impact report as a mermaid flowchart: seeds on
// the left, dependents fanning out by distance, colored by confidence tier.
type MermaidGenerator struct {
	report *app.ImpactReport
}

func NewMermaidGenerator(report *app.ImpactReport) *MermaidGenerator {
	return &MermaidGenerator{report: report}
}

func (m *MermaidGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("flowchart LR\n")

	names := make([]string, 0, len(m.report.Impacted))
	for _, n := range m.report.Impacted {
		names = append(names, n.Node.ID)
	}
	ids := makeMermaidIDs(names)

	byTier := map[ripple.Tier][]string{}
	for _, n := range m.report.Impacted {
		b.WriteString(fmt.Sprintf("  %s[\"%s\"]\n", ids[n.Node.ID], escapeMermaidLabel(n.Node.ID)))
		byTier[n.Tier] = append(byTier[n.Tier], ids[n.Node.ID])
	}

	b.WriteString("\n")
	for _, n := range m.report.Impacted {
		if n.Via == "" {
			continue
		}
		viaID, ok := ids[n.Via]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("  %s -->|%s| %s\n", viaID, n.ViaKind, ids[n.Node.ID]))
	}

	b.WriteString("\n")
	classes := []struct {
		tier  ripple.Tier
		style string
	}{
		{ripple.TierDirect, "fill:#ffecec,stroke:#cc0000,stroke-width:2px"},
		{ripple.TierHigh, "fill:#ffe4d6,stroke:#b34700"},
		{ripple.TierMedium, "fill:#fff6d6,stroke:#8a7500"},
		{ripple.TierLow, "fill:#efefef,stroke:#808080,stroke-dasharray:4 3"},
	}
	for _, c := range classes {
		nodes := byTier[c.tier]
		if len(nodes) == 0 {
			continue
		}
		sort.Strings(nodes)
		b.WriteString(fmt.Sprintf("  classDef %sNode %s;\n", c.tier, c.style))
		b.WriteString(fmt.Sprintf("  class %s %sNode;\n", strings.Join(nodes, ","), c.tier))
	}

	return b.String(), nil
}

func sanitizeMermaidID(name string) string {
	if name == "" {
		return "n"
	}
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	out := b.String()
	if unicode.IsDigit(rune(out[0])) {
		return "n_" + out
	}
	return out
}

func makeMermaidIDs(names []string) map[string]string {
	ids := make(map[string]string, len(names))
	used := make(map[string]int, len(names))
	for _, name := range names {
		base := sanitizeMermaidID(name)
		idx := used[base]
		used[base] = idx + 1
		if idx == 0 {
			ids[name] = base
			continue
		}
		ids[name] = fmt.Sprintf("%s_%d", base, idx+1)
	}
	return ids
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
