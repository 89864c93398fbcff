package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"ripple/internal/data/history"
	"ripple/internal/engine/diffmap"
	"ripple/internal/engine/graph"
	"ripple/internal/engine/ripple"
	"ripple/internal/shared/observability"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// ImpactReport is the result of one impact analysis. Seeds carry the changed
// lines that selected them; removed seeds are listed but never traversed.
type ImpactReport struct {
	RunID           string
	ChangedFiles    []string
	UnknownFiles    []string
	Seeds           []diffmap.Seed
	Impacted        []ripple.ImpactedNode
	Truncated       bool
	Risk            RiskLevel
	Recommendations []string
	Duration        time.Duration
}

func (s *Service) impactForChanges(ctx context.Context, g *graph.Graph, changes []diffmap.FileChange) (*ImpactReport, error) {
	start := time.Now()

	mapped := diffmap.MapChanges(g, changes)
	res, err := s.resolver.Resolve(ctx, g, mapped.SourceNodes())
	if err != nil {
		return nil, err
	}

	report := &ImpactReport{
		UnknownFiles: mapped.UnknownFiles,
		Seeds:        mapped.Seeds,
		Impacted:     res.Impacted,
		Truncated:    res.Truncated,
		Duration:     time.Since(start),
	}
	for _, fc := range changes {
		report.ChangedFiles = append(report.ChangedFiles, fc.Path)
	}
	report.Risk = riskLevel(res.ImpactedCount())
	report.Recommendations = recommendations(report)

	observability.ImpactRunsTotal.WithLabelValues(string(report.Risk)).Inc()

	if s.runs != nil {
		id, err := s.runs.SaveRun(history.Run{
			ProjectKey:    s.cfg.ProjectKey,
			ChangedFiles:  report.ChangedFiles,
			SeedCount:     len(report.Seeds),
			ImpactedCount: res.ImpactedCount(),
			Truncated:     report.Truncated,
			Risk:          string(report.Risk),
			DurationMs:    report.Duration.Milliseconds(),
		})
		if err != nil {
			slog.Warn("failed to record impact run", "error", err)
		} else {
			report.RunID = id
		}
	}

	return report, nil
}

// riskLevel buckets the transitive impact count.
func riskLevel(impacted int) RiskLevel {
	switch {
	case impacted == 0:
		return RiskLow
	case impacted <= 2:
		return RiskMedium
	case impacted <= 5:
		return RiskHigh
	default:
		return RiskCritical
	}
}

func recommendations(r *ImpactReport) []string {
	var out []string

	switch r.Risk {
	case RiskCritical:
		out = append(out, "Critical blast radius: split the change into smaller increments and review each impacted call site.")
	case RiskHigh:
		out = append(out, "Broad impact: run the full test suite for the affected areas before merging.")
	case RiskMedium:
		out = append(out, "Moderate impact: review the listed dependents alongside the change.")
	default:
		out = append(out, "Impact is contained to the changed entities; standard review should suffice.")
	}

	if r.Truncated {
		out = append(out, "Traversal stopped at the hop bound; distant dependents may be missing from this report.")
	}
	for _, n := range r.Impacted {
		if n.Dangling {
			out = append(out, "Some impact paths rest on name matching only; verify the low-confidence entries manually.")
			break
		}
	}
	for _, seed := range r.Seeds {
		if seed.Removed {
			out = append(out, "Deleted entities are listed directly; references to them will surface as dangling on the next analyze.")
			break
		}
	}
	if len(r.UnknownFiles) > 0 {
		out = append(out, fmt.Sprintf("%d changed file(s) are not in the graph; re-run analyze to pick them up.", len(r.UnknownFiles)))
	}

	return out
}

// FormatReport renders the report as the CLI's plain text output.
func FormatReport(r *ImpactReport) string {
	var b strings.Builder

	b.WriteString("Change Impact Analysis\n")
	b.WriteString("======================\n")
	if r.RunID != "" {
		b.WriteString(fmt.Sprintf("Run: %s\n", r.RunID))
	}
	b.WriteString(fmt.Sprintf("Risk: %s\n", r.Risk))
	b.WriteString(fmt.Sprintf("Changed files: %s\n", strings.Join(r.ChangedFiles, ", ")))
	if len(r.UnknownFiles) > 0 {
		b.WriteString(fmt.Sprintf("Not in graph: %s\n", strings.Join(r.UnknownFiles, ", ")))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Changed entities (%d)\n", len(r.Seeds)))
	for _, seed := range r.Seeds {
		line := "- " + seed.Node.ID
		switch {
		case seed.Removed:
			line += " [removed]"
		case len(seed.Lines) > 0:
			line += " (lines " + formatLines(seed.Lines) + ")"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString("\n")

	impacted := 0
	for _, n := range r.Impacted {
		if n.Distance > 0 {
			impacted++
		}
	}
	b.WriteString(fmt.Sprintf("Impacted (%d)\n", impacted))
	for _, n := range r.Impacted {
		if n.Distance == 0 {
			continue
		}
		line := fmt.Sprintf("- [%s] %s (distance %d, %s %s)",
			n.Tier, n.Node.ID, n.Distance, n.ViaKind, n.Via)
		if n.Dangling {
			line += " [name match]"
		}
		b.WriteString(line + "\n")
	}
	if r.Truncated {
		b.WriteString("\n(traversal truncated at hop bound)\n")
	}

	b.WriteString("\nRecommendations\n")
	for _, rec := range r.Recommendations {
		b.WriteString(fmt.Sprintf("- %s\n", rec))
	}

	return b.String()
}

func formatLines(ranges []diffmap.LineRange) string {
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		if r.Start == r.End {
			parts = append(parts, fmt.Sprintf("%d", r.Start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", r.Start, r.End))
		}
	}
	return strings.Join(parts, ", ")
}
