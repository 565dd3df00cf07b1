package repair

import (
	"fmt"
	"strings"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/types"
)

// narratives fills every absent narrative from the normalized structured fields.
// Narratives the generator supplied are kept verbatim.
func narratives(raw any, r *types.ReportArtifact) *types.Narratives {
	m := object(raw)
	return &types.Narratives{
		Executive: text(m["executive"], executiveNarrative(r)),
		Coaching:  text(m["coaching"], coachingNarrative(r)),
		Outlook:   text(m["outlook"], outlookNarrative(r)),
		Markdown:  text(m["markdown"], markdownNarrative(r)),
	}
}

func executiveNarrative(r *types.ReportArtifact) string {
	return fmt.Sprintf("%s Deal health: %s (%.0f/100). Outcome: %s.",
		firstSentence(r.ExecutiveSummary), humanize(r.DealHealth.Label), r.DealHealth.Score, humanize(r.Outcome))
}

func coachingNarrative(r *types.ReportArtifact) string {
	return fmt.Sprintf("%s handled %d of %d stages and scored %.0f/100 overall. %s",
		r.RepName, handledCount(r.StageEval), len(contract.Stages), r.OverallScore, firstSentence(r.CoachingSummary))
}

func outlookNarrative(r *types.ReportArtifact) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Outcome is %s with %d open action items.", humanize(r.Outcome), openActionCount(r))
	if len(r.Risks) > 0 {
		fmt.Fprintf(&sb, " Top risk: %s.", strings.TrimRight(r.Risks[0].Risk, "."))
	}
	if len(r.NextSteps) > 0 {
		fmt.Fprintf(&sb, " Next: %s", r.NextSteps[0])
	}
	return sb.String()
}

func markdownNarrative(r *types.ReportArtifact) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title)
	fmt.Fprintf(&sb, "_%s_\n\n", r.Subtitle)
	fmt.Fprintf(&sb, "## Executive summary\n\n%s\n\n", r.ExecutiveSummary)

	sb.WriteString("## Key points\n\n")
	for _, kp := range r.KeyPoints {
		fmt.Fprintf(&sb, "- %s\n", kp)
	}

	sb.WriteString("\n## Stage evaluation\n\n| Stage | Handled | Score |\n|---|---|---|\n")
	for _, e := range r.StageEval {
		fmt.Fprintf(&sb, "| %s | %s | %g |\n", e.Stage, e.Handled, e.Score)
	}

	sb.WriteString("\n## Action items\n\n")
	for _, item := range r.ActionItems {
		fmt.Fprintf(&sb, "- [%s] %s (%s, due %s, %s priority)\n", item.ID, item.Title, item.Owner, item.DueDate, item.Priority)
	}

	sb.WriteString("\n## Next steps\n\n")
	for i, step := range r.NextSteps {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}
	return strings.TrimRight(sb.String(), "\n")
}

// layoutHints fills absent layout hints. Supplied sub-fields are kept, except that the
// density is coerced and an empty page order is replaced by the default order.
func layoutHints(raw any, r *types.ReportArtifact) *types.LayoutHints {
	m := object(raw)
	hints := &types.LayoutHints{
		Density:    enumAt("layout_hints.density", m["density"]),
		PageOrder:  stringList(m["page_order"]),
		Emphasis:   stringList(m["emphasis"]),
		PageBreaks: stringList(m["page_breaks"]),
	}
	if m["density"] == nil {
		hints.Density = suggestedDensity(r)
	}
	if len(hints.PageOrder) < minItems("layout_hints.page_order") {
		hints.PageOrder = append([]string(nil), contract.Pages...)
	}
	if m["emphasis"] == nil {
		hints.Emphasis = suggestedEmphasis(r)
	}
	if m["page_breaks"] == nil {
		hints.PageBreaks = []string{"p4", "p7", "p10"}
	}
	return hints
}

// suggestedDensity tightens the layout when the report carries a lot of list content
func suggestedDensity(r *types.ReportArtifact) string {
	items := len(r.KeyPoints) + len(r.PainPoints) + len(r.Objections) + len(r.ActionItems) + len(r.Risks) + len(r.NextSteps)
	if items > 30 {
		return "compact"
	}
	return "standard"
}

func suggestedEmphasis(r *types.ReportArtifact) []string {
	out := make([]string, 0, 3)
	if r.DealHealth.Label != "healthy" {
		out = append(out, "p1")
	}
	for _, o := range r.Objections {
		if o.Resolved != "yes" {
			out = append(out, "p3")
			break
		}
	}
	if r.HighPriorityActionCount() > 0 {
		out = append(out, "p5")
	}
	return out
}

func openActionCount(r *types.ReportArtifact) int {
	n := 0
	for _, item := range r.ActionItems {
		if item.Status != "done" {
			n++
		}
	}
	return n
}

func firstSentence(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
