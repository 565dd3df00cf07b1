// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// truncate shortens s to at most width runes
func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-3]) + "..."
}

// pad right-pads s with spaces to width runes
func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// PrintSession outputs the session a report is generated for.
func (p *Printer) PrintSession(session *types.Session, segments []types.TranscriptSegment, insights []types.Insight) {
	if session == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Title:    %s\n", session.Title))
	sb.WriteString(fmt.Sprintf("Client:   %s", session.ClientName))
	if session.ClientCompany != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", session.ClientCompany))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Rep:      %s\n", session.RepName))
	if d := types.FormatDuration(session.DurationSeconds); d != "" {
		sb.WriteString(fmt.Sprintf("Duration: %s\n", d))
	}
	sb.WriteString(fmt.Sprintf("Segments: %d\n", len(segments)))

	speakers := make(map[string]int)
	var order []string
	for _, seg := range segments {
		name := seg.Speaker
		if name == "" {
			name = "Unknown"
		}
		if _, seen := speakers[name]; !seen {
			order = append(order, name)
		}
		speakers[name]++
	}
	for _, name := range order {
		sb.WriteString(fmt.Sprintf("  • %s: %d\n", name, speakers[name]))
	}
	if len(insights) > 0 {
		sb.WriteString(fmt.Sprintf("Insights: %d\n", len(insights)))
	}

	p.printBox("SESSION", sb.String())
}

// PrintReportSummary outputs the headline fields of a generated report.
func (p *Printer) PrintReportSummary(report *types.ReportArtifact) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", report.Title))
	sb.WriteString(fmt.Sprintf("Outcome:      %s\n", report.Outcome))
	sb.WriteString(fmt.Sprintf("Deal health:  %.0f (%s)\n", report.DealHealth.Score, report.DealHealth.Label))
	sb.WriteString(fmt.Sprintf("Overall:      %.0f/100\n", report.OverallScore))
	sb.WriteString(fmt.Sprintf("Talk ratio:   rep %.0f%% / client %.0f%%\n", report.TalkRatio.RepPct, report.TalkRatio.ClientPct))
	sb.WriteString("\n")

	writeList(&sb, "Key Points", report.KeyPoints)

	sb.WriteString("Stages:\n")
	for _, stage := range report.StageEval {
		sb.WriteString(fmt.Sprintf("  %-24s %-8s %4.1f\n", stage.Stage, stage.Handled, stage.Score))
	}
	sb.WriteString("\n")

	if n := report.HighPriorityActionCount(); n > 0 {
		sb.WriteString(fmt.Sprintf("High-priority actions: %d of %d\n", n, len(report.ActionItems)))
	} else {
		sb.WriteString(fmt.Sprintf("Actions: %d\n", len(report.ActionItems)))
	}
	sb.WriteString(fmt.Sprintf("Risks: %d, Objections: %d\n", len(report.Risks), len(report.Objections)))

	p.printBox("SESSION REPORT", sb.String())
}

// PrintRecord outputs the persisted generation state for a session.
func (p *Printer) PrintRecord(rec *types.GenerationRecord) {
	if rec == nil {
		p.printBox("GENERATION", "No report has been requested for this session.")
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Session:  %s\n", rec.SessionID))
	sb.WriteString(fmt.Sprintf("Status:   %s\n", rec.Status))
	sb.WriteString(fmt.Sprintf("Attempts: %d\n", rec.Attempts))
	sb.WriteString(fmt.Sprintf("Updated:  %s\n", rec.UpdatedAt.Format("2006-01-02 15:04:05 MST")))
	if rec.LastError != nil {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", *rec.LastError))
	}

	p.printBox("GENERATION", sb.String())
}

// PrintViolations outputs contract violations found in a raw document.
func (p *Printer) PrintViolations(violations []contract.Violation) {
	if len(violations) == 0 {
		p.printBox("CONTRACT CHECK", "✓ Document satisfies the report contract")
		return
	}

	counts := make(map[contract.ViolationKind]int)
	for _, v := range violations {
		counts[v.Kind]++
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("✗ Found %d violation(s)", len(violations)))
	kinds := []contract.ViolationKind{
		contract.ViolationMissing, contract.ViolationType, contract.ViolationCardinality,
		contract.ViolationEnum, contract.ViolationRange, contract.ViolationLabel, contract.ViolationDensity,
	}
	var parts []string
	for _, k := range kinds {
		if counts[k] > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", k, counts[k]))
		}
	}
	sb.WriteString(fmt.Sprintf(" (%s)\n\n", strings.Join(parts, ", ")))

	for i, v := range violations {
		if i >= maxItemsToShow*2 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(violations)-i))
			break
		}
		sb.WriteString(fmt.Sprintf("  • %s\n", v))
	}

	p.printBox("CONTRACT CHECK", sb.String())
}

func writeList(sb *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(title + ":\n")
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
	sb.WriteString("\n")
}
