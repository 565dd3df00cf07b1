package repair

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/types"
)

// densitySlot is one string that must reach its field's character target, with the
// context clauses that may be appended to it
type densitySlot struct {
	value   *string
	clauses []string
}

// densityRule expands every value stored under a contract path
type densityRule struct {
	path  string
	slots func(r *types.ReportArtifact) []densitySlot
}

// fillers are appended in rotation once the context clauses run out
var fillers = []string{
	"Further detail was not available in the session transcript.",
	"Review the recording for additional context before the next conversation.",
}

var densityRules = buildDensityRules()

func buildDensityRules() []densityRule {
	rules := []densityRule{
		{path: "p1_key_points", slots: func(r *types.ReportArtifact) []densitySlot {
			return listSlots(r.KeyPoints, []string{
				fmt.Sprintf("This came up in the conversation between %s and %s.", r.RepName, r.ClientName),
				"It should be reflected in the follow-up plan.",
			})
		}},
		{path: "p1_deal_health.rationale", slots: func(r *types.ReportArtifact) []densitySlot {
			return []densitySlot{{value: &r.DealHealth.Rationale, clauses: []string{
				fmt.Sprintf("The deal is labeled %s with a health score of %.0f out of 100.", humanize(r.DealHealth.Label), r.DealHealth.Score),
				fmt.Sprintf("%d of %d canonical stages were fully handled.", handledCount(r.StageEval), len(contract.Stages)),
				fmt.Sprintf("The overall session score is %.0f out of 100.", r.OverallScore),
				fmt.Sprintf("The current outcome is %s.", humanize(r.Outcome)),
			}}}
		}},
		{path: "p1_executive_summary", slots: func(r *types.ReportArtifact) []densitySlot {
			return []densitySlot{{value: &r.ExecutiveSummary, clauses: summaryClauses(r)}}
		}},
		{path: "p6_next_steps", slots: func(r *types.ReportArtifact) []densitySlot {
			return listSlots(r.NextSteps, []string{
				fmt.Sprintf("Confirm this with %s in writing.", r.ClientName),
				"Track progress before the next touchpoint.",
			})
		}},
		{path: "p6_follow_up_email", slots: func(r *types.ReportArtifact) []densitySlot {
			return []densitySlot{{value: &r.FollowUpEmail, clauses: emailClauses(r)}}
		}},
		{path: "p10_coaching_summary", slots: func(r *types.ReportArtifact) []densitySlot {
			return []densitySlot{{value: &r.CoachingSummary, clauses: coachingClauses(r)}}
		}},
		{path: "p10_methodology", slots: func(r *types.ReportArtifact) []densitySlot {
			return []densitySlot{{value: &r.Methodology, clauses: []string{methodologyText}}}
		}},
	}

	for _, slot := range contract.DeepDiveSlots {
		field := slot.Field
		rules = append(rules,
			densityRule{path: field + ".observed_behavior", slots: func(r *types.ReportArtifact) []densitySlot {
				dives := *r.DeepDiveSlot(field)
				out := make([]densitySlot, 0, len(dives))
				for i := range dives {
					d := &dives[i]
					out = append(out, densitySlot{value: &d.ObservedBehavior, clauses: []string{
						fmt.Sprintf("%s was scored %.0f out of 100 with a weight of %.0f.", d.Stage, d.Score, d.Weight),
						fmt.Sprintf("Indicators considered: %s.", strings.TrimRight(strings.Join(d.Indicators, "; "), ".")),
					}})
				}
				return out
			}},
			densityRule{path: field + ".coaching_notes", slots: func(r *types.ReportArtifact) []densitySlot {
				dives := *r.DeepDiveSlot(field)
				out := make([]densitySlot, 0, len(dives))
				for i := range dives {
					d := &dives[i]
					out = append(out, densitySlot{value: &d.CoachingNotes, clauses: []string{
						"Objective: " + d.Objective,
						"Quick fix: " + d.QuickFix,
					}})
				}
				return out
			}},
		)
	}
	return rules
}

// enforceDensity expands every field below its character target
func enforceDensity(r *types.ReportArtifact) {
	for _, rule := range densityRules {
		target := report.MustLookup(rule.path).MinChars
		for _, slot := range rule.slots(r) {
			*slot.value = expand(*slot.value, target, slot.clauses)
		}
	}
}

// expand appends clauses, then fillers, to value until it holds at least target runes.
// Values already at the target are returned unchanged; nothing is ever removed except
// surrounding whitespace of a value that needs expanding.
func expand(value string, target int, clauses []string) string {
	if utf8.RuneCountInString(value) >= target {
		return value
	}
	out := terminate(strings.TrimSpace(value))
	add := func(clause string) {
		if out == "" {
			out = clause
			return
		}
		out += " " + clause
	}
	for _, clause := range clauses {
		if utf8.RuneCountInString(out) >= target {
			return out
		}
		if clause == "" || strings.Contains(out, clause) {
			continue
		}
		add(clause)
	}
	for i := 0; utf8.RuneCountInString(out) < target; i++ {
		add(fillers[i%len(fillers)])
	}
	return out
}

// terminate closes a sentence that ends in a letter or digit
func terminate(s string) string {
	last, _ := utf8.DecodeLastRuneInString(s)
	if unicode.IsLetter(last) || unicode.IsDigit(last) {
		return s + "."
	}
	return s
}

func listSlots(items []string, clauses []string) []densitySlot {
	out := make([]densitySlot, 0, len(items))
	for i := range items {
		out = append(out, densitySlot{value: &items[i], clauses: clauses})
	}
	return out
}

func summaryClauses(r *types.ReportArtifact) []string {
	out := []string{
		fmt.Sprintf("The session with %s was led by %s.", r.ClientName, r.RepName),
	}
	if r.SessionDate != notRecorded {
		out = append(out, fmt.Sprintf("It took place on %s.", r.SessionDate))
	}
	out = append(out,
		fmt.Sprintf("Overall performance scored %.0f out of 100 and deal health is %s at %.0f out of 100.",
			r.OverallScore, humanize(r.DealHealth.Label), r.DealHealth.Score),
		fmt.Sprintf("%d of %d canonical stages were fully handled.", handledCount(r.StageEval), len(contract.Stages)),
		fmt.Sprintf("%d action items were captured, %d of them high priority.", len(r.ActionItems), r.HighPriorityActionCount()),
		fmt.Sprintf("%d objections and %d risks were identified.", len(r.Objections), len(r.Risks)),
	)
	if w, ok := weakestStage(r.StageEval); ok {
		out = append(out, fmt.Sprintf("The weakest stage was %s with a score of %.0f out of 10.", w.Stage, w.Score))
	}
	out = append(out, fmt.Sprintf("The current outcome is %s.", humanize(r.Outcome)))
	return out
}

func emailClauses(r *types.ReportArtifact) []string {
	out := []string{"Thank you for taking the time to speak with me."}
	if len(r.NextSteps) > 0 {
		out = append(out, "As discussed, the next steps are: "+strings.Join(r.NextSteps, " "))
	}
	out = append(out,
		"I will follow up on the open items and share any materials you need.",
		"Please let me know if anything is missing or if your timeline changes.",
		"Best regards, "+r.RepName,
	)
	return out
}

func coachingClauses(r *types.ReportArtifact) []string {
	out := []string{
		fmt.Sprintf("Overall performance scored %.0f out of 100.", r.OverallScore),
		fmt.Sprintf("%d of %d canonical stages were fully handled.", handledCount(r.StageEval), len(contract.Stages)),
	}
	if w, ok := weakestStage(r.StageEval); ok {
		out = append(out, fmt.Sprintf("Focus practice on %s before the next call.", w.Stage))
	}
	out = append(out,
		fmt.Sprintf("Talk time was %.0f%% rep and %.0f%% client.", r.TalkRatio.RepPct, r.TalkRatio.ClientPct),
		"The deep dives list specific mistakes and quick fixes for each stage.",
	)
	return out
}

func humanize(enum string) string {
	return strings.ReplaceAll(enum, "_", " ")
}
