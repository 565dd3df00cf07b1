package repair

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/types"
)

const (
	noPainPoint = "No further pain point was surfaced during the session."
	noObjection = "No further objection was raised during the session."
)

const methodologyText = "This report was produced from the session transcript and the rep's notes. " +
	"Each canonical sales stage is scored from 0 to 10 on how completely it was handled, " +
	"and each deep dive is scored from 0 to 100 against the stage objective."

func painPoints(raw any) []types.PainPoint {
	items := objectItems(raw, "title")
	out := make([]types.PainPoint, 0, len(items))
	for i, m := range items {
		out = append(out, types.PainPoint{
			ID:          text(m["id"], itemID("PP", i)),
			Title:       text(m["title"], fmt.Sprintf("Pain point %d", i+1)),
			Description: text(m["description"], text(m["title"], notAssessed)),
			Severity:    enumAt("p2_pain_points.severity", m["severity"]),
			Quote:       text(m["quote"], noQuote),
		})
	}
	for i := len(out); i < minItems("p2_pain_points"); i++ {
		out = append(out, types.PainPoint{
			ID:          itemID("PP", i),
			Title:       fmt.Sprintf("Pain point %d", i+1),
			Description: noPainPoint,
			Severity:    report.MustLookup("p2_pain_points.severity").DefaultEnum,
			Quote:       noQuote,
		})
	}
	return out
}

func stakeholders(raw any, clientName string) []types.Stakeholder {
	items := objectItems(raw, "name")
	out := make([]types.Stakeholder, 0, len(items))
	for _, m := range items {
		out = append(out, types.Stakeholder{
			Name:      text(m["name"], "Unnamed stakeholder"),
			Role:      text(m["role"], "Not disclosed"),
			Influence: enumAt("p2_stakeholders.influence", m["influence"]),
		})
	}
	if len(out) < minItems("p2_stakeholders") {
		out = append(out, types.Stakeholder{
			Name:      clientName,
			Role:      "Primary contact",
			Influence: report.MustLookup("p2_stakeholders.influence").DefaultEnum,
		})
	}
	return out
}

func objections(raw any) []types.Objection {
	items := objectItems(raw, "objection")
	out := make([]types.Objection, 0, len(items))
	for i, m := range items {
		out = append(out, types.Objection{
			ID:        text(m["id"], itemID("OB", i)),
			Objection: text(m["objection"], notAssessed),
			Response:  text(m["response"], noResponse),
			Resolved:  enumAt("p3_objections.resolved", m["resolved"]),
		})
	}
	for i := len(out); i < minItems("p3_objections"); i++ {
		out = append(out, types.Objection{
			ID:        itemID("OB", i),
			Objection: noObjection,
			Response:  noResponse,
			Resolved:  report.MustLookup("p3_objections.resolved").DefaultEnum,
		})
	}
	return out
}

func actionItems(raw any, owner, due string) []types.ActionItem {
	items := objectItems(raw, "title")
	out := make([]types.ActionItem, 0, len(items))
	for i, m := range items {
		out = append(out, types.ActionItem{
			ID:       text(m["id"], itemID("AI", i)),
			Title:    text(m["title"], fmt.Sprintf("Action item %d", i+1)),
			Owner:    text(m["owner"], owner),
			DueDate:  text(m["due_date"], due),
			Priority: enumAt("p5_action_items.priority", m["priority"]),
			Status:   enumAt("p5_action_items.status", m["status"]),
		})
	}
	for i := len(out); i < minItems("p5_action_items"); i++ {
		out = append(out, types.ActionItem{
			ID:       itemID("AI", i),
			Title:    fallbackActionTitle(i),
			Owner:    owner,
			DueDate:  due,
			Priority: report.MustLookup("p5_action_items.priority").DefaultEnum,
			Status:   report.MustLookup("p5_action_items.status").DefaultEnum,
		})
	}
	return out
}

var fallbackActions = []string{
	"Send a written recap of the session",
	"Confirm decision makers and timeline",
	"Schedule the next meeting",
}

func fallbackActionTitle(i int) string {
	if i < len(fallbackActions) {
		return fallbackActions[i]
	}
	return fmt.Sprintf("Follow-up action %d", i+1)
}

func risks(raw any) []types.Risk {
	items := objectItems(raw, "risk")
	out := make([]types.Risk, 0, len(items))
	for i, m := range items {
		out = append(out, types.Risk{
			ID:         text(m["id"], itemID("RK", i)),
			Risk:       text(m["risk"], notAssessed),
			Likelihood: enumAt("p5_risks.likelihood", m["likelihood"]),
			Impact:     enumAt("p5_risks.impact", m["impact"]),
			Mitigation: text(m["mitigation"], "Review during the next conversation."),
		})
	}
	for i := len(out); i < minItems("p5_risks"); i++ {
		out = append(out, types.Risk{
			ID:         itemID("RK", i),
			Risk:       fallbackRisk(i),
			Likelihood: report.MustLookup("p5_risks.likelihood").DefaultEnum,
			Impact:     report.MustLookup("p5_risks.impact").DefaultEnum,
			Mitigation: "Review during the next conversation.",
		})
	}
	return out
}

func fallbackRisk(i int) string {
	switch i {
	case 0:
		return "Decision timeline is not confirmed"
	case 1:
		return "Budget has not been validated"
	default:
		return fmt.Sprintf("Unassessed risk %d", i+1)
	}
}

func appendixItems(raw any) []types.AppendixItem {
	items := objectItems(raw, "content")
	out := make([]types.AppendixItem, 0, len(items))
	for i, m := range items {
		out = append(out, types.AppendixItem{
			Title:     text(m["title"], fmt.Sprintf("Excerpt %d", i+1)),
			Content:   text(m["content"], notAssessed),
			Timestamp: text(m["timestamp"], notRecorded),
		})
	}
	for i := len(out); i < minItems("p10_appendix"); i++ {
		out = append(out, types.AppendixItem{
			Title:     fmt.Sprintf("Excerpt %d", i+1),
			Content:   "No additional transcript excerpt was selected.",
			Timestamp: notRecorded,
		})
	}
	return out
}

// deepDiveList repairs one deep-dive slot. The slot defines the stage, so generator
// supplied stage labels are overwritten.
func deepDiveList(raw any, slot contract.DeepDiveSlot) []types.StageDeepDive {
	path := slot.Field
	items := objectItems(raw, "observed_behavior")
	out := make([]types.StageDeepDive, 0, len(items))
	for _, m := range items {
		out = append(out, deepDive(path, slot.Stage, m))
	}
	if len(out) < minItems(path) {
		out = append(out, deepDive(path, slot.Stage, map[string]any{}))
	}
	return out
}

func deepDive(path, stage string, m map[string]any) types.StageDeepDive {
	return types.StageDeepDive{
		Stage:     stage,
		Objective: text(m["objective"], stageObjective(stage)),
		Indicators: padStrings(stringList(m["indicators"]), minItems(path+".indicators"),
			nil, func(int) string { return "No indicator was observed for this stage." }),
		ObservedBehavior: text(m["observed_behavior"], fmt.Sprintf("%s was not clearly observed in the transcript.", stage)),
		Score:            numberAt(path+".score", m["score"]),
		Weight:           numberAt(path+".weight", m["weight"]),
		Mistakes: padStrings(stringList(m["mistakes"]), minItems(path+".mistakes"),
			nil, func(int) string { return "No specific mistake was identified." }),
		CoachingNotes: text(m["coaching_notes"], fmt.Sprintf("Review how %s was approached.", stage)),
		QuickFix:      text(m["quick_fix"], fmt.Sprintf("Prepare one concrete question for %s before the next call.", stage)),
	}
}

var stageObjectives = map[string]string{
	"Greetings":               "Open the conversation warmly and set the agenda.",
	"Rapport Building":        "Build trust and find common ground with the client.",
	"Discovery":               "Uncover the client's situation, goals and constraints.",
	"Needs Analysis":          "Translate discovery into concrete, prioritized needs.",
	"Product Presentation":    "Present the offering in terms of the client's needs.",
	"Value Proposition":       "Connect the offering to measurable client outcomes.",
	"Objection Handling":      "Acknowledge and resolve the client's concerns.",
	"Pricing Discussion":      "Present pricing with confidence and anchor it to value.",
	"Urgency Creation":        "Establish a reason to act now.",
	"Closing / Registration":  "Ask for the commitment and secure the next concrete step.",
	"Follow-up Planning":      "Agree on owners, dates and the next touchpoint.",
	contract.OverallFlowStage: "Move the conversation through every stage in a natural order.",
}

func stageObjective(stage string) string {
	if obj, ok := stageObjectives[stage]; ok {
		return obj
	}
	return "Handle this stage effectively."
}

// dueDate is one week after the session date, or TBD when the date is unknown
func dueDate(sessionDate string) string {
	t, err := time.Parse(dateLayout, sessionDate)
	if err != nil {
		return "TBD"
	}
	return t.AddDate(0, 0, 7).Format(dateLayout)
}

func keyPointCandidates(r *types.ReportArtifact) []string {
	var out []string
	for _, pp := range r.PainPoints {
		if pp.Description != noPainPoint {
			out = append(out, fmt.Sprintf("%s raised a pain point: %s.", r.ClientName, strings.TrimRight(pp.Title, ".")))
			break
		}
	}
	for _, o := range r.Objections {
		if o.Objection != noObjection && o.Objection != notAssessed {
			out = append(out, fmt.Sprintf("Main objection: %s.", strings.TrimRight(o.Objection, ".")))
			break
		}
	}
	if len(r.ActionItems) > 0 {
		out = append(out, fmt.Sprintf("Agreed next action: %s.", r.ActionItems[0].Title))
	}
	return out
}

func nextStepCandidates(r *types.ReportArtifact) []string {
	out := make([]string, 0, len(r.ActionItems))
	for _, item := range r.ActionItems {
		out = append(out, fmt.Sprintf("%s (owner: %s, due %s).", item.Title, item.Owner, item.DueDate))
	}
	return out
}

func dealHealthRationale(r *types.ReportArtifact) string {
	return fmt.Sprintf("Deal health reflects %d action items (%d high priority) and %d identified risks.",
		len(r.ActionItems), r.HighPriorityActionCount(), len(r.Risks))
}
