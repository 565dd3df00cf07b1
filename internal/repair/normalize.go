// Package repair turns an arbitrary, possibly partial, decoded generator response into a
// complete session report artifact.
//
// Repair is field-local: every field is defaulted, coerced, clamped or padded on its own,
// so valid generator output survives untouched. Normalize is total and idempotent:
// normalizing the JSON encoding of a normalized artifact yields the same artifact.
package repair

import (
	"encoding/json"
	"fmt"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/parsing"
	"github.com/jonathan/session-report/internal/types"
)

// Hints carries session facts used when the generator omitted the matching field.
// Hints never override generator values.
type Hints struct {
	ClientName      string
	ClientCompany   string
	RepName         string
	SessionDate     string
	SessionDuration string
}

// HintsFromSession derives hints from the stored session
func HintsFromSession(s *types.Session) Hints {
	if s == nil {
		return Hints{}
	}
	h := Hints{
		ClientName:      s.ClientName,
		ClientCompany:   s.ClientCompany,
		RepName:         s.RepName,
		SessionDuration: types.FormatDuration(s.DurationSeconds),
	}
	if !s.StartedAt.IsZero() {
		h.SessionDate = s.StartedAt.Format(dateLayout)
	}
	return h
}

const dateLayout = "2006-01-02"

// Normalize repairs raw into a complete artifact. A nil map is treated as empty.
func Normalize(raw map[string]any) *types.ReportArtifact {
	return NormalizeWith(raw, Hints{})
}

// NormalizeWith is Normalize with session hints for fields the generator left out
func NormalizeWith(raw map[string]any, hints Hints) *types.ReportArtifact {
	if raw == nil {
		raw = map[string]any{}
	}
	n := &normalizer{raw: raw, hints: hints, out: &types.ReportArtifact{}}
	n.titlePage()
	n.clientContext()
	n.objectionsAndSignals()
	n.stageEvaluation()
	n.actionsAndRisks()
	n.overview()
	n.followUp()
	n.deepDives()
	n.appendix()
	enforceDensity(n.out)
	n.extendedSections()
	return n.out
}

// NormalizeJSON decodes generator output and normalizes it
func NormalizeJSON(data []byte) (*types.ReportArtifact, error) {
	raw, err := parsing.Decode(string(data))
	if err != nil {
		return nil, &Error{Message: "input is not a JSON object", Cause: err}
	}
	return Normalize(raw), nil
}

// ToMap encodes an artifact as a generic JSON document, the shape the generator returns
func ToMap(a *types.ReportArtifact) (map[string]any, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode artifact: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode artifact: %w", err)
	}
	return doc, nil
}

type normalizer struct {
	raw   map[string]any
	hints Hints
	out   *types.ReportArtifact
}

func (n *normalizer) titlePage() {
	r := n.out
	r.ClientName = text(n.raw["client_name"], orDefault(n.hints.ClientName, "Unnamed client"))
	r.RepName = text(n.raw["rep_name"], orDefault(n.hints.RepName, "Sales representative"))
	r.Title = text(n.raw["title"], "Session Report: "+r.ClientName)
	r.Subtitle = text(n.raw["subtitle"], fmt.Sprintf("Sales conversation with %s led by %s", r.ClientName, r.RepName))
	r.SessionDate = text(n.raw["session_date"], orDefault(n.hints.SessionDate, notRecorded))
	r.SessionDuration = text(n.raw["session_duration"], orDefault(n.hints.SessionDuration, notRecorded))
	r.PreparedFor = text(n.raw["prepared_for"], r.RepName)
}

func (n *normalizer) overview() {
	r := n.out
	r.ExecutiveSummary = text(n.raw["p1_executive_summary"],
		fmt.Sprintf("This report summarizes the sales session between %s and %s.", r.RepName, r.ClientName))
	r.KeyPoints = padStrings(stringList(n.raw["p1_key_points"]), minItems("p1_key_points"),
		keyPointCandidates(r), func(i int) string {
			return fmt.Sprintf("Key point %d was not captured by the analysis of this session.", i+1)
		})

	health := object(n.raw["p1_deal_health"])
	r.DealHealth = types.DealHealth{
		Score: numberAt("p1_deal_health.score", health["score"]),
		Label: enumAt("p1_deal_health.label", health["label"]),
	}
	r.DealHealth.Rationale = text(health["rationale"], dealHealthRationale(r))
	r.Outcome = enumAt("p1_outcome", n.raw["p1_outcome"])
}

func (n *normalizer) clientContext() {
	r := n.out
	profile := object(n.raw["p2_client_profile"])
	r.ClientProfile = types.ClientProfile{
		Company:         text(profile["company"], orDefault(n.hints.ClientCompany, "Not disclosed")),
		Role:            text(profile["role"], "Not disclosed"),
		Industry:        text(profile["industry"], "Not disclosed"),
		Budget:          text(profile["budget"], "Not discussed"),
		Timeline:        text(profile["timeline"], "Not discussed"),
		DecisionProcess: text(profile["decision_process"], "Not discussed"),
	}
	r.PainPoints = painPoints(n.raw["p2_pain_points"])
	r.Stakeholders = stakeholders(n.raw["p2_stakeholders"], r.ClientName)
}

func (n *normalizer) objectionsAndSignals() {
	r := n.out
	r.Objections = objections(n.raw["p3_objections"])
	r.BuyingSignals = padStrings(stringList(n.raw["p3_buying_signals"]), minItems("p3_buying_signals"),
		nil, func(i int) string {
			return fmt.Sprintf("No further buying signal was observed (signal %d).", i+1)
		})
	r.CompetitorMentions = padStrings(stringList(n.raw["p3_competitor_mentions"]), minItems("p3_competitor_mentions"),
		nil, func(int) string { return "No competitors were mentioned." })
}

func (n *normalizer) stageEvaluation() {
	r := n.out
	r.StageEval = stageEvaluations(n.raw["p4_stage_eval"])
	r.OverallScore = numberAt("p4_overall_score", n.raw["p4_overall_score"])
	ratio := object(n.raw["p4_talk_ratio"])
	r.TalkRatio = types.TalkRatio{
		RepPct:    numberAt("p4_talk_ratio.rep_pct", ratio["rep_pct"]),
		ClientPct: numberAt("p4_talk_ratio.client_pct", ratio["client_pct"]),
	}
}

func (n *normalizer) actionsAndRisks() {
	r := n.out
	r.ActionItems = actionItems(n.raw["p5_action_items"], r.RepName, dueDate(r.SessionDate))
	r.Risks = risks(n.raw["p5_risks"])
}

func (n *normalizer) followUp() {
	r := n.out
	r.NextSteps = padStrings(stringList(n.raw["p6_next_steps"]), minItems("p6_next_steps"),
		nextStepCandidates(r), func(i int) string {
			return fmt.Sprintf("Confirm follow-up step %d with %s.", i+1, r.ClientName)
		})
	r.FollowUpEmail = text(n.raw["p6_follow_up_email"], fmt.Sprintf("Hi %s,", r.ClientName))
	r.RecommendedResources = padStrings(stringList(n.raw["p6_recommended_resources"]), minItems("p6_recommended_resources"),
		[]string{"Product overview deck", "Customer case study relevant to the client's industry"},
		func(i int) string { return fmt.Sprintf("Supporting resource %d", i+1) })
}

func (n *normalizer) deepDives() {
	for _, slot := range contract.DeepDiveSlots {
		*n.out.DeepDiveSlot(slot.Field) = deepDiveList(n.raw[slot.Field], slot)
	}
}

func (n *normalizer) appendix() {
	r := n.out
	r.Appendix = appendixItems(n.raw["p10_appendix"])
	r.CoachingSummary = text(n.raw["p10_coaching_summary"],
		fmt.Sprintf("Coaching focus for %s after the session with %s.", r.RepName, r.ClientName))
	r.Methodology = text(n.raw["p10_methodology"], methodologyText)
}

func (n *normalizer) extendedSections() {
	r := n.out
	r.Narratives = narratives(n.raw["narratives"], r)
	r.LayoutHints = layoutHints(n.raw["layout_hints"], r)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
