// Package types provides type definitions for structured data used throughout the session-report system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// ReportArtifact is the complete, normalized session report persisted with a ready
// generation record and consumed by the renderer. It is replaced wholesale on regeneration.
type ReportArtifact struct {
	// Title page
	Title           string `json:"title"`
	Subtitle        string `json:"subtitle"`
	ClientName      string `json:"client_name"`
	RepName         string `json:"rep_name"`
	SessionDate     string `json:"session_date"`
	SessionDuration string `json:"session_duration"`
	PreparedFor     string `json:"prepared_for"`

	// Page 1: executive overview
	ExecutiveSummary string     `json:"p1_executive_summary"`
	KeyPoints        []string   `json:"p1_key_points"`
	DealHealth       DealHealth `json:"p1_deal_health"`
	Outcome          string     `json:"p1_outcome"`

	// Page 2: client context
	ClientProfile ClientProfile `json:"p2_client_profile"`
	PainPoints    []PainPoint   `json:"p2_pain_points"`
	Stakeholders  []Stakeholder `json:"p2_stakeholders"`

	// Page 3: objections and signals
	Objections         []Objection `json:"p3_objections"`
	BuyingSignals      []string    `json:"p3_buying_signals"`
	CompetitorMentions []string    `json:"p3_competitor_mentions"`

	// Page 4: stage evaluation
	StageEval    []StageEvaluation `json:"p4_stage_eval"`
	OverallScore float64           `json:"p4_overall_score"`
	TalkRatio    TalkRatio         `json:"p4_talk_ratio"`

	// Page 5: actions and risks
	ActionItems []ActionItem `json:"p5_action_items"`
	Risks       []Risk       `json:"p5_risks"`

	// Page 6: follow-up
	NextSteps            []string `json:"p6_next_steps"`
	FollowUpEmail        string   `json:"p6_follow_up_email"`
	RecommendedResources []string `json:"p6_recommended_resources"`

	// Pages 7-9: per-stage deep dives, one slot per canonical stage plus the overall flow
	GreetingsDive    []StageDeepDive `json:"p7_greetings_dive"`
	RapportDive      []StageDeepDive `json:"p7_rapport_dive"`
	DiscoveryDive    []StageDeepDive `json:"p7_discovery_dive"`
	NeedsDive        []StageDeepDive `json:"p7_needs_dive"`
	PresentationDive []StageDeepDive `json:"p8_presentation_dive"`
	ValueDive        []StageDeepDive `json:"p8_value_dive"`
	ObjectionDive    []StageDeepDive `json:"p8_objection_dive"`
	PricingDive      []StageDeepDive `json:"p8_pricing_dive"`
	UrgencyDive      []StageDeepDive `json:"p9_urgency_dive"`
	ClosingDive      []StageDeepDive `json:"p9_closing_dive"`
	FollowupDive     []StageDeepDive `json:"p9_followup_dive"`
	OverallDive      []StageDeepDive `json:"p9_overall_dive"`

	// Page 10: appendix
	Appendix        []AppendixItem `json:"p10_appendix"`
	CoachingSummary string         `json:"p10_coaching_summary"`
	Methodology     string         `json:"p10_methodology"`

	// Extended sections
	Narratives  *Narratives  `json:"narratives,omitempty"`
	LayoutHints *LayoutHints `json:"layout_hints,omitempty"`
}

// DealHealth summarizes how likely the deal is to close
type DealHealth struct {
	Score     float64 `json:"score"`
	Label     string  `json:"label"`
	Rationale string  `json:"rationale"`
}

// ClientProfile captures what was learned about the buyer
type ClientProfile struct {
	Company         string `json:"company"`
	Role            string `json:"role"`
	Industry        string `json:"industry"`
	Budget          string `json:"budget"`
	Timeline        string `json:"timeline"`
	DecisionProcess string `json:"decision_process"`
}

// PainPoint is a problem the client described
type PainPoint struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Quote       string `json:"quote"`
}

// Stakeholder is a person involved in the buying decision
type Stakeholder struct {
	Name      string `json:"name"`
	Role      string `json:"role"`
	Influence string `json:"influence"`
}

// Objection is a concern raised by the client and how it was answered
type Objection struct {
	ID        string `json:"id"`
	Objection string `json:"objection"`
	Response  string `json:"response"`
	Resolved  string `json:"resolved"`
}

// StageEvaluation scores one canonical pipeline stage. Its identity is its position in
// the stage list, not the label the generator supplied.
type StageEvaluation struct {
	Stage   string  `json:"stage"`
	Handled string  `json:"handled"`
	Score   float64 `json:"score"`
	Note    string  `json:"note"`
}

// TalkRatio is the share of speaking time per side, in percent
type TalkRatio struct {
	RepPct    float64 `json:"rep_pct"`
	ClientPct float64 `json:"client_pct"`
}

// ActionItem is a follow-up task agreed during or after the session
type ActionItem struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Owner    string `json:"owner"`
	DueDate  string `json:"due_date"`
	Priority string `json:"priority"`
	Status   string `json:"status"`
}

// Risk is something that could stall or lose the deal
type Risk struct {
	ID         string `json:"id"`
	Risk       string `json:"risk"`
	Likelihood string `json:"likelihood"`
	Impact     string `json:"impact"`
	Mitigation string `json:"mitigation"`
}

// StageDeepDive is the detailed coaching record for a single stage
type StageDeepDive struct {
	Stage            string   `json:"stage"`
	Objective        string   `json:"objective"`
	Indicators       []string `json:"indicators"`
	ObservedBehavior string   `json:"observed_behavior"`
	Score            float64  `json:"score"`
	Weight           float64  `json:"weight"`
	Mistakes         []string `json:"mistakes"`
	CoachingNotes    string   `json:"coaching_notes"`
	QuickFix         string   `json:"quick_fix"`
}

// AppendixItem is a supporting excerpt, usually a transcript highlight
type AppendixItem struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// Narratives holds free-form prose sections rendered alongside the structured pages
type Narratives struct {
	Executive string `json:"executive"`
	Coaching  string `json:"coaching"`
	Outlook   string `json:"outlook"`
	Markdown  string `json:"markdown"`
}

// LayoutHints carries optional rendering hints
type LayoutHints struct {
	Density    string   `json:"density"`
	PageOrder  []string `json:"page_order"`
	Emphasis   []string `json:"emphasis"`
	PageBreaks []string `json:"page_breaks"`
}

// DeepDiveSlot returns a pointer to the deep-dive slice stored under the given JSON field
// name, or nil if the name is not a deep-dive slot.
func (r *ReportArtifact) DeepDiveSlot(field string) *[]StageDeepDive {
	switch field {
	case "p7_greetings_dive":
		return &r.GreetingsDive
	case "p7_rapport_dive":
		return &r.RapportDive
	case "p7_discovery_dive":
		return &r.DiscoveryDive
	case "p7_needs_dive":
		return &r.NeedsDive
	case "p8_presentation_dive":
		return &r.PresentationDive
	case "p8_value_dive":
		return &r.ValueDive
	case "p8_objection_dive":
		return &r.ObjectionDive
	case "p8_pricing_dive":
		return &r.PricingDive
	case "p9_urgency_dive":
		return &r.UrgencyDive
	case "p9_closing_dive":
		return &r.ClosingDive
	case "p9_followup_dive":
		return &r.FollowupDive
	case "p9_overall_dive":
		return &r.OverallDive
	default:
		return nil
	}
}

// HighPriorityActionCount returns how many action items are marked high priority
func (r *ReportArtifact) HighPriorityActionCount() int {
	n := 0
	for _, item := range r.ActionItems {
		if item.Priority == "high" {
			n++
		}
	}
	return n
}
