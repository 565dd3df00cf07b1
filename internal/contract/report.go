package contract

// Stages is the canonical, ordered list of pipeline stages scored on page 4.
var Stages = []string{
	"Greetings",
	"Rapport Building",
	"Discovery",
	"Needs Analysis",
	"Product Presentation",
	"Value Proposition",
	"Objection Handling",
	"Pricing Discussion",
	"Urgency Creation",
	"Closing / Registration",
	"Follow-up Planning",
}

// OverallFlowStage labels the twelfth deep-dive slot, which covers the whole conversation
const OverallFlowStage = "Overall Flow"

// DeepDiveSlot binds a deep-dive field to the stage it describes
type DeepDiveSlot struct {
	Field string
	Stage string
}

// DeepDiveSlots lists the twelve deep-dive fields in page order. Slot i (0-10) covers
// Stages[i]; the last slot covers the overall flow.
var DeepDiveSlots = []DeepDiveSlot{
	{"p7_greetings_dive", Stages[0]},
	{"p7_rapport_dive", Stages[1]},
	{"p7_discovery_dive", Stages[2]},
	{"p7_needs_dive", Stages[3]},
	{"p8_presentation_dive", Stages[4]},
	{"p8_value_dive", Stages[5]},
	{"p8_objection_dive", Stages[6]},
	{"p8_pricing_dive", Stages[7]},
	{"p9_urgency_dive", Stages[8]},
	{"p9_closing_dive", Stages[9]},
	{"p9_followup_dive", Stages[10]},
	{"p9_overall_dive", OverallFlowStage},
}

// Pages lists the report pages in render order
var Pages = []string{
	"title", "p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9", "p10",
}

var (
	levelValues   = []string{"low", "medium", "high"}
	handledValues = []string{"yes", "no", "partial"}
	outcomeValues = []string{"won", "lost", "pending", "follow_up"}
	healthValues  = []string{"healthy", "at_risk", "critical"}
	statusValues  = []string{"open", "in_progress", "done"}
	densityValues = []string{"compact", "standard", "spacious"}
)

// StageEvalField is the name of the fixed-cardinality stage evaluation list
const StageEvalField = "p4_stage_eval"

func deepDive(name string) Field {
	return objList(name, 1,
		str("stage"),
		str("objective"),
		strList("indicators", 1, 0),
		text("observed_behavior", 120),
		num("score", 0, 100, 50),
		num("weight", 0, 100, 50),
		strList("mistakes", 1, 0),
		text("coaching_notes", 120),
		str("quick_fix"),
	)
}

func buildReport() *Contract {
	fields := []Field{
		str("title"),
		str("subtitle"),
		str("client_name"),
		str("rep_name"),
		str("session_date"),
		str("session_duration"),
		str("prepared_for"),

		text("p1_executive_summary", 480),
		strList("p1_key_points", 3, 80),
		obj("p1_deal_health",
			num("score", 0, 100, 50),
			enum("label", "at_risk", healthValues...),
			text("rationale", 160),
		),
		enum("p1_outcome", "pending", outcomeValues...),

		obj("p2_client_profile",
			str("company"),
			str("role"),
			str("industry"),
			str("budget"),
			str("timeline"),
			str("decision_process"),
		),
		objList("p2_pain_points", 3,
			str("id"),
			str("title"),
			str("description"),
			enum("severity", "medium", levelValues...),
			str("quote"),
		),
		objList("p2_stakeholders", 1,
			str("name"),
			str("role"),
			enum("influence", "medium", levelValues...),
		),

		objList("p3_objections", 2,
			str("id"),
			str("objection"),
			str("response"),
			enum("resolved", "no", handledValues...),
		),
		strList("p3_buying_signals", 3, 0),
		strList("p3_competitor_mentions", 1, 0),

		fixedList(StageEvalField, Stages, "stage",
			str("stage"),
			enum("handled", "no", handledValues...),
			num("score", 0, 10, 0),
			str("note"),
		),
		num("p4_overall_score", 0, 100, 50),
		obj("p4_talk_ratio",
			num("rep_pct", 0, 100, 50),
			num("client_pct", 0, 100, 50),
		),

		objList("p5_action_items", 3,
			str("id"),
			str("title"),
			str("owner"),
			str("due_date"),
			enum("priority", "medium", levelValues...),
			enum("status", "open", statusValues...),
		),
		objList("p5_risks", 2,
			str("id"),
			str("risk"),
			enum("likelihood", "medium", levelValues...),
			enum("impact", "medium", levelValues...),
			str("mitigation"),
		),

		strList("p6_next_steps", 3, 60),
		text("p6_follow_up_email", 400),
		strList("p6_recommended_resources", 2, 0),
	}

	for _, slot := range DeepDiveSlots {
		fields = append(fields, deepDive(slot.Field))
	}

	fields = append(fields,
		objList("p10_appendix", 2,
			str("title"),
			str("content"),
			str("timestamp"),
		),
		text("p10_coaching_summary", 300),
		text("p10_methodology", 200),

		optional(obj("narratives",
			str("executive"),
			str("coaching"),
			str("outlook"),
			str("markdown"),
		)),
		optional(obj("layout_hints",
			enum("density", "standard", densityValues...),
			strList("page_order", 1, 0),
			strList("emphasis", 0, 0),
			strList("page_breaks", 0, 0),
		)),
	)

	return New(fields...)
}

var report = buildReport()

// Report returns the session report contract. The returned value is shared and must be
// treated as read-only.
func Report() *Contract {
	return report
}
