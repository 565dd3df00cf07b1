package contract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReport_Shape(t *testing.T) {
	c := Report()

	assert.Len(t, Stages, 11)
	assert.Len(t, DeepDiveSlots, 12)
	assert.Equal(t, OverallFlowStage, DeepDiveSlots[11].Stage)

	required := c.RequiredFields()
	assert.Contains(t, required, "title")
	assert.Contains(t, required, StageEvalField)
	assert.Contains(t, required, "p9_overall_dive")
	assert.NotContains(t, required, "narratives")
	assert.NotContains(t, required, "layout_hints")

	stageEval := c.MustLookup(StageEvalField)
	assert.Equal(t, KindFixedList, stageEval.Kind)
	assert.Equal(t, Stages, stageEval.Labels)
}

func TestLookup(t *testing.T) {
	c := Report()

	f, ok := c.Lookup("p5_action_items.priority")
	require.True(t, ok)
	assert.Equal(t, KindEnum, f.Kind)
	assert.Equal(t, "medium", f.DefaultEnum)

	_, ok = c.Lookup("p5_action_items.nope")
	assert.False(t, ok)

	assert.Panics(t, func() { c.MustLookup("missing") })
}

func TestDensityTargets(t *testing.T) {
	targets := Report().DensityTargets()
	assert.Equal(t, 480, targets["p1_executive_summary"])
	assert.Equal(t, 80, targets["p1_key_points"])
	assert.Equal(t, 120, targets["p7_greetings_dive.observed_behavior"])
	_, ok := targets["title"]
	assert.False(t, ok)
}

func TestField_CoerceEnum(t *testing.T) {
	f := Report().MustLookup("p1_outcome")

	tests := []struct {
		raw  string
		want string
	}{
		{"won", "won"},
		{"Won", "won"},
		{"  LOST ", "lost"},
		{"follow up", "follow_up"},
		{"follow-up", "follow_up"},
		{"maybe", "pending"},
		{"", "pending"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, f.CoerceEnum(tt.raw))
		})
	}
}

func TestField_Clamp(t *testing.T) {
	f := Report().MustLookup("p4_overall_score")
	assert.Equal(t, 0.0, f.Clamp(-5))
	assert.Equal(t, 100.0, f.Clamp(140))
	assert.Equal(t, 73.5, f.Clamp(73.5))
	assert.True(t, f.InRange(100))
	assert.False(t, f.InRange(100.5))
}

func TestCheck_EmptyDocument(t *testing.T) {
	c := Report()
	violations := c.Check(map[string]any{})
	require.Len(t, violations, len(c.RequiredFields()))
	for _, v := range violations {
		assert.Equal(t, ViolationMissing, v.Kind)
	}
}

func TestCheck_ReportsEachKind(t *testing.T) {
	c := New(
		str("title"),
		text("summary", 20),
		enum("outcome", "pending", "won", "lost"),
		num("score", 0, 100, 50),
		strList("points", 2, 0),
		fixedList("stages", []string{"A", "B"}, "stage", str("stage")),
		optional(str("notes")),
	)

	doc := map[string]any{
		"title":   42.0,
		"summary": "too short",
		"outcome": "tie",
		"score":   101.0,
		"points":  []any{"one"},
		"stages":  []any{map[string]any{"stage": "B"}, map[string]any{"stage": "A"}},
	}

	kinds := make(map[ViolationKind][]string)
	for _, v := range c.Check(doc) {
		kinds[v.Kind] = append(kinds[v.Kind], v.Path)
	}

	assert.Equal(t, []string{"title"}, kinds[ViolationType])
	assert.Equal(t, []string{"summary"}, kinds[ViolationDensity])
	assert.Equal(t, []string{"outcome"}, kinds[ViolationEnum])
	assert.Equal(t, []string{"score"}, kinds[ViolationRange])
	assert.Equal(t, []string{"points"}, kinds[ViolationCardinality])
	assert.Equal(t, []string{"stages[0].stage", "stages[1].stage"}, kinds[ViolationLabel])
	assert.Empty(t, kinds[ViolationMissing])
}

func TestCheck_FixedListCardinality(t *testing.T) {
	c := New(fixedList("stages", []string{"A", "B"}, "stage", str("stage")))

	violations := c.Check(map[string]any{
		"stages": []any{map[string]any{"stage": "A"}},
	})
	require.Len(t, violations, 1)
	assert.Equal(t, ViolationCardinality, violations[0].Kind)
	assert.Contains(t, violations[0].Message, "exactly 2")
}

func TestJSONSchema(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(Report().JSONSchemaString()), &schema))

	assert.Equal(t, "http://json-schema.org/draft-07/schema#", schema["$schema"])
	props := schema["properties"].(map[string]any)

	stageEval := props[StageEvalField].(map[string]any)
	assert.Equal(t, float64(len(Stages)), stageEval["minItems"])
	assert.Equal(t, float64(len(Stages)), stageEval["maxItems"])

	outcome := props["p1_outcome"].(map[string]any)
	assert.ElementsMatch(t, []any{"won", "lost", "pending", "follow_up"}, outcome["enum"])

	_, hasNarratives := props["narratives"]
	assert.True(t, hasNarratives)
	assert.NotContains(t, schema["required"], "narratives")
}
