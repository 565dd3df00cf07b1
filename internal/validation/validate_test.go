package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/repair"
	"github.com/jonathan/session-report/internal/types"
)

func TestValidate_NormalizedArtifactPasses(t *testing.T) {
	for _, raw := range []map[string]any{nil, {}, {"p1_key_points": []any{"a"}}} {
		a := repair.Normalize(raw)
		assert.NoError(t, Validate(a))
	}
}

func TestValidate_ZeroArtifact(t *testing.T) {
	err := Validate(&types.ReportArtifact{})
	require.Error(t, err)

	var missing *MissingFieldsError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Fields, "title")
	assert.Contains(t, missing.Fields, "p1_key_points")
	assert.Contains(t, missing.Fields, "p4_stage_eval")
	assert.Contains(t, missing.Fields, "p1_deal_health.label")
	assert.Contains(t, missing.Fields, "p2_client_profile.company")
	assert.NotContains(t, missing.Fields, "p4_overall_score")
	assert.NotContains(t, missing.Fields, "narratives")
}

func TestMissingFields_Nil(t *testing.T) {
	missing, err := MissingFields(nil)
	require.NoError(t, err)
	assert.Equal(t, contract.Report().RequiredFields(), missing)
}

func TestMissingInDocument(t *testing.T) {
	c := contract.Report()
	a := repair.Normalize(nil)
	doc, err := repair.ToMap(a)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(doc map[string]any)
		want   []string
	}{
		{name: "complete", mutate: func(map[string]any) {}},
		{name: "deleted field", mutate: func(d map[string]any) { delete(d, "p5_risks") }, want: []string{"p5_risks"}},
		{name: "null field", mutate: func(d map[string]any) { d["p1_outcome"] = nil }, want: []string{"p1_outcome"}},
		{name: "blank string", mutate: func(d map[string]any) { d["title"] = "  " }, want: []string{"title"}},
		{name: "object replaced by scalar", mutate: func(d map[string]any) { d["p4_talk_ratio"] = 5.0 }, want: []string{"p4_talk_ratio"}},
		{
			name: "sub-field removed",
			mutate: func(d map[string]any) {
				delete(d["p1_deal_health"].(map[string]any), "rationale")
			},
			want: []string{"p1_deal_health.rationale"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh, err := repair.ToMap(a)
			require.NoError(t, err)
			tt.mutate(fresh)
			assert.Equal(t, tt.want, MissingInDocument(c, fresh))
		})
	}
	assert.Empty(t, MissingInDocument(c, doc))
}
