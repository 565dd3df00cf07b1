package repair

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/session-report/internal/contract"
)

func TestDensityRules_CoverEveryTarget(t *testing.T) {
	covered := make(map[string]bool)
	for _, rule := range densityRules {
		covered[rule.path] = true
	}
	for path := range contract.Report().DensityTargets() {
		assert.True(t, covered[path], "no density rule for %s", path)
	}
}

func TestExpand(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		target  int
		clauses []string
		want    string
	}{
		{
			name:   "already long enough",
			value:  "abcdef ",
			target: 5,
			want:   "abcdef ",
		},
		{
			name:    "appends clauses in order",
			value:   "Short",
			target:  20,
			clauses: []string{"One more.", "And another."},
			want:    "Short. One more. And another.",
		},
		{
			name:    "skips clauses already present",
			value:   "One more.",
			target:  15,
			clauses: []string{"One more.", "Two."},
			want:    "One more. Two. " + fillers[0],
		},
		{
			name:   "empty value with no clauses uses fillers",
			value:  "",
			target: 10,
			want:   fillers[0],
		},
		{
			name:   "keeps trailing punctuation",
			value:  "Hi Dana,",
			target: 12,
			want:   "Hi Dana, " + fillers[0],
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expand(tt.value, tt.target, tt.clauses))
		})
	}
}

func TestExpand_AlwaysReachesTarget(t *testing.T) {
	out := expand("x", 2000, nil)
	assert.GreaterOrEqual(t, utf8.RuneCountInString(out), 2000)
}

func TestExpand_CountsRunes(t *testing.T) {
	value := "Größenübersicht ändern"
	assert.Equal(t, value, expand(value, utf8.RuneCountInString(value), nil))
}
