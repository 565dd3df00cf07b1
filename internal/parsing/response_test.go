package parsing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantErr  bool
		wantKeys []string
	}{
		{
			name:     "plain object",
			raw:      `{"title": "Q3 renewal call", "p1_key_points": ["a"]}`,
			wantKeys: []string{"title", "p1_key_points"},
		},
		{
			name:     "markdown fence",
			raw:      "```json\n{\"title\": \"Demo\"}\n```",
			wantKeys: []string{"title"},
		},
		{
			name:     "prose around object",
			raw:      "Here is the report you asked for:\n{\"title\": \"Demo\", \"nested\": {\"a\": 1}}\nLet me know if you need changes.",
			wantKeys: []string{"title", "nested"},
		},
		{
			name:     "double encoded",
			raw:      `"{\"title\": \"Demo\"}"`,
			wantKeys: []string{"title"},
		},
		{
			name:     "empty object",
			raw:      `{}`,
			wantKeys: []string{},
		},
		{
			name:    "no braces",
			raw:     "I could not produce a report for this session.",
			wantErr: true,
		},
		{
			name:    "truncated object",
			raw:     `{"title": "Demo", "p1_key_points": [`,
			wantErr: true,
		},
		{
			name:     "object inside top-level array",
			raw:      `[{"title": "Demo"}]`,
			wantKeys: []string{"title"},
		},
		{
			name:     "first of several objects in top-level array",
			raw:      `[{"title": "Demo"}, {"b": 2}]`,
			wantKeys: []string{"title"},
		},
		{
			name:    "array without objects",
			raw:     `[1, 2, 3]`,
			wantErr: true,
		},
		{
			name:    "empty output",
			raw:     "   ",
			wantErr: true,
		},
		{
			name:    "json null",
			raw:     "null",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Len(t, got, len(tt.wantKeys))
			for _, k := range tt.wantKeys {
				assert.Contains(t, got, k)
			}
		})
	}
}

func TestDecode_ErrorCarriesPreview(t *testing.T) {
	_, err := Decode("Sorry, the transcript was too short to analyze.")
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.Equal(t, "no JSON object found", parseErr.Message)
	assert.Contains(t, err.Error(), "Sorry, the transcript")
}

func TestDecode_LongPreviewIsTruncated(t *testing.T) {
	raw := `{"title": "` + strings.Repeat("x", 200)
	_, err := Decode(raw)
	require.Error(t, err)

	var parseErr *ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.LessOrEqual(t, len(parseErr.Preview), previewLen+3)
}
