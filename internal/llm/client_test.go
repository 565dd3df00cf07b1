package llm

import (
	"encoding/json"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-report/internal/contract"
)

func TestResponseSchema_ConvertsNestedDocument(t *testing.T) {
	doc := map[string]any{
		"type":     "object",
		"required": []string{"outcome", "items"},
		"properties": map[string]any{
			"outcome": map[string]any{"type": "string", "enum": []string{"won", "lost"}},
			"score":   map[string]any{"type": "number", "minimum": 0, "maximum": 100},
			"items": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items": map[string]any{
					"type":       "object",
					"properties": map[string]any{"owner": map[string]any{"type": "string"}},
				},
			},
		},
	}

	s := responseSchema(doc)

	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"outcome", "items"}, s.Required)
	assert.Equal(t, genai.TypeString, s.Properties["outcome"].Type)
	assert.Equal(t, []string{"won", "lost"}, s.Properties["outcome"].Enum)
	assert.Equal(t, genai.TypeNumber, s.Properties["score"].Type)

	items := s.Properties["items"]
	assert.Equal(t, genai.TypeArray, items.Type)
	require.NotNil(t, items.Items)
	assert.Equal(t, genai.TypeObject, items.Items.Type)
	assert.Equal(t, genai.TypeString, items.Items.Properties["owner"].Type)
}

func TestResponseSchema_AcceptsDecodedJSON(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(contract.Report().JSONSchemaString()), &doc))

	s := responseSchema(doc)

	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Contains(t, s.Required, contract.StageEvalField)
	assert.ElementsMatch(t, []string{"won", "lost", "pending", "follow_up"}, s.Properties["p1_outcome"].Enum)

	stageEval := s.Properties[contract.StageEvalField]
	assert.Equal(t, genai.TypeArray, stageEval.Type)
	assert.Equal(t, genai.TypeObject, stageEval.Items.Type)
}

func TestResponseSchema_Nil(t *testing.T) {
	assert.Nil(t, responseSchema(nil))
}
