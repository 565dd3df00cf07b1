package schemas

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/session-report/internal/contract"
	"github.com/jonathan/session-report/internal/repair"
)

const personSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "age"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "age": {"type": "number", "minimum": 0}
  }
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestValidateJSON_ValidJSON(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", personSchema)
	jsonPath := writeFile(t, dir, "doc.json", `{"name": "Dana", "age": 41}`)

	assert.NoError(t, ValidateJSON(schemaPath, jsonPath))
}

func TestValidateJSON_InvalidJSON_MissingField(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", personSchema)
	jsonPath := writeFile(t, dir, "doc.json", `{"name": "Dana"}`)

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	require.Len(t, validationErr.Errors, 1)
	assert.Equal(t, "(root)", validationErr.Errors[0].Field)
}

func TestValidateJSON_InvalidJSON_WrongType(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", personSchema)
	jsonPath := writeFile(t, dir, "doc.json", `{"name": "Dana", "age": "forty"}`)

	err := ValidateJSON(schemaPath, jsonPath)
	require.Error(t, err)

	validationErr, ok := err.(*ValidationError)
	require.True(t, ok, "error should be ValidationError type")
	assert.Equal(t, "age", validationErr.Errors[0].Field)
}

func TestValidateJSON_NonExistentSchema(t *testing.T) {
	dir := t.TempDir()
	jsonPath := writeFile(t, dir, "doc.json", `{}`)

	err := ValidateJSON(filepath.Join(dir, "nonexistent_schema.json"), jsonPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSON_NonExistentJSON(t *testing.T) {
	dir := t.TempDir()
	schemaPath := writeFile(t, dir, "schema.json", personSchema)

	err := ValidateJSON(schemaPath, filepath.Join(dir, "nonexistent_json.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestValidateJSONString_BadSchema(t *testing.T) {
	err := ValidateJSONString(`{"type": 12}`, `{}`)
	require.Error(t, err)

	var loadErr *SchemaLoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestResolveSchemaPath(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "schema.json", personSchema)

	assert.Equal(t, path, ResolveSchemaPath(path))
	assert.Empty(t, ResolveSchemaPath(filepath.Join(dir, "missing.json")))
}

func TestReportSchema_IsValidJSON(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(contract.Report().JSONSchemaString()), &schema))
	assert.Equal(t, "SessionReport", schema["title"])
}

func TestValidateArtifact_NormalizedOutputConforms(t *testing.T) {
	inputs := []map[string]any{
		nil,
		{"p1_key_points": []any{"a"}},
		{"p4_overall_score": 150.0, "p1_outcome": "WON", "p4_stage_eval": []any{"x"}},
	}
	for _, raw := range inputs {
		assert.NoError(t, ValidateArtifact(repair.Normalize(raw)))
	}
}

func TestValidateArtifactJSON_Violations(t *testing.T) {
	doc, err := repair.ToMap(repair.Normalize(nil))
	require.NoError(t, err)

	tests := []struct {
		name      string
		mutate    func(doc map[string]any)
		wantField string
	}{
		{
			name:      "enum outside set",
			mutate:    func(d map[string]any) { d["p1_outcome"] = "maybe" },
			wantField: "p1_outcome",
		},
		{
			name:      "score out of range",
			mutate:    func(d map[string]any) { d["p4_overall_score"] = 120.0 },
			wantField: "p4_overall_score",
		},
		{
			name: "stage list too short",
			mutate: func(d map[string]any) {
				d["p4_stage_eval"] = d["p4_stage_eval"].([]any)[:10]
			},
			wantField: "p4_stage_eval",
		},
		{
			name:      "empty string",
			mutate:    func(d map[string]any) { d["title"] = "" },
			wantField: "title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fresh := make(map[string]any, len(doc))
			for k, v := range doc {
				fresh[k] = v
			}
			tt.mutate(fresh)
			data, err := json.Marshal(fresh)
			require.NoError(t, err)

			err = ValidateArtifactJSON(string(data))
			require.Error(t, err)
			var validationErr *ValidationError
			require.ErrorAs(t, err, &validationErr)

			fields := make([]string, 0, len(validationErr.Errors))
			for _, fe := range validationErr.Errors {
				fields = append(fields, fe.Field)
			}
			assert.Contains(t, fields, tt.wantField)
		})
	}
}
