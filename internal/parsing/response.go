// Package parsing extracts structured JSON objects from raw generator output.
package parsing

import (
	"encoding/json"
	"strings"

	"github.com/jonathan/session-report/internal/llm"
)

// previewLen bounds how much raw output is echoed back in a ParseError
const previewLen = 80

// Decode extracts a JSON object from raw generator output. It tries a direct parse first
// (after stripping markdown fences), then falls back to the text between the first '{'
// and the last '}'. Generators often wrap JSON in prose or code blocks.
func Decode(raw string) (map[string]any, error) {
	text := llm.CleanJSONBlock(raw)
	if text == "" {
		return nil, &ParseError{Message: "generator returned empty output"}
	}

	obj, directErr := decodeObject(text)
	if directErr == nil {
		return obj, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, &ParseError{
			Message: "no JSON object found",
			Preview: preview(text),
			Cause:   directErr,
		}
	}

	obj, err := decodeObject(text[start : end+1])
	if err != nil {
		return nil, &ParseError{
			Message: "failed to parse JSON object",
			Preview: preview(text),
			Cause:   err,
		}
	}
	return obj, nil
}

// decodeObject parses text as a JSON object. A JSON string whose content is itself an
// object (double-encoded output) is unwrapped once, and a top-level array yields its first
// object element.
func decodeObject(text string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case map[string]any:
		return val, nil
	case []any:
		for _, item := range val {
			if obj, ok := item.(map[string]any); ok {
				return obj, nil
			}
		}
	case string:
		var inner map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(val)), &inner); err == nil && inner != nil {
			return inner, nil
		}
	}
	return nil, &ParseError{Message: "top-level JSON value is not an object"}
}

func preview(text string) string {
	if len(text) <= previewLen {
		return text
	}
	return text[:previewLen] + "..."
}
