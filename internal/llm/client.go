package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Request is one generation call: system instructions, user content and the JSON schema
// the response should satisfy.
type Request struct {
	System string
	User   string
	Schema map[string]any
	Tier   ModelTier
}

// Generator is an abstraction over completion providers
type Generator interface {
	// Generate returns the raw text produced for the request
	Generate(ctx context.Context, req Request) (string, error)
	// Close releases any resources held by the generator
	Close() error
}

// NewGenerator creates a generator for the configured provider
func NewGenerator(ctx context.Context, config *Config, apiKey string) (Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderOpenAI:
		return NewChatClient(config, apiKey, nil)
	default:
		return nil, fmt.Errorf("unknown generator provider %q", config.Provider)
	}
}

// GeminiClient implements Generator for Google Gemini
type GeminiClient struct {
	client *genai.Client
	config *Config
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(ctx context.Context, config *Config, apiKey string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		config: config,
	}, nil
}

// Generate sends the request as a JSON-mode generation
func (c *GeminiClient) Generate(ctx context.Context, req Request) (string, error) {
	modelName := c.config.GetModel(tierOrDefault(req.Tier))
	if modelName == "" {
		return "", fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	model := c.client.GenerativeModel(modelName)
	model.SetTemperature(c.config.Temperature)
	if c.config.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(c.config.MaxTokens))
	}
	model.ResponseMIMEType = "application/json"
	if req.Schema != nil {
		model.ResponseSchema = responseSchema(req.Schema)
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.User))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	return extractTextFromResponse(resp)
}

// Close releases resources held by the client
func (c *GeminiClient) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// extractTextFromResponse extracts text from Gemini API response
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}

	return strings.Join(parts, ""), nil
}

// responseSchema converts a JSON Schema document into Gemini's schema subset. Keywords
// Gemini has no field for (bounds, lengths, item counts) are dropped; the prompt still
// carries the full schema text.
func responseSchema(node map[string]any) *genai.Schema {
	if node == nil {
		return nil
	}
	out := &genai.Schema{}
	if desc, ok := node["description"].(string); ok {
		out.Description = desc
	}

	switch node["type"] {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "number":
		out.Type = genai.TypeNumber
	case "integer":
		out.Type = genai.TypeInteger
	case "boolean":
		out.Type = genai.TypeBoolean
	case "string":
		out.Type = genai.TypeString
	default:
		if _, ok := node["properties"]; ok {
			out.Type = genai.TypeObject
		} else {
			out.Type = genai.TypeString
		}
	}

	if enum := stringSlice(node["enum"]); len(enum) > 0 {
		out.Enum = enum
		out.Format = "enum"
	}
	if items, ok := node["items"].(map[string]any); ok {
		out.Items = responseSchema(items)
	}
	if props, ok := node["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if child, ok := prop.(map[string]any); ok {
				out.Properties[name] = responseSchema(child)
			}
		}
	}
	out.Required = stringSlice(node["required"])
	return out
}

// stringSlice accepts both []string and the []any produced by decoding JSON
func stringSlice(v any) []string {
	switch vals := v.(type) {
	case []string:
		return vals
	case []any:
		out := make([]string, 0, len(vals))
		for _, val := range vals {
			if s, ok := val.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func tierOrDefault(t ModelTier) ModelTier {
	if t == "" {
		return TierAdvanced
	}
	return t
}
