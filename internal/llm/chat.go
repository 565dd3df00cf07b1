package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ChatClient implements Generator against an OpenAI-compatible chat-completions endpoint
type ChatClient struct {
	baseURL string
	apiKey  string
	config  *Config
	http    *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *jsonSchema `json:"json_schema,omitempty"`
}

type jsonSchema struct {
	Name   string         `json:"name"`
	Schema map[string]any `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewChatClient creates a chat-completions client. A nil httpClient uses http.DefaultClient;
// per-call deadlines come from the request context.
func NewChatClient(config *Config, apiKey string, httpClient *http.Client) (*ChatClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if config == nil {
		config = DefaultOpenAIConfig()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &ChatClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		config:  config,
		http:    httpClient,
	}, nil
}

// Generate posts one chat-completions request and returns choices[0].message.content
func (c *ChatClient) Generate(ctx context.Context, req Request) (string, error) {
	model := c.config.GetModel(tierOrDefault(req.Tier))
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", req.Tier)
	}

	payload := chatRequest{
		Model:       model,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}
	if req.System != "" {
		payload.Messages = append(payload.Messages, chatMessage{Role: "system", Content: req.System})
	}
	payload.Messages = append(payload.Messages, chatMessage{Role: "user", Content: req.User})
	if req.Schema != nil {
		payload.ResponseFormat = &responseFormat{
			Type:       "json_schema",
			JSONSchema: &jsonSchema{Name: "session_report", Schema: req.Schema},
		}
	} else {
		payload.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return decoded.Choices[0].Message.Content, nil
}

// Close is a no-op; the underlying http.Client is shared
func (c *ChatClient) Close() error {
	return nil
}
