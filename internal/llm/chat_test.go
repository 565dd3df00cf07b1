package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatClient_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"{\"title\":\"Demo\"}"}}]}`))
	}))
	defer srv.Close()

	config := DefaultOpenAIConfig()
	config.BaseURL = srv.URL + "/"
	client, err := NewChatClient(config, "test-key", srv.Client())
	require.NoError(t, err)

	out, err := client.Generate(context.Background(), Request{
		System: "be precise",
		User:   "summarize",
		Schema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"Demo"}`, out)

	assert.Equal(t, "gpt-4o", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_schema", got.ResponseFormat.Type)
	assert.Equal(t, 16384, got.MaxTokens)
}

func TestChatClient_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	config := DefaultOpenAIConfig()
	config.BaseURL = srv.URL
	client, err := NewChatClient(config, "test-key", srv.Client())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{User: "hi"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, "rate limited", statusErr.Body)
}

func TestChatClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	config := DefaultOpenAIConfig()
	config.BaseURL = srv.URL
	client, err := NewChatClient(config, "test-key", srv.Client())
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{User: "hi"})
	assert.ErrorContains(t, err, "no choices")
}

func TestNewChatClient_RequiresKey(t *testing.T) {
	_, err := NewChatClient(DefaultOpenAIConfig(), "", nil)
	assert.Error(t, err)
}

func TestNewGenerator_UnknownProvider(t *testing.T) {
	_, err := NewGenerator(context.Background(), &Config{Provider: "carrier-pigeon"}, "key")
	assert.ErrorContains(t, err, "unknown generator provider")
}
