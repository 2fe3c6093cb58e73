package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicClient_RequiresAPIKey(t *testing.T) {
	_, err := NewAnthropicClient(AnthropicConfig{})
	assert.Error(t, err)
}

func TestNewAnthropicClient_Defaults(t *testing.T) {
	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "sk-ant-test"})
	require.NoError(t, err)

	assert.Equal(t, defaultAnthropicModel, client.Model())
	assert.Equal(t, "anthropic", client.Provider())
	assert.Equal(t, DefaultAnthropicBaseURL, client.baseURL)
}

func TestAnthropicClient_Complete(t *testing.T) {
	var gotReq anthropicRequest
	var gotKey, gotVersion string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(anthropicResponse{
			Model: "claude-3-opus-20240229",
			Content: []anthropicContent{
				{Type: "text", Text: "first part"},
				{Type: "text", Text: " and second part"},
			},
		})
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{
		APIKey:  "sk-ant-test",
		BaseURL: server.URL,
	})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), CompletionRequest{
		System:      "You are a translator.",
		Prompt:      "Translate this.",
		Temperature: 0.2,
	})
	require.NoError(t, err)

	assert.Equal(t, "first part and second part", resp.Content)
	assert.Equal(t, "sk-ant-test", gotKey)
	assert.Equal(t, anthropicVersion, gotVersion)

	// System goes in the top-level field, never in messages.
	assert.Equal(t, "You are a translator.", gotReq.System)
	require.Len(t, gotReq.Messages, 1)
	assert.Equal(t, "user", gotReq.Messages[0].Role)

	// max_tokens is mandatory for the messages API, so the default is
	// filled in when the request leaves it unset.
	assert.Equal(t, defaultAnthropicMaxTokens, gotReq.MaxTokens)
}

func TestAnthropicClient_Complete_ExplicitMaxTokens(t *testing.T) {
	var gotReq anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "ok"}},
		})
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "sk-ant-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "hi", MaxTokens: 1024})
	require.NoError(t, err)
	assert.Equal(t, 1024, gotReq.MaxTokens)
}

func TestAnthropicClient_Complete_SkipsNonTextBlocks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{
				{Type: "thinking", Text: "hidden"},
				{Type: "text", Text: "visible"},
			},
		})
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "sk-ant-test", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "visible", resp.Content)
}

func TestAnthropicClient_Complete_RetriesOverloaded(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicContent{{Type: "text", Text: "recovered"}},
		})
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "sk-ant-test", BaseURL: server.URL})
	require.NoError(t, err)
	client.retryConfig = fastRetry()

	resp, err := client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestAnthropicClient_Complete_AuthFailureIsTerminal(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type": "error", "error": {"type": "authentication_error", "message": "invalid x-api-key"}}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "sk-ant-bad", BaseURL: server.URL})
	require.NoError(t, err)
	client.retryConfig = fastRetry()

	_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid x-api-key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestAnthropicClient_Complete_EmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(anthropicResponse{})
	}))
	defer server.Close()

	client, err := NewAnthropicClient(AnthropicConfig{APIKey: "sk-ant-test", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), CompletionRequest{Prompt: "hi"})
	assert.Error(t, err)
}
