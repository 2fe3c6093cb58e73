package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/observability"
	"github.com/docmill-ai/docmill/internal/retry"
)

const (
	// DefaultAnthropicBaseURL is the Anthropic API endpoint.
	DefaultAnthropicBaseURL = "https://api.anthropic.com"

	// anthropicVersion pins the messages API revision.
	anthropicVersion = "2023-06-01"

	defaultAnthropicModel = "claude-3-opus-20240229"

	// defaultAnthropicMaxTokens is used when the request does not set a
	// limit. The messages API requires max_tokens on every call.
	defaultAnthropicMaxTokens = 4096
)

// AnthropicClient speaks the Anthropic messages protocol.
type AnthropicClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	log         *observability.Logger
	retryConfig *retry.Config
}

var _ Client = (*AnthropicClient)(nil)

// AnthropicConfig holds client configuration.
type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	Logger  *observability.Logger
}

// anthropicRequest is the messages API request body. System prompts are a
// top-level field, not a message role.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature,omitempty"`
}

// anthropicMessage is a single chat turn.
type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// anthropicResponse is the messages API response body.
type anthropicResponse struct {
	ID      string             `json:"id"`
	Model   string             `json:"model"`
	Content []anthropicContent `json:"content"`
}

// anthropicContent is one block of the response content.
type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// NewAnthropicClient creates a messages API client.
func NewAnthropicClient(cfg AnthropicConfig) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("API key is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = defaultAnthropicModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultAnthropicBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLLMTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}

	return &AnthropicClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		log:        cfg.Logger,
	}, nil
}

// Provider names the backing provider.
func (c *AnthropicClient) Provider() string { return "anthropic" }

// Model names the configured model.
func (c *AnthropicClient) Model() string { return c.model }

// Complete sends a single-turn completion request.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      req.System,
		Messages:    []anthropicMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	})
	if err != nil {
		return CompletionResponse{}, domain.ProviderError("failed to marshal completion request", err)
	}

	resp, err := retry.Do(ctx, c.retryConfig, c.log, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/v1/messages", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicVersion)
		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CompletionResponse{}, decodeAPIError("anthropic", resp)
	}

	var parsed anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return CompletionResponse{}, domain.ProviderError("failed to decode anthropic response", err)
	}

	var text strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return CompletionResponse{}, domain.ProviderError("anthropic returned no text content", nil)
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}
	return CompletionResponse{
		Content: strings.TrimSpace(text.String()),
		Model:   model,
	}, nil
}
