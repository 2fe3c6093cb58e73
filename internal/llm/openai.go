package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/observability"
	"github.com/docmill-ai/docmill/internal/retry"
)

const (
	// DefaultOpenAIBaseURL is the OpenAI API endpoint.
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"

	// DefaultGrokBaseURL is the xAI API endpoint, which speaks the same
	// chat completions protocol.
	DefaultGrokBaseURL = "https://api.x.ai/v1"

	defaultOpenAIModel = "o3-mini"
	defaultLLMTimeout  = 120 * time.Second
)

// OpenAIClient speaks the OpenAI-compatible chat completions protocol.
// Both OpenAI and Grok are served through it.
type OpenAIClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	provider    string
	log         *observability.Logger
	retryConfig *retry.Config
}

var _ Client = (*OpenAIClient)(nil)

// OpenAIConfig holds client configuration.
type OpenAIConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	ProviderName string
	Timeout      time.Duration
	Logger       *observability.Logger
}

// chatRequest is the chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

// chatMessage is a single chat turn.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse is the chat completions response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// chatChoice is a single completion choice.
type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// apiErrorEnvelope is the error body shape shared by both providers.
type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAIClient creates a chat completions client.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, domain.ConfigError("API key is required", nil)
	}
	if cfg.Model == "" {
		cfg.Model = defaultOpenAIModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenAIBaseURL
	}
	if cfg.ProviderName == "" {
		cfg.ProviderName = "openai"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultLLMTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NewNopLogger()
	}

	return &OpenAIClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		provider:   cfg.ProviderName,
		log:        cfg.Logger,
	}, nil
}

// Provider names the backing provider.
func (c *OpenAIClient) Provider() string { return c.provider }

// Model names the configured model.
func (c *OpenAIClient) Model() string { return c.model }

// Complete sends a single-turn completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return CompletionResponse{}, domain.ProviderError("failed to marshal completion request", err)
	}

	resp, err := retry.Do(ctx, c.retryConfig, c.log, func() (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		return c.httpClient.Do(httpReq)
	})
	if err != nil {
		return CompletionResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return CompletionResponse{}, decodeAPIError(c.provider, resp)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return CompletionResponse{}, domain.ProviderError(
			fmt.Sprintf("failed to decode %s response", c.provider), err)
	}
	if len(parsed.Choices) == 0 {
		return CompletionResponse{}, domain.ProviderError(
			fmt.Sprintf("%s returned no choices", c.provider), nil)
	}

	model := parsed.Model
	if model == "" {
		model = c.model
	}
	return CompletionResponse{
		Content: strings.TrimSpace(parsed.Choices[0].Message.Content),
		Model:   model,
	}, nil
}

// decodeAPIError turns a non-200 response into a provider error, pulling
// the message out of the error envelope when one is present.
func decodeAPIError(provider string, resp *http.Response) error {
	bodyBytes, _ := io.ReadAll(resp.Body)

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err == nil && envelope.Error.Message != "" {
		return domain.ProviderError(
			fmt.Sprintf("%s API returned status %d: %s", provider, resp.StatusCode, envelope.Error.Message), nil)
	}
	return domain.ProviderError(
		fmt.Sprintf("%s API returned status %d: %s", provider, resp.StatusCode, string(bodyBytes)), nil)
}
