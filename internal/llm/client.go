// Package llm provides chat completion clients for the supported providers.
package llm

import (
	"context"
	"fmt"

	"github.com/docmill-ai/docmill/internal/config"
	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/observability"
)

// CompletionRequest is a single-turn completion request.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
}

// CompletionResponse carries the model output.
type CompletionResponse struct {
	Content string
	Model   string
}

// Client is implemented by all chat completion providers.
type Client interface {
	// Complete sends a single-turn request and returns the model output.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// Provider names the backing provider, for logging.
	Provider() string

	// Model names the configured model.
	Model() string
}

// NewFromConfig constructs the client for the resolved provider.
func NewFromConfig(cfg *config.Config, provider config.Provider, log *observability.Logger) (Client, error) {
	settings := cfg.ProviderSettings(provider)

	switch provider {
	case config.ProviderOpenAI:
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       settings.APIKey,
			Model:        settings.Model,
			BaseURL:      settings.BaseURL,
			ProviderName: string(config.ProviderOpenAI),
			Timeout:      cfg.Summary.RequestTimeout,
			Logger:       log,
		})
	case config.ProviderGrok:
		baseURL := settings.BaseURL
		if baseURL == "" {
			baseURL = DefaultGrokBaseURL
		}
		return NewOpenAIClient(OpenAIConfig{
			APIKey:       settings.APIKey,
			Model:        settings.Model,
			BaseURL:      baseURL,
			ProviderName: string(config.ProviderGrok),
			Timeout:      cfg.Summary.RequestTimeout,
			Logger:       log,
		})
	case config.ProviderAnthropic:
		return NewAnthropicClient(AnthropicConfig{
			APIKey:  settings.APIKey,
			Model:   settings.Model,
			BaseURL: settings.BaseURL,
			Timeout: cfg.Summary.RequestTimeout,
			Logger:  log,
		})
	default:
		return nil, domain.ConfigError(fmt.Sprintf("unknown provider %q", provider), nil)
	}
}
