// Package retry wraps HTTP requests with bounded exponential backoff.
package retry

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/docmill-ai/docmill/internal/domain"
	"github.com/docmill-ai/docmill/internal/observability"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// Config holds retry configuration
type Config struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultConfig returns the default retry configuration
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// ShouldRetry determines if a status code is retryable. Rate limits and
// server-side failures are transient; every other status is terminal.
func ShouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests: // 429
		return true
	case http.StatusInternalServerError: // 500
		return true
	case http.StatusBadGateway: // 502
		return true
	case http.StatusServiceUnavailable: // 503
		return true
	case http.StatusGatewayTimeout: // 504
		return true
	default:
		return false
	}
}

// Backoff calculates the exponential backoff for an attempt
func Backoff(attempt int, config *Config) time.Duration {
	// initialBackoff * 2^attempt, capped at maxBackoff
	backoff := float64(config.InitialBackoff) * math.Pow(2, float64(attempt))

	if backoff > float64(config.MaxBackoff) {
		backoff = float64(config.MaxBackoff)
	}

	return time.Duration(backoff)
}

// Do executes reqFunc until it returns a 2xx response, a non-retryable
// status, or the retry budget is spent. Non-retryable responses are handed
// back to the caller unconsumed so it can decode the API error body.
func Do(ctx context.Context, config *Config, log *observability.Logger, reqFunc func() (*http.Response, error)) (*http.Response, error) {
	if config == nil {
		config = DefaultConfig()
	}
	var lastErr error

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := reqFunc()

		if err == nil && resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)

			if !ShouldRetry(resp.StatusCode) {
				return resp, nil
			}

			if resp.Body != nil {
				resp.Body.Close()
			}
		}

		if attempt == config.MaxRetries {
			break
		}

		backoff := Backoff(attempt, config)
		if log != nil {
			log.Warn().Msgf("request failed (attempt %d/%d), retrying in %v: %v",
				attempt+1, config.MaxRetries, backoff, lastErr)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, domain.ProviderError(fmt.Sprintf("request failed after %d retries", config.MaxRetries), lastErr)
}
