package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"os"
	"time"

	"mercator-hq/themis/pkg/config"
)

// HTTPProvider is the base implementation for HTTP-based provider adapters.
// It provides connection pooling, bounded retry with exponential backoff,
// and timeout handling. Concrete adapters embed it and implement the
// Provider interface.
type HTTPProvider struct {
	name   string
	config config.ProviderConfig
	apiKey string
	client *http.Client
}

// NewHTTPProvider creates a base HTTP provider. The API key is resolved
// from the environment variable named in the configuration.
func NewHTTPProvider(name string, cfg config.ProviderConfig) (*HTTPProvider, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, &AuthError{
			Provider: name,
			Message:  fmt.Sprintf("environment variable %s not set", cfg.APIKeyEnv),
		}
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		name:   name,
		config: cfg,
		apiKey: apiKey,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}, nil
}

// GetName returns the provider's configured name.
func (p *HTTPProvider) GetName() string {
	return p.name
}

// GetConfig returns the provider's configuration.
func (p *HTTPProvider) GetConfig() config.ProviderConfig {
	return p.config
}

// APIKey returns the resolved API key for adapters to set auth headers.
func (p *HTTPProvider) APIKey() string {
	return p.apiKey
}

// DoRequest performs a POST request with retry logic. Transient errors
// (network failures, 429, 5xx) are retried with exponential backoff up to
// the configured maximum; auth failures and other 4xx errors are not.
//
// On success the response body is returned fully read.
func (p *HTTPProvider) DoRequest(ctx context.Context, url string, body []byte, headers map[string]string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			slog.Debug("retrying provider request",
				"provider", p.name,
				"attempt", attempt,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, &TimeoutError{Provider: p.name, Timeout: p.config.Timeout}
			}
			lastErr = err
			slog.Warn("provider request failed, will retry",
				"provider", p.name,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			if readErr != nil {
				return nil, &ParseError{Provider: p.name, Cause: readErr}
			}
			return data, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &AuthError{Provider: p.name, Message: string(data)}

		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			lastErr = &ProviderError{
				Provider:   p.name,
				StatusCode: resp.StatusCode,
				Message:    string(data),
			}
			continue

		default:
			return nil, &ProviderError{
				Provider:   p.name,
				StatusCode: resp.StatusCode,
				Message:    string(data),
			}
		}
	}

	return nil, &ProviderError{
		Provider: p.name,
		Message:  fmt.Sprintf("request failed after %d retries", p.config.MaxRetries),
		Cause:    lastErr,
	}
}

// Close closes idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}
