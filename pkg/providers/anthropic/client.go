// Package anthropic implements the Anthropic messages provider adapter.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"mercator-hq/themis/pkg/config"
	"mercator-hq/themis/pkg/providers"
)

const (
	defaultBaseURL = "https://api.anthropic.com/v1"
	apiVersion     = "2023-06-01"
)

// Client is the Anthropic provider adapter.
type Client struct {
	*providers.HTTPProvider
	baseURL string
}

// New creates an Anthropic provider from configuration.
func New(name string, cfg config.ProviderConfig) (*Client, error) {
	base, err := providers.NewHTTPProvider(name, cfg)
	if err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	return &Client{HTTPProvider: base, baseURL: baseURL}, nil
}

// GetType returns "anthropic".
func (c *Client) GetType() string {
	return "anthropic"
}

// Generate sends a messages request and normalizes the response. Token
// usage is the sum of input and output tokens.
func (c *Client) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.GetConfig().MaxTokens
	}

	payload := messagesRequest{
		Model: req.Model,
		Messages: []message{
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         c.APIKey(),
		"anthropic-version": apiVersion,
	}

	data, err := c.DoRequest(ctx, c.baseURL+"/messages", body, headers)
	if err != nil {
		return nil, err
	}

	var resp messagesResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &providers.ParseError{Provider: c.GetName(), Cause: err}
	}

	text := ""
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return nil, &providers.ParseError{
			Provider: c.GetName(),
			Cause:    fmt.Errorf("response contained no text content"),
		}
	}

	return &providers.GenerationResponse{
		Text:       text,
		TokensUsed: resp.Usage.InputTokens + resp.Usage.OutputTokens,
		Model:      req.Model,
	}, nil
}
