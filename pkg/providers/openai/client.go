// Package openai implements the OpenAI chat completions provider adapter.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"mercator-hq/themis/pkg/config"
	"mercator-hq/themis/pkg/providers"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client is the OpenAI provider adapter.
type Client struct {
	*providers.HTTPProvider
	baseURL string
}

// New creates an OpenAI provider from configuration.
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

// GetType returns "openai".
func (c *Client) GetType() string {
	return "openai"
}

// Generate sends a chat completion request and normalizes the response.
func (c *Client) Generate(ctx context.Context, req *providers.GenerationRequest) (*providers.GenerationResponse, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.GetConfig().MaxTokens
	}

	payload := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
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
		"Authorization": "Bearer " + c.APIKey(),
	}

	data, err := c.DoRequest(ctx, c.baseURL+"/chat/completions", body, headers)
	if err != nil {
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &providers.ParseError{Provider: c.GetName(), Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &providers.ParseError{
			Provider: c.GetName(),
			Cause:    fmt.Errorf("response contained no choices"),
		}
	}

	return &providers.GenerationResponse{
		Text:       resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
		Model:      req.Model,
	}, nil
}
