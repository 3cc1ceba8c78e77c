// Package gateway turns raw provider calls into immutable exchanges.
//
// The gateway assigns the trace id, measures generation latency, and prices
// token usage, so everything downstream of it operates on a fully resolved
// Exchange. Generation failures surface to the caller with no exchange
// created; there is nothing for the risk engine to assess.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/themis/pkg/costs"
	"mercator-hq/themis/pkg/governance"
	"mercator-hq/themis/pkg/providers"
)

// Request describes one generation to perform.
type Request struct {
	// Prompt is the user prompt. Required.
	Prompt string

	// Model is the model id; falls back to the provider's default model.
	Model string

	// UserID optionally identifies the requesting user.
	UserID string
}

// Gateway produces exchanges by calling the configured provider.
type Gateway struct {
	provider     providers.Provider
	calculator   *costs.Calculator
	defaultModel string
	maxTokens    int
	logger       *slog.Logger
}

// New creates a gateway over the given provider. defaultModel is used when
// a request does not name one.
func New(provider providers.Provider, calculator *costs.Calculator, defaultModel string, maxTokens int, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{
		provider:     provider,
		calculator:   calculator,
		defaultModel: defaultModel,
		maxTokens:    maxTokens,
		logger:       logger.With("component", "gateway"),
	}
}

// Generate calls the provider and assembles the immutable exchange.
func (g *Gateway) Generate(ctx context.Context, req *Request) (*governance.Exchange, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	model := req.Model
	if model == "" {
		model = g.defaultModel
	}
	if model == "" {
		return nil, fmt.Errorf("no model specified and no default model configured")
	}

	start := time.Now()
	resp, err := g.provider.Generate(ctx, &providers.GenerationRequest{
		Prompt:    req.Prompt,
		Model:     model,
		MaxTokens: g.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	latency := time.Since(start)

	ex := &governance.Exchange{
		TraceID:    uuid.NewString(),
		Prompt:     req.Prompt,
		Response:   resp.Text,
		Model:      model,
		UserID:     req.UserID,
		TokensUsed: resp.TokensUsed,
		CostUSD:    g.calculator.Cost(resp.TokensUsed, model),
		LatencyMS:  float64(latency.Microseconds()) / 1000,
		Timestamp:  time.Now().UTC(),
	}

	g.logger.Debug("exchange created",
		"trace_id", ex.TraceID,
		"model", model,
		"tokens", ex.TokensUsed,
		"latency_ms", ex.LatencyMS,
	)

	return ex, nil
}

// Provider returns the underlying provider, for health reporting.
func (g *Gateway) Provider() providers.Provider {
	return g.provider
}
