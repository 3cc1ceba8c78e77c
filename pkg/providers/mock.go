package providers

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider is a deterministic in-process provider for tests, local
// development, and deployments without API keys. It performs no network
// I/O.
type MockProvider struct {
	name string
}

// NewMockProvider creates a mock provider.
func NewMockProvider(name string) *MockProvider {
	if name == "" {
		name = "mock"
	}
	return &MockProvider{name: name}
}

// Generate returns a canned response echoing the prompt prefix. Token usage
// is approximated by whitespace-separated word count so cost accounting has
// something to work with.
func (p *MockProvider) Generate(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := req.Prompt
	if len(prefix) > 50 {
		prefix = prefix[:50]
	}
	text := fmt.Sprintf("Mock response to: %s...", prefix)

	return &GenerationResponse{
		Text:       text,
		TokensUsed: len(strings.Fields(req.Prompt)) + len(strings.Fields(text)),
		Model:      req.Model,
	}, nil
}

// GetName returns the provider's configured name.
func (p *MockProvider) GetName() string {
	return p.name
}

// GetType returns "mock".
func (p *MockProvider) GetType() string {
	return "mock"
}

// Close is a no-op.
func (p *MockProvider) Close() error {
	return nil
}
