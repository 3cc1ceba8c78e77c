package providers

import "context"

// Provider is the interface all model transport adapters implement. It is
// the only component of the pipeline expected to block on external I/O.
//
// A provider is selected once at startup by configuration and used for the
// lifetime of the process; callers never switch adapters by runtime type
// inspection.
type Provider interface {
	// Generate sends a prompt to the model and returns the normalized
	// response. Implementations must respect context cancellation and
	// retry transient failures internally; a returned error means the
	// generation step failed and nothing should be assessed.
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResponse, error)

	// GetName returns the provider's configured name.
	GetName() string

	// GetType returns the adapter type ("mock", "openai", "anthropic").
	GetType() string

	// Close releases provider resources (HTTP connections, etc.).
	Close() error
}
