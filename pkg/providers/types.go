package providers

// GenerationRequest is a provider-agnostic text generation request.
// Adapters transform it to their provider-specific wire format.
type GenerationRequest struct {
	// Prompt is the user prompt to send to the model.
	Prompt string `json:"prompt"`

	// Model is the model identifier in the provider's namespace.
	Model string `json:"model"`

	// MaxTokens caps the completion length.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling randomness (provider default when 0).
	Temperature float64 `json:"temperature,omitempty"`
}

// GenerationResponse is the normalized result of a generation call.
type GenerationResponse struct {
	// Text is the generated response text.
	Text string `json:"text"`

	// TokensUsed is the total token count reported by the provider
	// (prompt + completion).
	TokensUsed int `json:"tokens_used"`

	// Model is the model that produced the response.
	Model string `json:"model"`
}
