// Package providers defines the model transport abstraction and its HTTP
// base implementation.
//
// The Provider interface normalizes text generation across backends (mock,
// OpenAI, Anthropic). Adapters embed HTTPProvider, which supplies
// connection pooling, bounded retry with exponential backoff for transient
// failures (network errors, 429, 5xx), and timeout handling. Retries live
// here and only here; the governance core performs no retries of its own.
package providers
