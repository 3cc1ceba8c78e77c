// Themis is an LLM governance service that assesses, enforces, and audits
// model responses.
//
// It generates responses through a configured model provider and runs each
// one through a governance pipeline:
//   - Risk assessment (prompt injection, unsafe content, data leakage,
//     uncertainty detection)
//   - Guardrail policy enforcement (block, fallback, rewrite)
//   - Cost tracking and alerting
//   - Audit trail recording
//   - Feedback-driven quality drift detection and threshold retuning
//
// Usage:
//
//	# Start the service with default configuration
//	themis run
//
//	# Start with a custom configuration file
//	themis run --config /path/to/config.yaml
//
//	# Assess a single prompt/response pair without serving
//	themis assess --prompt "..." --response "..."
//
//	# Validate a configuration or policy file
//	themis validate --config config.yaml
//
//	# Show version information
//	themis version
package main

func main() {
	Execute()
}
