// Package server provides the HTTP surface of the governance service: the
// completion endpoint that runs requests through the pipeline, plus the
// operator API for policy administration, feedback, drift checks, retuning,
// reporting, health, and Prometheus metrics.
//
// Routes:
//
//	POST   /v1/completions              run a prompt through the pipeline
//	GET    /v1/policies                 list guardrail policies
//	POST   /v1/policies                 add a guardrail policy
//	DELETE /v1/policies/{id}            remove a guardrail policy
//	POST   /v1/policies/{id}/toggle     flip a policy's enabled state
//	GET    /v1/thresholds               current risk thresholds
//	PUT    /v1/thresholds               set risk thresholds
//	POST   /v1/feedback                 record user feedback
//	POST   /v1/feedback/drift-check     run a quality drift check
//	POST   /v1/feedback/retune          retune and commit thresholds
//	GET    /v1/feedback/summary         feedback reporting
//	GET    /v1/risk/trends              risk assessment trends
//	GET    /v1/guardrails/stats         enforcement statistics
//	GET    /v1/costs/summary            cost reporting
//	GET    /v1/audit/records            audit record query
//	GET    /v1/health                   aggregated component health
//	GET    /metrics                     Prometheus metrics
package server
