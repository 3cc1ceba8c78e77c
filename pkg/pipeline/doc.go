// Package pipeline composes the gateway, risk engine, guardrails engine,
// feedback engine, cost monitor, and audit recorder into the end-to-end
// governance flow for a single request.
//
// Every request follows the same fixed sequence: generate a response
// through the gateway, assess it for risk, enforce guardrail policies
// against the assessment, record the cost, append an audit record, and
// derive the final response from the policy decision. A request that fails
// generation produces no governance records at all; a request that reaches
// enforcement always produces exactly one assessment, one decision, one
// cost metric, and one audit append.
package pipeline
