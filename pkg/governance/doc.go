// Package governance defines the shared domain types for the Themis
// governance pipeline: exchanges, risk assessments, policies, enforcement
// decisions, feedback entries, and threshold tuning records.
//
// The enumerations (RiskCategory, PolicyAction, FeedbackType) are closed sets
// and call sites are expected to switch exhaustively over them so that new
// values cannot silently fall through to default behavior.
//
// Types in this package carry no behavior beyond validation and the score to
// category mapping; each engine package owns the state built from them.
package governance
