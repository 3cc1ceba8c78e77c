package audit

import (
	"context"
	"time"

	"mercator-hq/themis/pkg/governance"
)

// Record is one immutable audit log entry for a governed exchange.
// The assessment and decision are optional: a record written before the
// pipeline completed (e.g. generation succeeded but the process crashed
// mid-flight) may carry only the exchange.
type Record struct {
	// ID uniquely identifies the audit record.
	ID string `json:"id"`

	// TraceID links the record to its exchange.
	TraceID string `json:"trace_id"`

	// EventType describes the recorded event. Currently always
	// "llm_interaction".
	EventType string `json:"event_type"`

	// UserID optionally identifies the requesting user.
	UserID string `json:"user_id,omitempty"`

	// Prompt and Response are the governed exchange texts.
	Prompt   string `json:"prompt"`
	Response string `json:"response"`

	// Model is the model id used for generation.
	Model string `json:"model"`

	// Assessment is the risk assessment, if one was produced.
	Assessment *governance.RiskAssessment `json:"risk_assessment,omitempty"`

	// Decision is the enforcement decision, if one was produced.
	Decision *governance.PolicyDecision `json:"policy_decision,omitempty"`

	// Timestamp is when the record was created.
	Timestamp time.Time `json:"timestamp"`
}

// Query filters audit records. Zero-value fields are ignored.
type Query struct {
	// TraceID filters by exact trace id.
	TraceID string

	// UserID filters by exact user id.
	UserID string

	// StartTime filters records at or after this time.
	StartTime *time.Time

	// EndTime filters records at or before this time.
	EndTime *time.Time

	// Limit caps the number of returned records; zero means no limit.
	Limit int

	// Offset skips the first N matching records.
	Offset int
}

// Summary aggregates the audit history.
type Summary struct {
	TotalRecords       int `json:"total_records"`
	UniqueUsers        int `json:"unique_users"`
	RiskEvents         int `json:"risk_events"`
	PolicyEnforcements int `json:"policy_enforcements"`
}

// Storage is the interface for audit record persistence backends.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Store persists one audit record.
	Store(ctx context.Context, record *Record) error

	// Query retrieves records matching the query filters, ordered by
	// timestamp ascending.
	Query(ctx context.Context, query *Query) ([]*Record, error)

	// Summarize aggregates the stored history.
	Summarize(ctx context.Context) (*Summary, error)

	// Close releases backend resources.
	Close() error
}
