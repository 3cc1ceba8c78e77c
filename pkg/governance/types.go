package governance

import (
	"fmt"
	"time"
)

// RiskCategory classifies the overall risk of an exchange.
// It is a pure step function of the risk score (see CategorizeScore).
type RiskCategory string

const (
	// CategorySafe indicates no detector fired (score == 0).
	CategorySafe RiskCategory = "SAFE"

	// CategoryLow indicates a score above zero but below 0.3.
	CategoryLow RiskCategory = "LOW"

	// CategoryMedium indicates a score in [0.3, 0.5).
	CategoryMedium RiskCategory = "MEDIUM"

	// CategoryHigh indicates a score in [0.5, 0.7).
	CategoryHigh RiskCategory = "HIGH"

	// CategoryCritical indicates a score of 0.7 or above.
	CategoryCritical RiskCategory = "CRITICAL"
)

// CategorizeScore maps a risk score to its category.
// The mapping is monotonic: a higher score never yields a lower category.
func CategorizeScore(score float64) RiskCategory {
	switch {
	case score >= 0.7:
		return CategoryCritical
	case score >= 0.5:
		return CategoryHigh
	case score >= 0.3:
		return CategoryMedium
	case score > 0:
		return CategoryLow
	default:
		return CategorySafe
	}
}

// PolicyAction is the enforcement action a policy applies to an exchange.
type PolicyAction string

const (
	// ActionAllow passes the original response through unmodified.
	ActionAllow PolicyAction = "allow"

	// ActionBlock withholds the response; the decision carries a fixed
	// safety notice and the caller must not deliver the original text.
	ActionBlock PolicyAction = "block"

	// ActionFallback replaces the response with a fixed neutral refusal.
	ActionFallback PolicyAction = "fallback"

	// ActionRewrite is reserved for a safer-regeneration step. The current
	// behavior passes the original response through unmodified.
	ActionRewrite PolicyAction = "rewrite"
)

// Valid reports whether the action is one of the closed set.
func (a PolicyAction) Valid() bool {
	switch a {
	case ActionAllow, ActionBlock, ActionFallback, ActionRewrite:
		return true
	}
	return false
}

// FeedbackType classifies a user feedback entry.
type FeedbackType string

const (
	FeedbackPositive FeedbackType = "positive"
	FeedbackNeutral  FeedbackType = "neutral"
	FeedbackNegative FeedbackType = "negative"
)

// Valid reports whether the feedback type is one of the closed set.
func (t FeedbackType) Valid() bool {
	switch t {
	case FeedbackPositive, FeedbackNeutral, FeedbackNegative:
		return true
	}
	return false
}

// Exchange is one prompt/response pair processed by the pipeline.
// An Exchange is immutable once created.
type Exchange struct {
	// TraceID uniquely identifies the exchange across all components.
	TraceID string `json:"trace_id"`

	// Prompt is the user prompt sent to the model.
	Prompt string `json:"prompt"`

	// Response is the raw model output before any enforcement.
	Response string `json:"response"`

	// Model is the model identifier the response was generated with.
	Model string `json:"model"`

	// UserID optionally identifies the requesting user.
	UserID string `json:"user_id,omitempty"`

	// TokensUsed is the total token count reported by the provider.
	TokensUsed int `json:"tokens_used"`

	// CostUSD is the priced cost of the exchange.
	CostUSD float64 `json:"cost_usd"`

	// LatencyMS is the end-to-end generation latency in milliseconds.
	LatencyMS float64 `json:"latency_ms"`

	// Timestamp is when the exchange was created.
	Timestamp time.Time `json:"timestamp"`
}

// RiskAssessment is the scored, categorized, evidenced output of the risk
// engine for one exchange.
type RiskAssessment struct {
	TraceID string `json:"trace_id"`

	// RiskScore is the overall risk in [0, 1], the maximum of all
	// detector sub-scores.
	RiskScore float64 `json:"risk_score"`

	// RiskCategory is the step-function category of RiskScore.
	RiskCategory RiskCategory `json:"risk_category"`

	// Evidence contains detector findings in detector-declaration order.
	Evidence []string `json:"evidence"`

	// Confidence is in [0, 1]; more corroborating evidence raises it,
	// capped below certainty.
	Confidence float64 `json:"confidence"`

	Timestamp time.Time `json:"timestamp"`
}

// Policy is a named governance rule mapping a risk threshold to an action.
type Policy struct {
	// ID is the unique policy key.
	ID string `json:"id" yaml:"id"`

	// Name is the human-readable display name.
	Name string `json:"name" yaml:"name"`

	// RiskThreshold is the minimum risk score that triggers the policy,
	// in [0, 1].
	RiskThreshold float64 `json:"risk_threshold" yaml:"risk_threshold"`

	// Action is the enforcement action applied when the policy fires.
	Action PolicyAction `json:"action" yaml:"action"`

	// Enabled controls whether the policy participates in enforcement.
	Enabled bool `json:"enabled" yaml:"enabled"`
}

// DefaultAllowPolicyID is the sentinel policy id used for decisions where no
// enabled policy matched the assessment.
const DefaultAllowPolicyID = "default-allow"

// PolicyDecision is the enforcement outcome for one exchange.
// Exactly one decision exists per exchange and it is final for its trace id.
type PolicyDecision struct {
	TraceID string `json:"trace_id"`

	// Action is the enforcement action chosen for the exchange.
	Action PolicyAction `json:"action"`

	// PolicyID is the policy that fired, or DefaultAllowPolicyID.
	PolicyID string `json:"policy_id"`

	// Reason is a human-readable explanation of the decision.
	Reason string `json:"reason"`

	// ModifiedResponse is the replacement text, if the action supplies one.
	ModifiedResponse string `json:"modified_response,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// FeedbackEntry is a user judgment on one exchange.
// Entries are immutable once recorded.
type FeedbackEntry struct {
	TraceID string `json:"trace_id"`

	// Rating is the user rating in 1..5.
	Rating int `json:"rating"`

	// Type classifies the feedback as positive, neutral, or negative.
	Type FeedbackType `json:"type"`

	// Comment is optional free-form text.
	Comment string `json:"comment,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// QualityMetrics are feedback-derived quality figures computed on demand over
// the full feedback history.
type QualityMetrics struct {
	AvgRating    float64 `json:"avg_rating"`
	PositiveRate float64 `json:"positive_rate"`
	NegativeRate float64 `json:"negative_rate"`
	Total        int     `json:"total"`
}

// QualityBaseline is a frozen snapshot of quality metrics computed once from
// the first N feedback entries. It is never recomputed for the lifetime of
// the process.
type QualityBaseline struct {
	AvgRating     float64   `json:"avg_rating"`
	PositiveRate  float64   `json:"positive_rate"`
	NegativeRate  float64   `json:"negative_rate"`
	SampleSize    int       `json:"sample_size"`
	EstablishedAt time.Time `json:"established_at"`
}

// MetricDrift captures one tracked metric's deviation from the baseline.
type MetricDrift struct {
	Metric    string  `json:"metric"`
	Baseline  float64 `json:"baseline"`
	Current   float64 `json:"current"`
	ChangePct float64 `json:"change_pct"`
	Drift     bool    `json:"drift"`
}

// DriftAlert records a detected deviation event. It is only created when at
// least one tracked metric exceeded the drift threshold, but it captures all
// metrics, drifted or not.
type DriftAlert struct {
	Timestamp time.Time     `json:"timestamp"`
	Metrics   []MetricDrift `json:"metrics"`
}

// ThresholdSet holds the three tunable risk thresholds targeted by retuning.
type ThresholdSet struct {
	Critical float64 `json:"critical"`
	High     float64 `json:"high"`
	Medium   float64 `json:"medium"`
}

// ThresholdAdjustment records one retuning event. Adjustments are appended,
// never mutated.
type ThresholdAdjustment struct {
	Timestamp     time.Time    `json:"timestamp"`
	OldThresholds ThresholdSet `json:"old_thresholds"`
	NewThresholds ThresholdSet `json:"new_thresholds"`

	// FPRate is the estimated false-positive rate that drove the adjustment.
	FPRate float64 `json:"fp_rate"`

	// FNRate is the estimated false-negative rate that drove the adjustment.
	FNRate float64 `json:"fn_rate"`
}

// Validate checks an exchange for the fields the pipeline requires.
// Malformed exchanges are rejected before they reach the risk engine.
func (e *Exchange) Validate() error {
	if e.TraceID == "" {
		return fmt.Errorf("exchange missing trace id")
	}
	if e.Prompt == "" {
		return fmt.Errorf("exchange %s missing prompt", e.TraceID)
	}
	if e.Model == "" {
		return fmt.Errorf("exchange %s missing model", e.TraceID)
	}
	return nil
}
