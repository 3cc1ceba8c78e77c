// Package feedback implements the learning loop of the governance pipeline:
// user feedback collection, quality metrics, statistical drift detection,
// and feedback-driven threshold retuning.
//
// # Drift Detection
//
// The first 50 feedback entries are frozen into a quality baseline. Each
// drift check compares current metrics (average rating, positive rate,
// negative rate) to that baseline and flags any metric whose percent change
// exceeds 20%. The check distinguishes three outcomes: insufficient data
// (no baseline yet), stable, and drift detected with per-metric detail.
//
// # Threshold Retuning
//
// Retuning joins the most recent 100 feedback entries to their risk
// assessments by trace id and estimates misclassification rates:
//
//   - false positive: rating >= 4 and risk score > 0.5
//   - false negative: rating <= 2 and risk score < 0.3
//
// A false-positive rate above 0.2 loosens enforcement (+0.05 per tier,
// capped); otherwise a false-negative rate above 0.2 tightens it (-0.05 per
// tier, floored). Changed results are appended to the adjustment log; the
// caller commits new thresholds into the guardrails engine explicitly.
//
// Drift checks and retunes are invoked on demand or by the scheduler, never
// inline with request processing.
package feedback
