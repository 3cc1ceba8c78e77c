package feedback

import (
	"time"

	"mercator-hq/themis/pkg/governance"
)

// Retuning parameters.
const (
	// RetuneWindow is the number of most recent feedback entries
	// considered per retune.
	RetuneWindow = 100

	// misclassificationLimit is the false-positive/false-negative rate
	// above which thresholds are adjusted.
	misclassificationLimit = 0.2

	// adjustmentStep is the amount each threshold moves per retune.
	adjustmentStep = 0.05
)

// Per-tier caps and floors for threshold adjustment.
var (
	thresholdCeiling = governance.ThresholdSet{Critical: 0.9, High: 0.7, Medium: 0.5}
	thresholdFloor   = governance.ThresholdSet{Critical: 0.5, High: 0.3, Medium: 0.1}
)

// optimizer classifies joined feedback/assessment pairs and steps the
// threshold set. Kept separate from the engine so the adjustment rule is
// testable without feedback history plumbing.
type optimizer struct{}

func newOptimizer() *optimizer {
	return &optimizer{}
}

// joinedEntry is one feedback entry matched (by trace id) to its risk score.
type joinedEntry struct {
	rating    int
	riskScore float64
}

// optimize applies the mutually exclusive adjustment rule:
//
//  1. fp rate > 0.2: raise all thresholds by one step, capped per tier
//     (loosen enforcement).
//  2. else fn rate > 0.2: lower all thresholds by one step, floored per
//     tier (tighten enforcement).
//  3. else: unchanged.
func (o *optimizer) optimize(current governance.ThresholdSet, entries []joinedEntry) (governance.ThresholdSet, float64, float64) {
	if len(entries) == 0 {
		return current, 0, 0
	}

	var falsePositives, falseNegatives int
	for _, entry := range entries {
		// User liked a response the system scored as risky.
		if entry.rating >= 4 && entry.riskScore > 0.5 {
			falsePositives++
		}
		// User disliked a response the system scored as safe.
		if entry.rating <= 2 && entry.riskScore < 0.3 {
			falseNegatives++
		}
	}

	total := float64(len(entries))
	fpRate := float64(falsePositives) / total
	fnRate := float64(falseNegatives) / total

	next := current
	switch {
	case fpRate > misclassificationLimit:
		next.Critical = min(current.Critical+adjustmentStep, thresholdCeiling.Critical)
		next.High = min(current.High+adjustmentStep, thresholdCeiling.High)
		next.Medium = min(current.Medium+adjustmentStep, thresholdCeiling.Medium)
	case fnRate > misclassificationLimit:
		next.Critical = max(current.Critical-adjustmentStep, thresholdFloor.Critical)
		next.High = max(current.High-adjustmentStep, thresholdFloor.High)
		next.Medium = max(current.Medium-adjustmentStep, thresholdFloor.Medium)
	}

	return next, fpRate, fnRate
}

// Retune recomputes the tunable thresholds from the most recent RetuneWindow
// feedback entries joined to the given risk assessment history by trace id.
// An entry with no matching assessment counts with risk score 0.0; this
// favors under-counting false positives over erroring.
//
// A retune that produces a different threshold set appends a
// ThresholdAdjustment record; a no-op retune appends nothing, so calling
// Retune twice with unchanged input is idempotent.
//
// The returned set is not pushed into the guardrails engine; the caller is
// responsible for committing it via guardrails.SetThresholds.
func (e *Engine) Retune(riskHistory []*governance.RiskAssessment) governance.ThresholdSet {
	scoreByTrace := make(map[string]float64, len(riskHistory))
	for _, assessment := range riskHistory {
		scoreByTrace[assessment.TraceID] = assessment.RiskScore
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := len(e.entries) - RetuneWindow
	if start < 0 {
		start = 0
	}
	window := e.entries[start:]

	joined := make([]joinedEntry, 0, len(window))
	for _, entry := range window {
		joined = append(joined, joinedEntry{
			rating:    entry.Rating,
			riskScore: scoreByTrace[entry.TraceID],
		})
	}

	next, fpRate, fnRate := e.optimizer.optimize(e.thresholds, joined)
	if next == e.thresholds {
		return e.thresholds
	}

	adjustment := &governance.ThresholdAdjustment{
		Timestamp:     time.Now().UTC(),
		OldThresholds: e.thresholds,
		NewThresholds: next,
		FPRate:        fpRate,
		FNRate:        fnRate,
	}
	e.adjustments = append(e.adjustments, adjustment)
	e.thresholds = next

	e.logger.Info("thresholds retuned",
		"fp_rate", fpRate,
		"fn_rate", fnRate,
		"critical", next.Critical,
		"high", next.High,
		"medium", next.Medium,
	)

	return next
}
