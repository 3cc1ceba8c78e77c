package feedback

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"mercator-hq/themis/pkg/governance"
)

// BaselineSampleSize is the number of feedback entries frozen into the
// quality baseline the first time the history reaches that size.
const BaselineSampleSize = 50

// Engine collects user feedback, computes rolling quality metrics, detects
// drift against a frozen baseline, and recomputes guardrails thresholds from
// false-positive/false-negative estimates.
//
// The engine owns the feedback history, the baseline, the drift alert list,
// and the threshold adjustment log. It never mutates guardrails state; the
// caller commits retuned thresholds explicitly.
type Engine struct {
	mu          sync.RWMutex
	entries     []*governance.FeedbackEntry
	baseline    *governance.QualityBaseline
	alerts      []*governance.DriftAlert
	adjustments []*governance.ThresholdAdjustment
	thresholds  governance.ThresholdSet
	optimizer   *optimizer
	logger      *slog.Logger
}

// Summary reports aggregate feedback statistics plus the most recent
// entries.
type Summary struct {
	Total     int                             `json:"total"`
	ByType    map[governance.FeedbackType]int `json:"by_type"`
	AvgRating float64                         `json:"avg_rating"`
	Recent    []*governance.FeedbackEntry     `json:"recent_feedback"`
}

// NewEngine creates a feedback engine with the given initial thresholds,
// normally the guardrails engine's seed values.
func NewEngine(initial governance.ThresholdSet, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		thresholds: initial,
		optimizer:  newOptimizer(),
		logger:     logger.With("component", "feedback.engine"),
	}
}

// Record appends a feedback entry for an exchange. Ratings outside 1..5 and
// unknown feedback types are rejected before any state changes.
func (e *Engine) Record(traceID string, rating int, typ governance.FeedbackType, comment string) (*governance.FeedbackEntry, error) {
	if traceID == "" {
		return nil, fmt.Errorf("feedback requires a trace id")
	}
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be in 1..5, got %d", rating)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("invalid feedback type %q", typ)
	}

	entry := &governance.FeedbackEntry{
		TraceID:   traceID,
		Rating:    rating,
		Type:      typ,
		Comment:   comment,
		Timestamp: time.Now().UTC(),
	}

	e.mu.Lock()
	e.entries = append(e.entries, entry)
	e.mu.Unlock()

	return entry, nil
}

// Metrics computes current quality metrics over the full feedback history.
func (e *Engine) Metrics() governance.QualityMetrics {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return metricsOf(e.entries)
}

func metricsOf(entries []*governance.FeedbackEntry) governance.QualityMetrics {
	m := governance.QualityMetrics{Total: len(entries)}
	if len(entries) == 0 {
		return m
	}

	var ratingSum float64
	var positive, negative int
	for _, entry := range entries {
		ratingSum += float64(entry.Rating)
		switch entry.Type {
		case governance.FeedbackPositive:
			positive++
		case governance.FeedbackNegative:
			negative++
		case governance.FeedbackNeutral:
		}
	}

	n := float64(len(entries))
	m.AvgRating = ratingSum / n
	m.PositiveRate = float64(positive) / n
	m.NegativeRate = float64(negative) / n
	return m
}

// Summarize reports totals, per-type counts, the mean rating, and the ten
// most recent entries.
func (e *Engine) Summarize() *Summary {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := &Summary{
		Total:  len(e.entries),
		ByType: make(map[governance.FeedbackType]int),
	}

	if len(e.entries) == 0 {
		s.Recent = []*governance.FeedbackEntry{}
		return s
	}

	var ratingSum float64
	for _, entry := range e.entries {
		s.ByType[entry.Type]++
		ratingSum += float64(entry.Rating)
	}
	s.AvgRating = ratingSum / float64(len(e.entries))

	start := len(e.entries) - 10
	if start < 0 {
		start = 0
	}
	s.Recent = append(s.Recent, e.entries[start:]...)

	return s
}

// Alerts returns a snapshot of all drift alerts raised so far.
func (e *Engine) Alerts() []*governance.DriftAlert {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*governance.DriftAlert, len(e.alerts))
	copy(out, e.alerts)
	return out
}

// Adjustments returns a snapshot of the threshold adjustment log.
func (e *Engine) Adjustments() []*governance.ThresholdAdjustment {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*governance.ThresholdAdjustment, len(e.adjustments))
	copy(out, e.adjustments)
	return out
}

// Thresholds returns the engine's current view of the tunable thresholds.
func (e *Engine) Thresholds() governance.ThresholdSet {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.thresholds
}

// Baseline returns the frozen quality baseline, or nil if fewer than
// BaselineSampleSize entries have been recorded.
func (e *Engine) Baseline() *governance.QualityBaseline {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.baseline == nil {
		return nil
	}
	b := *e.baseline
	return &b
}
