package risk

import (
	"log/slog"
	"sync"
	"time"

	"mercator-hq/themis/pkg/governance"
)

// Engine scores exchanges for risk. Scoring is stateless per call except for
// appending the produced assessment to the engine's owned history, which
// backs trend reporting and threshold retuning joins.
type Engine struct {
	mu      sync.RWMutex
	history []*governance.RiskAssessment
	logger  *slog.Logger
}

// Trends summarizes the assessment history.
type Trends struct {
	Total      int                             `json:"total"`
	ByCategory map[governance.RiskCategory]int `json:"by_category"`
	AvgScore   float64                         `json:"avg_risk_score"`
}

// NewEngine creates a risk engine with an empty assessment history.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger.With("component", "risk.engine"),
	}
}

// Assess runs the detector battery against an exchange and returns the
// aggregated assessment. The overall score is the maximum of the detector
// sub-scores: a single severe signal cannot be diluted by many weak ones.
func (e *Engine) Assess(ex *governance.Exchange) *governance.RiskAssessment {
	var (
		evidence []string
		score    float64
	)

	// Detectors run in declaration order; evidence order is part of the
	// assessment contract.
	injScore, injEvidence := detectInjection(ex.Prompt)
	if injScore > 0 {
		evidence = append(evidence, injEvidence...)
		score = max(score, injScore)
	}

	unsafeScore, unsafeEvidence := detectUnsafeContent(ex.Prompt, ex.Response)
	if unsafeScore > 0 {
		evidence = append(evidence, unsafeEvidence...)
		score = max(score, unsafeScore)
	}

	leakScore, leakEvidence := detectDataLeakage(ex.Response)
	if leakScore > 0 {
		evidence = append(evidence, leakEvidence...)
		score = max(score, leakScore)
	}

	hallScore, hallEvidence := detectHallucination(ex.Response)
	if hallScore > 0 {
		evidence = append(evidence, hallEvidence...)
		score = max(score, hallScore)
	}

	assessment := &governance.RiskAssessment{
		TraceID:      ex.TraceID,
		RiskScore:    score,
		RiskCategory: governance.CategorizeScore(score),
		Evidence:     evidence,
		Confidence:   confidence(len(evidence)),
		Timestamp:    time.Now().UTC(),
	}

	e.mu.Lock()
	e.history = append(e.history, assessment)
	e.mu.Unlock()

	if score > 0 {
		e.logger.Debug("risk detected",
			"trace_id", ex.TraceID,
			"score", score,
			"category", assessment.RiskCategory,
			"evidence_count", len(evidence),
		)
	}

	return assessment
}

// confidence maps corroborating evidence to assessment confidence,
// capped below certainty.
func confidence(evidenceCount int) float64 {
	return min(0.5+float64(evidenceCount)*0.1, 0.95)
}

// Trends returns aggregate statistics over the assessment history.
func (e *Engine) Trends() *Trends {
	e.mu.RLock()
	defer e.mu.RUnlock()

	t := &Trends{
		Total:      len(e.history),
		ByCategory: make(map[governance.RiskCategory]int),
	}

	if len(e.history) == 0 {
		return t
	}

	var sum float64
	for _, a := range e.history {
		t.ByCategory[a.RiskCategory]++
		sum += a.RiskScore
	}
	t.AvgScore = sum / float64(len(e.history))

	return t
}

// History returns a snapshot copy of the assessment history, most recent
// last. The returned slice is safe for the caller to retain.
func (e *Engine) History() []*governance.RiskAssessment {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*governance.RiskAssessment, len(e.history))
	copy(out, e.history)
	return out
}
