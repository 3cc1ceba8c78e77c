package feedback

import (
	"time"

	"mercator-hq/themis/pkg/governance"
)

// DriftThresholdPct is the percent change over the baseline at which a
// metric is flagged as drifted.
const DriftThresholdPct = 20.0

// DriftStatus distinguishes the three outcomes of a drift check.
type DriftStatus string

const (
	// DriftInsufficientData means no baseline exists yet (fewer than
	// BaselineSampleSize entries). This is not the same as "no drift".
	DriftInsufficientData DriftStatus = "insufficient_data"

	// DriftStable means a baseline exists and no tracked metric exceeded
	// the drift threshold.
	DriftStable DriftStatus = "stable"

	// DriftDetected means at least one tracked metric exceeded the drift
	// threshold; per-metric detail is attached.
	DriftDetected DriftStatus = "drift_detected"
)

// DriftReport is the result of a drift check.
type DriftReport struct {
	Status    DriftStatus              `json:"status"`
	Metrics   []governance.MetricDrift `json:"metrics,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// DriftCheck compares current quality metrics to the frozen baseline.
//
// The baseline is established from the first BaselineSampleSize entries the
// first time the history reaches that size, and is never recomputed
// afterward. Before that point the report carries DriftInsufficientData.
//
// A metric drifts when |current - baseline| / baseline exceeds
// DriftThresholdPct percent. If any metric drifts, a DriftAlert capturing
// all tracked metrics is appended to the alert history.
func (e *Engine) DriftCheck() *DriftReport {
	e.mu.Lock()
	defer e.mu.Unlock()

	report := &DriftReport{Timestamp: time.Now().UTC()}

	if e.baseline == nil {
		if len(e.entries) < BaselineSampleSize {
			report.Status = DriftInsufficientData
			return report
		}
		e.establishBaseline()
	}

	current := metricsOf(e.entries)
	report.Metrics = []governance.MetricDrift{
		driftOf("avg_rating", e.baseline.AvgRating, current.AvgRating),
		driftOf("positive_rate", e.baseline.PositiveRate, current.PositiveRate),
		driftOf("negative_rate", e.baseline.NegativeRate, current.NegativeRate),
	}

	report.Status = DriftStable
	for _, m := range report.Metrics {
		if m.Drift {
			report.Status = DriftDetected
			break
		}
	}

	if report.Status == DriftDetected {
		alert := &governance.DriftAlert{
			Timestamp: report.Timestamp,
			Metrics:   report.Metrics,
		}
		e.alerts = append(e.alerts, alert)

		e.logger.Warn("quality drift detected",
			"baseline_sample", e.baseline.SampleSize,
			"total_feedback", current.Total,
		)
	}

	return report
}

// establishBaseline freezes the quality metrics of the first
// BaselineSampleSize entries. Caller holds e.mu.
func (e *Engine) establishBaseline() {
	m := metricsOf(e.entries[:BaselineSampleSize])
	e.baseline = &governance.QualityBaseline{
		AvgRating:     m.AvgRating,
		PositiveRate:  m.PositiveRate,
		NegativeRate:  m.NegativeRate,
		SampleSize:    BaselineSampleSize,
		EstablishedAt: time.Now().UTC(),
	}

	e.logger.Info("quality baseline established",
		"avg_rating", m.AvgRating,
		"positive_rate", m.PositiveRate,
		"negative_rate", m.NegativeRate,
	)
}

// driftOf computes the percent change of one metric against its baseline.
// A zero baseline cannot express a percent change and never flags drift.
func driftOf(name string, baseline, current float64) governance.MetricDrift {
	d := governance.MetricDrift{
		Metric:   name,
		Baseline: baseline,
		Current:  current,
	}

	if baseline == 0 {
		return d
	}

	change := (current - baseline) / baseline * 100
	if change < 0 {
		change = -change
	}
	d.ChangePct = change
	d.Drift = change > DriftThresholdPct
	return d
}
