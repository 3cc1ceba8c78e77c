package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/themis/pkg/config"
	"mercator-hq/themis/pkg/governance"
)

// Collector registers and records all Prometheus metrics for the governance
// pipeline. A disabled collector is a no-op so call sites never need to
// branch on configuration.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Histogram
	riskScore       prometheus.Histogram
	assessments     *prometheus.CounterVec
	decisions       *prometheus.CounterVec
	feedbackTotal   *prometheus.CounterVec
	driftAlerts     prometheus.Counter
	retunes         prometheus.Counter
	costTotal       prometheus.Counter
	tokensTotal     *prometheus.CounterVec
}

// NewCollector creates a metrics collector with the given configuration and
// registry. If registry is nil a new one is created.
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		enabled:  cfg.Enabled,
		registry: registry,
	}

	if !cfg.Enabled {
		return c
	}

	ns := cfg.Namespace

	c.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "requests_total",
		Help:      "Governed requests by outcome (allowed, blocked, failed).",
	}, []string{"outcome"})

	c.requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "request_duration_seconds",
		Help:      "End-to-end pipeline duration including generation.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})

	c.riskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "risk_score",
		Help:      "Distribution of overall risk scores.",
		Buckets:   []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1},
	})

	c.assessments = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "risk_assessments_total",
		Help:      "Risk assessments by category.",
	}, []string{"category"})

	c.decisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "policy_decisions_total",
		Help:      "Enforcement decisions by action and policy id.",
	}, []string{"action", "policy_id"})

	c.feedbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "feedback_entries_total",
		Help:      "Recorded feedback entries by type.",
	}, []string{"type"})

	c.driftAlerts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "drift_alerts_total",
		Help:      "Drift alerts raised by the feedback engine.",
	})

	c.retunes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "threshold_adjustments_total",
		Help:      "Threshold adjustments committed by retuning.",
	})

	c.costTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "cost_usd_total",
		Help:      "Cumulative priced cost of all exchanges in USD.",
	})

	c.tokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "tokens_total",
		Help:      "Cumulative token usage by model.",
	}, []string{"model"})

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.riskScore,
		c.assessments,
		c.decisions,
		c.feedbackTotal,
		c.driftAlerts,
		c.retunes,
		c.costTotal,
		c.tokensTotal,
	)

	return c
}

// Registry returns the underlying Prometheus registry for handler exposure.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRequest records one completed pipeline run.
func (c *Collector) RecordRequest(outcome string, durationSeconds float64) {
	if !c.enabled {
		return
	}
	c.requestsTotal.WithLabelValues(outcome).Inc()
	c.requestDuration.Observe(durationSeconds)
}

// RecordAssessment records a risk assessment.
func (c *Collector) RecordAssessment(a *governance.RiskAssessment) {
	if !c.enabled {
		return
	}
	c.riskScore.Observe(a.RiskScore)
	c.assessments.WithLabelValues(string(a.RiskCategory)).Inc()
}

// RecordDecision records an enforcement decision.
func (c *Collector) RecordDecision(d *governance.PolicyDecision) {
	if !c.enabled {
		return
	}
	c.decisions.WithLabelValues(string(d.Action), d.PolicyID).Inc()
}

// RecordFeedback records a feedback entry.
func (c *Collector) RecordFeedback(typ governance.FeedbackType) {
	if !c.enabled {
		return
	}
	c.feedbackTotal.WithLabelValues(string(typ)).Inc()
}

// RecordDriftAlert records a raised drift alert.
func (c *Collector) RecordDriftAlert() {
	if !c.enabled {
		return
	}
	c.driftAlerts.Inc()
}

// RecordRetune records a committed threshold adjustment.
func (c *Collector) RecordRetune() {
	if !c.enabled {
		return
	}
	c.retunes.Inc()
}

// RecordCost records the priced cost and token usage of one exchange.
func (c *Collector) RecordCost(model string, tokens int, costUSD float64) {
	if !c.enabled {
		return
	}
	c.costTotal.Add(costUSD)
	c.tokensTotal.WithLabelValues(model).Add(float64(tokens))
}
