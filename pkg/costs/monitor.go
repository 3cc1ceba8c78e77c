package costs

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Metric is one recorded cost/latency measurement for an exchange.
type Metric struct {
	TraceID   string    `json:"trace_id"`
	Model     string    `json:"model"`
	Tokens    int       `json:"tokens"`
	CostUSD   float64   `json:"cost_usd"`
	LatencyMS float64   `json:"latency_ms"`
	Timestamp time.Time `json:"timestamp"`
}

// Alert flags an exchange whose cost exceeded the configured per-request
// threshold.
type Alert struct {
	TraceID   string    `json:"trace_id"`
	CostUSD   float64   `json:"cost_usd"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Summary is the aggregate cost/performance report.
type Summary struct {
	TotalRequests int                `json:"total_requests"`
	TotalCostUSD  float64            `json:"total_cost_usd"`
	AvgLatencyMS  float64            `json:"avg_latency_ms"`
	TotalTokens   int                `json:"total_tokens"`
	CostByModel   map[string]float64 `json:"cost_by_model"`
	TokensByModel map[string]int     `json:"tokens_by_model"`
	Alerts        int                `json:"alerts"`
}

// Monitor records cost and latency metrics per exchange and raises alerts
// for anomalously expensive requests. It owns its history; one RWMutex
// guards metrics and alerts.
type Monitor struct {
	mu             sync.RWMutex
	metrics        []Metric
	alerts         []Alert
	alertThreshold float64
	logger         *slog.Logger
}

// NewMonitor creates a cost monitor. Exchanges costing more than
// alertThresholdUSD each raise an alert.
func NewMonitor(alertThresholdUSD float64, logger *slog.Logger) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		alertThreshold: alertThresholdUSD,
		logger:         logger.With("component", "costs.monitor"),
	}
}

// Record appends one measurement and checks it for cost anomalies.
func (m *Monitor) Record(traceID, model string, tokens int, costUSD, latencyMS float64, ts time.Time) {
	metric := Metric{
		TraceID:   traceID,
		Model:     model,
		Tokens:    tokens,
		CostUSD:   costUSD,
		LatencyMS: latencyMS,
		Timestamp: ts,
	}

	m.mu.Lock()
	m.metrics = append(m.metrics, metric)

	if m.alertThreshold > 0 && costUSD > m.alertThreshold {
		m.alerts = append(m.alerts, Alert{
			TraceID:   traceID,
			CostUSD:   costUSD,
			Reason:    "High cost per request",
			Timestamp: ts,
		})
		m.logger.Warn("cost alert", "trace_id", traceID, "cost_usd", costUSD)
	}
	m.mu.Unlock()
}

// TotalCost returns the summed cost of metrics recorded within the last
// window duration. A zero window sums the full history.
func (m *Monitor) TotalCost(window time.Duration) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var cutoff time.Time
	if window > 0 {
		cutoff = time.Now().Add(-window)
	}

	var total float64
	for _, metric := range m.metrics {
		if metric.Timestamp.After(cutoff) {
			total += metric.CostUSD
		}
	}
	return total
}

// TopCost returns the n most expensive recorded exchanges.
func (m *Monitor) TopCost(n int) []Metric {
	m.mu.RLock()
	sorted := make([]Metric, len(m.metrics))
	copy(sorted, m.metrics)
	m.mu.RUnlock()

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CostUSD > sorted[j].CostUSD
	})

	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// Alerts returns a snapshot of all cost alerts.
func (m *Monitor) Alerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Summarize returns the aggregate cost/performance report.
func (m *Monitor) Summarize() *Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &Summary{
		TotalRequests: len(m.metrics),
		CostByModel:   make(map[string]float64),
		TokensByModel: make(map[string]int),
		Alerts:        len(m.alerts),
	}

	if len(m.metrics) == 0 {
		return s
	}

	var latencySum float64
	for _, metric := range m.metrics {
		s.TotalCostUSD += metric.CostUSD
		s.TotalTokens += metric.Tokens
		s.CostByModel[metric.Model] += metric.CostUSD
		s.TokensByModel[metric.Model] += metric.Tokens
		latencySum += metric.LatencyMS
	}
	s.AvgLatencyMS = latencySum / float64(len(m.metrics))

	return s
}
