// Package metrics provides Prometheus metrics for the governance pipeline:
// request outcomes and durations, risk score distribution, assessments by
// category, enforcement decisions by action and policy, feedback volume,
// drift alerts, threshold adjustments, and cost/token totals.
package metrics
