// Package costs provides cost calculation and monitoring for governed
// exchanges.
//
// The Calculator prices token usage with flat per-model per-1K-token rates
// from configuration, falling back to a default rate for unknown models.
// The Monitor records per-exchange cost and latency metrics, raises alerts
// for anomalously expensive requests, and serves aggregate rollups (total
// cost, per-model cost and tokens, average latency).
package costs
