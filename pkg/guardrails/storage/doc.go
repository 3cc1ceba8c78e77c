// Package storage persists guardrail policy sets and threshold snapshots
// in SQLite so that operator changes made at runtime survive restarts.
package storage
