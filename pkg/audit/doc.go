// Package audit provides the append-only audit log for governed exchanges.
//
// The Recorder enqueues records on a buffered channel and a background
// worker drains them into a Storage backend, so the request path never
// blocks on audit writes. A failed write after a decision has been returned
// is logged as an operational fault and does not reverse the decision; an
// assessment, its decision, and its audit record are three independent
// appends with no cross-collection transaction.
//
// Storage backends live in the storage subpackage: in-memory for tests and
// SQLite (WAL mode) for durable single-node deployments.
package audit
