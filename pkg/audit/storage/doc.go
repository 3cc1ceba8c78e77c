// Package storage provides storage backends for audit records.
//
// Two backends implement the audit.Storage interface:
//
//   - Memory: in-memory slice for tests and development
//   - SQLite: durable single-node storage with WAL mode, busy timeout,
//     and indexes on trace id, user id, and timestamp
//
// All backends are safe for concurrent use; the recorder's single async
// writer runs alongside concurrent readers.
package storage
