// Package logging configures structured logging for Themis on top of
// log/slog. Components tag their loggers with a "component" attribute
// (e.g. "risk.engine", "audit.recorder") so log streams can be filtered per
// subsystem.
package logging
