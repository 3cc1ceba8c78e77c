// Package source loads guardrail policy sets from YAML files and keeps a
// running engine synchronized with changes on disk.
//
// A policy file replaces the engine's whole policy set atomically. An
// invalid file never reaches the engine; the previous set stays active
// until a valid file is observed.
package source
