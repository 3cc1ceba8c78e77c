// Package guardrails implements policy enforcement over risk assessments.
//
// The engine owns a mutable set of named policies, each mapping a risk
// threshold to an enforcement action (allow, block, fallback, rewrite).
// Enforcement iterates enabled policies in descending threshold order and
// fires the first policy whose threshold the assessment's score meets, so a
// response above both the block and fallback thresholds is always blocked.
//
// The default seed set is three tiers: critical_risk_block (0.7),
// high_risk_fallback (0.6), and medium_risk_rewrite (0.3). Their thresholds
// are configuration, not fixed law; the feedback engine recomputes them from
// false-positive/false-negative estimates and callers commit the result via
// SetThresholds.
//
// Policy sets can also be loaded from a YAML file and hot-reloaded via the
// source subpackage, and snapshotted to SQLite via the storage subpackage.
package guardrails
