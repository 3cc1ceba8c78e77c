package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/themis/pkg/audit"
	"mercator-hq/themis/pkg/costs"
	"mercator-hq/themis/pkg/feedback"
	"mercator-hq/themis/pkg/gateway"
	"mercator-hq/themis/pkg/governance"
	"mercator-hq/themis/pkg/guardrails"
	"mercator-hq/themis/pkg/risk"
	"mercator-hq/themis/pkg/telemetry/metrics"
)

// Request is one governed completion request.
type Request struct {
	// Prompt is the user prompt. Required.
	Prompt string `json:"prompt"`

	// Model optionally overrides the configured default model.
	Model string `json:"model,omitempty"`

	// UserID optionally identifies the requesting user.
	UserID string `json:"user_id,omitempty"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	TraceID string `json:"trace_id"`

	// Response is the final, governed response text: the policy
	// replacement when one applies, otherwise the original.
	Response string `json:"response"`

	// OriginalResponse is the raw model output before enforcement.
	OriginalResponse string `json:"original_response"`

	// Assessment is the risk assessment for the exchange.
	Assessment *governance.RiskAssessment `json:"risk_assessment"`

	// Decision is the enforcement decision for the exchange.
	Decision *governance.PolicyDecision `json:"policy_decision"`

	// Allowed is false only when the decision action is block.
	Allowed bool `json:"allowed"`

	TokensUsed int     `json:"tokens_used"`
	CostUSD    float64 `json:"cost_usd"`
	LatencyMS  float64 `json:"latency_ms"`
}

// Health aggregates reporting from every component.
type Health struct {
	RiskTrends       *risk.Trends      `json:"risk_trends"`
	EnforcementStats *guardrails.Stats `json:"enforcement_stats"`
	CostSummary      *costs.Summary    `json:"cost_summary"`
	AuditSummary     *audit.Summary    `json:"audit_summary"`
	FeedbackSummary  *feedback.Summary `json:"feedback_summary"`
}

// Pipeline composes the governance components into one per-request decision
// flow: generate, assess, enforce, record cost, audit, finalize. Each call
// is independent and may run concurrently with others; the pipeline owns no
// per-collection state of its own.
type Pipeline struct {
	gateway    *gateway.Gateway
	risk       *risk.Engine
	guardrails *guardrails.Engine
	feedback   *feedback.Engine
	monitor    *costs.Monitor
	recorder   *audit.Recorder
	collector  *metrics.Collector
	logger     *slog.Logger
}

// New creates a pipeline over fully constructed components. The pipeline
// references component state transiently per call and owns none of it.
func New(
	gw *gateway.Gateway,
	riskEngine *risk.Engine,
	guardrailsEngine *guardrails.Engine,
	feedbackEngine *feedback.Engine,
	monitor *costs.Monitor,
	recorder *audit.Recorder,
	collector *metrics.Collector,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		gateway:    gw,
		risk:       riskEngine,
		guardrails: guardrailsEngine,
		feedback:   feedbackEngine,
		monitor:    monitor,
		recorder:   recorder,
		collector:  collector,
		logger:     logger.With("component", "pipeline"),
	}
}

// Process runs one request through the full governance pipeline. The
// sequence is fixed with no branching in the happy path; every step's side
// effects are unconditional and ordered.
//
// A failed generation aborts the request with no risk or policy record
// created. Once a decision exists it is final for its trace id.
func (p *Pipeline) Process(ctx context.Context, req *Request) (*Result, error) {
	start := time.Now()

	if req == nil || req.Prompt == "" {
		p.record("failed", start)
		return nil, fmt.Errorf("request must include a prompt")
	}

	ex, err := p.gateway.Generate(ctx, &gateway.Request{
		Prompt: req.Prompt,
		Model:  req.Model,
		UserID: req.UserID,
	})
	if err != nil {
		p.record("failed", start)
		return nil, err
	}

	if err := ex.Validate(); err != nil {
		p.record("failed", start)
		return nil, fmt.Errorf("malformed exchange: %w", err)
	}

	assessment := p.risk.Assess(ex)
	p.collector.RecordAssessment(assessment)

	decision := p.guardrails.Enforce(ex, assessment)
	p.collector.RecordDecision(decision)

	p.monitor.Record(ex.TraceID, ex.Model, ex.TokensUsed, ex.CostUSD, ex.LatencyMS, ex.Timestamp)
	p.collector.RecordCost(ex.Model, ex.TokensUsed, ex.CostUSD)

	// Audit append is asynchronous; a failed write is an operational
	// fault, never a reversal of the decision made above.
	p.recorder.Append(ex, assessment, decision)

	result := &Result{
		TraceID:          ex.TraceID,
		Response:         ex.Response,
		OriginalResponse: ex.Response,
		Assessment:       assessment,
		Decision:         decision,
		Allowed:          true,
		TokensUsed:       ex.TokensUsed,
		CostUSD:          ex.CostUSD,
		LatencyMS:        ex.LatencyMS,
	}

	switch decision.Action {
	case governance.ActionBlock:
		result.Allowed = false
		result.Response = decision.ModifiedResponse
	case governance.ActionFallback, governance.ActionRewrite:
		if decision.ModifiedResponse != "" {
			result.Response = decision.ModifiedResponse
		}
	case governance.ActionAllow:
	}

	outcome := "allowed"
	if !result.Allowed {
		outcome = "blocked"
	}
	p.record(outcome, start)

	return result, nil
}

func (p *Pipeline) record(outcome string, start time.Time) {
	p.collector.RecordRequest(outcome, time.Since(start).Seconds())
}

// RecordFeedback stores a feedback entry and updates metrics.
func (p *Pipeline) RecordFeedback(traceID string, rating int, typ governance.FeedbackType, comment string) (*governance.FeedbackEntry, error) {
	entry, err := p.feedback.Record(traceID, rating, typ, comment)
	if err != nil {
		return nil, err
	}
	p.collector.RecordFeedback(typ)
	return entry, nil
}

// CheckDrift runs a drift check and updates metrics when drift is found.
func (p *Pipeline) CheckDrift() *feedback.DriftReport {
	report := p.feedback.DriftCheck()
	if report.Status == feedback.DriftDetected {
		p.collector.RecordDriftAlert()
	}
	return report
}

// Retune recomputes thresholds from feedback joined to the risk history and
// commits the result into the guardrails engine. The explicit hand-off
// keeps the feedback engine from mutating guardrails state directly.
func (p *Pipeline) Retune() (governance.ThresholdSet, error) {
	before := p.feedback.Thresholds()
	next := p.feedback.Retune(p.risk.History())

	if next != before {
		if err := p.guardrails.SetThresholds(next); err != nil {
			return next, fmt.Errorf("failed to commit retuned thresholds: %w", err)
		}
		p.collector.RecordRetune()
		p.logger.Info("retuned thresholds committed",
			"critical", next.Critical,
			"high", next.High,
			"medium", next.Medium,
		)
	}

	return next, nil
}

// Health aggregates component reporting for the operator surface.
func (p *Pipeline) Health(ctx context.Context) (*Health, error) {
	auditSummary, err := p.recorder.Summarize(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit summary failed: %w", err)
	}

	return &Health{
		RiskTrends:       p.risk.Trends(),
		EnforcementStats: p.guardrails.Stats(),
		CostSummary:      p.monitor.Summarize(),
		AuditSummary:     auditSummary,
		FeedbackSummary:  p.feedback.Summarize(),
	}, nil
}

// Guardrails exposes the guardrails engine for policy administration.
func (p *Pipeline) Guardrails() *guardrails.Engine {
	return p.guardrails
}

// Feedback exposes the feedback engine for reporting.
func (p *Pipeline) Feedback() *feedback.Engine {
	return p.feedback
}

// Risk exposes the risk engine for trend reporting.
func (p *Pipeline) Risk() *risk.Engine {
	return p.risk
}

// Audit exposes the audit recorder for queries.
func (p *Pipeline) Audit() *audit.Recorder {
	return p.recorder
}

// Costs exposes the cost monitor for reporting.
func (p *Pipeline) Costs() *costs.Monitor {
	return p.monitor
}
