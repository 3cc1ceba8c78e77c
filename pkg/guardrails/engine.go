package guardrails

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"mercator-hq/themis/pkg/governance"
)

// Replacement texts applied by enforcement actions.
const (
	blockedNotice = "[Response blocked by safety policy]"

	fallbackNotice = "I cannot assist with that request as it may involve " +
		"harmful or unethical activities. Please ask something else that I " +
		"can help with constructively."
)

// Default policy ids. These three tiers are the target of feedback-driven
// threshold retuning.
const (
	PolicyCriticalBlock = "critical_risk_block"
	PolicyHighFallback  = "high_risk_fallback"
	PolicyMediumRewrite = "medium_risk_rewrite"
)

// Engine holds the mutable policy set and enforces the most severe
// applicable policy against each risk assessment. A single RWMutex guards
// the policy map and the enforcement history.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*governance.Policy
	history  []*governance.PolicyDecision
	logger   *slog.Logger
}

// Stats summarizes the enforcement history.
type Stats struct {
	Total    int                             `json:"total"`
	ByAction map[governance.PolicyAction]int `json:"by_action"`
}

// NewEngine creates a guardrails engine seeded with the three default
// policies: block at >=0.7, fallback at >=0.6, rewrite at >=0.3.
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		policies: defaultPolicies(),
		logger:   logger.With("component", "guardrails.engine"),
	}
}

func defaultPolicies() map[string]*governance.Policy {
	return map[string]*governance.Policy{
		PolicyCriticalBlock: {
			ID:            PolicyCriticalBlock,
			Name:          "Block Critical Risk Responses",
			RiskThreshold: 0.7,
			Action:        governance.ActionBlock,
			Enabled:       true,
		},
		PolicyHighFallback: {
			ID:            PolicyHighFallback,
			Name:          "Fallback for High Risk",
			RiskThreshold: 0.6,
			Action:        governance.ActionFallback,
			Enabled:       true,
		},
		PolicyMediumRewrite: {
			ID:            PolicyMediumRewrite,
			Name:          "Rewrite Medium Risk Responses",
			RiskThreshold: 0.3,
			Action:        governance.ActionRewrite,
			Enabled:       true,
		},
	}
}

// Enforce evaluates enabled policies against the assessment in descending
// threshold order and applies the first one whose threshold is met. The
// ordering is load-bearing: when a score exceeds both the block and fallback
// thresholds, the response must be blocked, not merely soft-handled.
//
// If no enabled policy matches, a synthetic allow decision with the
// default-allow sentinel id is returned. Every decision is appended to the
// enforcement history.
func (e *Engine) Enforce(ex *governance.Exchange, assessment *governance.RiskAssessment) *governance.PolicyDecision {
	e.mu.Lock()
	defer e.mu.Unlock()

	ordered := make([]*governance.Policy, 0, len(e.policies))
	for _, p := range e.policies {
		ordered = append(ordered, p)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].RiskThreshold != ordered[j].RiskThreshold {
			return ordered[i].RiskThreshold > ordered[j].RiskThreshold
		}
		// Stable tie-break so enforcement order is deterministic.
		return ordered[i].ID < ordered[j].ID
	})

	var decision *governance.PolicyDecision
	for _, policy := range ordered {
		if policy.Enabled && assessment.RiskScore >= policy.RiskThreshold {
			decision = applyPolicy(policy, ex, assessment)
			break
		}
	}

	if decision == nil {
		decision = &governance.PolicyDecision{
			TraceID:   ex.TraceID,
			Action:    governance.ActionAllow,
			PolicyID:  governance.DefaultAllowPolicyID,
			Reason:    "no policy violations detected",
			Timestamp: time.Now().UTC(),
		}
	}

	e.history = append(e.history, decision)

	if decision.Action != governance.ActionAllow {
		e.logger.Info("policy enforced",
			"trace_id", ex.TraceID,
			"policy_id", decision.PolicyID,
			"action", decision.Action,
			"risk_score", assessment.RiskScore,
		)
	}

	return decision
}

// applyPolicy builds the decision for a fired policy. The rewrite action
// currently passes the original response through unmodified; the action is
// reserved for a safer-regeneration step.
func applyPolicy(policy *governance.Policy, ex *governance.Exchange, assessment *governance.RiskAssessment) *governance.PolicyDecision {
	decision := &governance.PolicyDecision{
		TraceID:   ex.TraceID,
		Action:    policy.Action,
		PolicyID:  policy.ID,
		Timestamp: time.Now().UTC(),
	}

	switch policy.Action {
	case governance.ActionBlock:
		decision.Reason = fmt.Sprintf("Blocked due to %s risk", assessment.RiskCategory)
		decision.ModifiedResponse = blockedNotice
	case governance.ActionFallback:
		decision.Reason = fmt.Sprintf("Fallback triggered for %s risk", assessment.RiskCategory)
		decision.ModifiedResponse = fallbackNotice
	case governance.ActionRewrite:
		decision.Reason = fmt.Sprintf("Response flagged for rewrite due to %s risk", assessment.RiskCategory)
		decision.ModifiedResponse = ex.Response
	case governance.ActionAllow:
		decision.Reason = "Policy check passed"
	}

	return decision
}

// AddPolicy registers a new policy. Duplicate ids, thresholds outside
// [0, 1], and unknown actions are rejected with the prior state preserved.
func (e *Engine) AddPolicy(policy *governance.Policy) error {
	if policy.RiskThreshold < 0 || policy.RiskThreshold > 1 {
		return fmt.Errorf("%w: %.2f", ErrInvalidThreshold, policy.RiskThreshold)
	}
	if !policy.Action.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidAction, policy.Action)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.policies[policy.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicatePolicy, policy.ID)
	}

	p := *policy
	e.policies[policy.ID] = &p

	e.logger.Info("policy added", "policy_id", policy.ID, "threshold", policy.RiskThreshold, "action", policy.Action)
	return nil
}

// RemovePolicy deletes a policy by id.
func (e *Engine) RemovePolicy(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.policies[id]; !exists {
		return fmt.Errorf("%w: %q", ErrPolicyNotFound, id)
	}

	delete(e.policies, id)
	e.logger.Info("policy removed", "policy_id", id)
	return nil
}

// TogglePolicy flips the enabled flag of a policy and returns the new state.
func (e *Engine) TogglePolicy(id string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	policy, exists := e.policies[id]
	if !exists {
		return false, fmt.Errorf("%w: %q", ErrPolicyNotFound, id)
	}

	policy.Enabled = !policy.Enabled
	e.logger.Info("policy toggled", "policy_id", id, "enabled", policy.Enabled)
	return policy.Enabled, nil
}

// SetThresholds bulk-replaces the threshold values of the three default
// policies. It is invoked with the output of a feedback-engine retune; the
// feedback engine never mutates guardrails state directly.
//
// Default policies that have been removed are skipped.
func (e *Engine) SetThresholds(ts governance.ThresholdSet) error {
	for _, v := range []float64{ts.Critical, ts.High, ts.Medium} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%w: %.2f", ErrInvalidThreshold, v)
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for id, threshold := range map[string]float64{
		PolicyCriticalBlock: ts.Critical,
		PolicyHighFallback:  ts.High,
		PolicyMediumRewrite: ts.Medium,
	} {
		if policy, exists := e.policies[id]; exists {
			policy.RiskThreshold = threshold
		}
	}

	e.logger.Info("thresholds updated",
		"critical", ts.Critical,
		"high", ts.High,
		"medium", ts.Medium,
	)
	return nil
}

// ReplacePolicies swaps the entire policy set, used by the file source on
// reload. Validation happens before any mutation so an invalid set leaves
// the previous one intact.
func (e *Engine) ReplacePolicies(policies []*governance.Policy) error {
	next := make(map[string]*governance.Policy, len(policies))
	for _, policy := range policies {
		if policy.ID == "" {
			return fmt.Errorf("%w: empty id", ErrPolicyNotFound)
		}
		if policy.RiskThreshold < 0 || policy.RiskThreshold > 1 {
			return fmt.Errorf("%w: policy %q has %.2f", ErrInvalidThreshold, policy.ID, policy.RiskThreshold)
		}
		if !policy.Action.Valid() {
			return fmt.Errorf("%w: policy %q has %q", ErrInvalidAction, policy.ID, policy.Action)
		}
		if _, dup := next[policy.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicatePolicy, policy.ID)
		}
		p := *policy
		next[policy.ID] = &p
	}

	e.mu.Lock()
	e.policies = next
	e.mu.Unlock()

	e.logger.Info("policy set replaced", "count", len(next))
	return nil
}

// Policies returns a snapshot of the policy set sorted by descending
// threshold, the same order enforcement uses.
func (e *Engine) Policies() []*governance.Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make([]*governance.Policy, 0, len(e.policies))
	for _, policy := range e.policies {
		p := *policy
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RiskThreshold != out[j].RiskThreshold {
			return out[i].RiskThreshold > out[j].RiskThreshold
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Thresholds returns the current thresholds of the three default policies.
// Missing default policies report zero.
func (e *Engine) Thresholds() governance.ThresholdSet {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var ts governance.ThresholdSet
	if p, ok := e.policies[PolicyCriticalBlock]; ok {
		ts.Critical = p.RiskThreshold
	}
	if p, ok := e.policies[PolicyHighFallback]; ok {
		ts.High = p.RiskThreshold
	}
	if p, ok := e.policies[PolicyMediumRewrite]; ok {
		ts.Medium = p.RiskThreshold
	}
	return ts
}

// Stats returns aggregate statistics over the enforcement history.
func (e *Engine) Stats() *Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := &Stats{
		Total:    len(e.history),
		ByAction: make(map[governance.PolicyAction]int),
	}
	for _, d := range e.history {
		s.ByAction[d.Action]++
	}
	return s
}
