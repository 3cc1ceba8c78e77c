package guardrails

import (
	"errors"
	"testing"
	"time"

	"mercator-hq/themis/pkg/governance"
)

func testExchange(response string) *governance.Exchange {
	return &governance.Exchange{
		TraceID:   "trace-1",
		Prompt:    "prompt",
		Response:  response,
		Model:     "test-model",
		Timestamp: time.Now(),
	}
}

func testAssessment(score float64) *governance.RiskAssessment {
	return &governance.RiskAssessment{
		TraceID:      "trace-1",
		RiskScore:    score,
		RiskCategory: governance.CategorizeScore(score),
		Confidence:   0.5,
		Timestamp:    time.Now(),
	}
}

func TestEnforce_DefaultAllow(t *testing.T) {
	e := NewEngine(nil)
	d := e.Enforce(testExchange("fine"), testAssessment(0.1))

	if d.Action != governance.ActionAllow {
		t.Errorf("Expected allow, got %s", d.Action)
	}
	if d.PolicyID != governance.DefaultAllowPolicyID {
		t.Errorf("Expected default-allow sentinel, got %s", d.PolicyID)
	}
	if d.Reason != "no policy violations detected" {
		t.Errorf("Unexpected reason %q", d.Reason)
	}
	if d.ModifiedResponse != "" {
		t.Errorf("Allow decision should carry no replacement, got %q", d.ModifiedResponse)
	}
}

func TestEnforce_CriticalBlocks(t *testing.T) {
	e := NewEngine(nil)

	// 0.75 exceeds both the block (0.7) and fallback (0.6) thresholds;
	// the higher threshold must win.
	d := e.Enforce(testExchange("dangerous"), testAssessment(0.75))

	if d.Action != governance.ActionBlock {
		t.Errorf("Expected block, got %s", d.Action)
	}
	if d.PolicyID != PolicyCriticalBlock {
		t.Errorf("Expected %s, got %s", PolicyCriticalBlock, d.PolicyID)
	}
	if d.ModifiedResponse != blockedNotice {
		t.Errorf("Expected blocked notice, got %q", d.ModifiedResponse)
	}
}

func TestEnforce_DisabledPolicyFallsThrough(t *testing.T) {
	e := NewEngine(nil)
	if _, err := e.TogglePolicy(PolicyCriticalBlock); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}

	// With the block policy disabled, 0.75 falls through to fallback.
	d := e.Enforce(testExchange("dangerous"), testAssessment(0.75))

	if d.Action != governance.ActionFallback {
		t.Errorf("Expected fallback, got %s", d.Action)
	}
	if d.PolicyID != PolicyHighFallback {
		t.Errorf("Expected %s, got %s", PolicyHighFallback, d.PolicyID)
	}
	if d.ModifiedResponse != fallbackNotice {
		t.Errorf("Expected fallback notice, got %q", d.ModifiedResponse)
	}
}

func TestEnforce_ExactThresholdFires(t *testing.T) {
	e := NewEngine(nil)
	d := e.Enforce(testExchange("x"), testAssessment(0.7))

	if d.Action != governance.ActionBlock {
		t.Errorf("Score equal to threshold should fire, got %s", d.Action)
	}
}

func TestEnforce_RewritePassesResponseThrough(t *testing.T) {
	e := NewEngine(nil)
	d := e.Enforce(testExchange("original text"), testAssessment(0.4))

	if d.Action != governance.ActionRewrite {
		t.Errorf("Expected rewrite, got %s", d.Action)
	}
	if d.ModifiedResponse != "original text" {
		t.Errorf("Rewrite should pass the response through, got %q", d.ModifiedResponse)
	}
}

func TestEnforce_ThresholdTieBreaksByID(t *testing.T) {
	e := NewEngine(nil)
	if err := e.AddPolicy(&governance.Policy{
		ID:            "aaa_block_all",
		Name:          "Tie",
		RiskThreshold: 0.7,
		Action:        governance.ActionFallback,
		Enabled:       true,
	}); err != nil {
		t.Fatalf("add failed: %v", err)
	}

	// Equal thresholds order by id; "aaa_block_all" < "critical_risk_block".
	d := e.Enforce(testExchange("x"), testAssessment(0.9))
	if d.PolicyID != "aaa_block_all" {
		t.Errorf("Expected deterministic tie-break, got %s", d.PolicyID)
	}
}

func TestAddPolicy_Validation(t *testing.T) {
	e := NewEngine(nil)

	err := e.AddPolicy(&governance.Policy{ID: "p1", RiskThreshold: 1.5, Action: governance.ActionBlock})
	if !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("Expected ErrInvalidThreshold, got %v", err)
	}

	err = e.AddPolicy(&governance.Policy{ID: "p1", RiskThreshold: 0.5, Action: "escalate"})
	if !errors.Is(err, ErrInvalidAction) {
		t.Errorf("Expected ErrInvalidAction, got %v", err)
	}

	err = e.AddPolicy(&governance.Policy{ID: PolicyCriticalBlock, RiskThreshold: 0.5, Action: governance.ActionBlock})
	if !errors.Is(err, ErrDuplicatePolicy) {
		t.Errorf("Expected ErrDuplicatePolicy, got %v", err)
	}
}

func TestRemovePolicy(t *testing.T) {
	e := NewEngine(nil)

	if err := e.RemovePolicy(PolicyMediumRewrite); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if err := e.RemovePolicy(PolicyMediumRewrite); !errors.Is(err, ErrPolicyNotFound) {
		t.Errorf("Expected ErrPolicyNotFound, got %v", err)
	}

	// 0.4 no longer matches anything after the rewrite tier is gone.
	d := e.Enforce(testExchange("x"), testAssessment(0.4))
	if d.Action != governance.ActionAllow {
		t.Errorf("Expected allow after removing rewrite tier, got %s", d.Action)
	}
}

func TestTogglePolicy_ReturnsNewState(t *testing.T) {
	e := NewEngine(nil)

	enabled, err := e.TogglePolicy(PolicyHighFallback)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if enabled {
		t.Error("Expected disabled after first toggle")
	}

	enabled, err = e.TogglePolicy(PolicyHighFallback)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if !enabled {
		t.Error("Expected enabled after second toggle")
	}

	if _, err := e.TogglePolicy("missing"); !errors.Is(err, ErrPolicyNotFound) {
		t.Errorf("Expected ErrPolicyNotFound, got %v", err)
	}
}

func TestSetThresholds(t *testing.T) {
	e := NewEngine(nil)

	ts := governance.ThresholdSet{Critical: 0.8, High: 0.65, Medium: 0.35}
	if err := e.SetThresholds(ts); err != nil {
		t.Fatalf("set thresholds failed: %v", err)
	}

	if got := e.Thresholds(); got != ts {
		t.Errorf("Expected %+v, got %+v", ts, got)
	}

	// 0.75 no longer reaches the raised block threshold.
	d := e.Enforce(testExchange("x"), testAssessment(0.75))
	if d.Action != governance.ActionFallback {
		t.Errorf("Expected fallback after raising block threshold, got %s", d.Action)
	}
}

func TestSetThresholds_Invalid(t *testing.T) {
	e := NewEngine(nil)
	before := e.Thresholds()

	err := e.SetThresholds(governance.ThresholdSet{Critical: 1.2, High: 0.6, Medium: 0.3})
	if !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("Expected ErrInvalidThreshold, got %v", err)
	}
	if e.Thresholds() != before {
		t.Error("Failed update must not change thresholds")
	}
}

func TestReplacePolicies_InvalidKeepsPrevious(t *testing.T) {
	e := NewEngine(nil)
	before := len(e.Policies())

	err := e.ReplacePolicies([]*governance.Policy{
		{ID: "ok", RiskThreshold: 0.5, Action: governance.ActionBlock, Enabled: true},
		{ID: "bad", RiskThreshold: 2.0, Action: governance.ActionBlock, Enabled: true},
	})
	if !errors.Is(err, ErrInvalidThreshold) {
		t.Errorf("Expected ErrInvalidThreshold, got %v", err)
	}
	if len(e.Policies()) != before {
		t.Error("Invalid replacement must leave the previous set intact")
	}
}

func TestReplacePolicies_Swaps(t *testing.T) {
	e := NewEngine(nil)

	err := e.ReplacePolicies([]*governance.Policy{
		{ID: "only", Name: "Only", RiskThreshold: 0.2, Action: governance.ActionBlock, Enabled: true},
	})
	if err != nil {
		t.Fatalf("replace failed: %v", err)
	}

	policies := e.Policies()
	if len(policies) != 1 || policies[0].ID != "only" {
		t.Fatalf("Expected single policy 'only', got %v", policies)
	}

	d := e.Enforce(testExchange("x"), testAssessment(0.25))
	if d.Action != governance.ActionBlock || d.PolicyID != "only" {
		t.Errorf("Expected block by replacement policy, got %s/%s", d.Action, d.PolicyID)
	}
}

func TestPolicies_SortedByDescendingThreshold(t *testing.T) {
	e := NewEngine(nil)
	policies := e.Policies()

	if len(policies) != 3 {
		t.Fatalf("Expected 3 default policies, got %d", len(policies))
	}
	for i := 1; i < len(policies); i++ {
		if policies[i-1].RiskThreshold < policies[i].RiskThreshold {
			t.Errorf("Policies not sorted descending at %d", i)
		}
	}
	if policies[0].ID != PolicyCriticalBlock {
		t.Errorf("Expected %s first, got %s", PolicyCriticalBlock, policies[0].ID)
	}
}

func TestStats(t *testing.T) {
	e := NewEngine(nil)

	e.Enforce(testExchange("a"), testAssessment(0.0))
	e.Enforce(testExchange("b"), testAssessment(0.75))
	e.Enforce(testExchange("c"), testAssessment(0.4))

	stats := e.Stats()
	if stats.Total != 3 {
		t.Errorf("Expected 3 decisions, got %d", stats.Total)
	}
	if stats.ByAction[governance.ActionAllow] != 1 {
		t.Errorf("Expected 1 allow, got %d", stats.ByAction[governance.ActionAllow])
	}
	if stats.ByAction[governance.ActionBlock] != 1 {
		t.Errorf("Expected 1 block, got %d", stats.ByAction[governance.ActionBlock])
	}
	if stats.ByAction[governance.ActionRewrite] != 1 {
		t.Errorf("Expected 1 rewrite, got %d", stats.ByAction[governance.ActionRewrite])
	}
}
