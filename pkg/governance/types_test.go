package governance

import (
	"testing"
	"time"
)

func TestCategorizeScore_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  RiskCategory
	}{
		{0.0, CategorySafe},
		{0.01, CategoryLow},
		{0.29, CategoryLow},
		{0.3, CategoryMedium},
		{0.49, CategoryMedium},
		{0.5, CategoryHigh},
		{0.69, CategoryHigh},
		{0.7, CategoryCritical},
		{1.0, CategoryCritical},
	}

	for _, tc := range cases {
		if got := CategorizeScore(tc.score); got != tc.want {
			t.Errorf("CategorizeScore(%.2f) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestPolicyAction_Valid(t *testing.T) {
	for _, a := range []PolicyAction{ActionAllow, ActionBlock, ActionFallback, ActionRewrite} {
		if !a.Valid() {
			t.Errorf("Expected %s to be valid", a)
		}
	}
	if PolicyAction("escalate").Valid() {
		t.Error("Expected unknown action to be invalid")
	}
	if PolicyAction("").Valid() {
		t.Error("Expected empty action to be invalid")
	}
}

func TestFeedbackType_Valid(t *testing.T) {
	for _, f := range []FeedbackType{FeedbackPositive, FeedbackNeutral, FeedbackNegative} {
		if !f.Valid() {
			t.Errorf("Expected %s to be valid", f)
		}
	}
	if FeedbackType("mixed").Valid() {
		t.Error("Expected unknown feedback type to be invalid")
	}
}

func TestExchange_Validate(t *testing.T) {
	valid := Exchange{
		TraceID:   "t-1",
		Prompt:    "hello",
		Response:  "hi",
		Model:     "m",
		Timestamp: time.Now(),
	}
	if err := valid.Validate(); err != nil {
		t.Errorf("Expected valid exchange, got %v", err)
	}

	missing := valid
	missing.TraceID = ""
	if err := missing.Validate(); err == nil {
		t.Error("Expected error for missing trace id")
	}

	missing = valid
	missing.Prompt = ""
	if err := missing.Validate(); err == nil {
		t.Error("Expected error for missing prompt")
	}
}
