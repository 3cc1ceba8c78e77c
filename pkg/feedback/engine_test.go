package feedback

import (
	"fmt"
	"math"
	"testing"

	"mercator-hq/themis/pkg/governance"
)

var defaultThresholds = governance.ThresholdSet{Critical: 0.7, High: 0.6, Medium: 0.3}

func record(t *testing.T, e *Engine, traceID string, rating int, typ governance.FeedbackType) {
	t.Helper()
	if _, err := e.Record(traceID, rating, typ, ""); err != nil {
		t.Fatalf("record failed: %v", err)
	}
}

func TestRecord_Validation(t *testing.T) {
	e := NewEngine(defaultThresholds, nil)

	if _, err := e.Record("", 3, governance.FeedbackNeutral, ""); err == nil {
		t.Error("Expected error for empty trace id")
	}
	if _, err := e.Record("t", 0, governance.FeedbackNeutral, ""); err == nil {
		t.Error("Expected error for rating 0")
	}
	if _, err := e.Record("t", 6, governance.FeedbackNeutral, ""); err == nil {
		t.Error("Expected error for rating 6")
	}
	if _, err := e.Record("t", 3, "mixed", ""); err == nil {
		t.Error("Expected error for unknown feedback type")
	}
	if e.Metrics().Total != 0 {
		t.Error("Rejected feedback must not change state")
	}
}

func TestRecord_AppendsEntry(t *testing.T) {
	e := NewEngine(defaultThresholds, nil)

	entry, err := e.Record("t-1", 5, governance.FeedbackPositive, "great")
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if entry.TraceID != "t-1" || entry.Rating != 5 || entry.Comment != "great" {
		t.Errorf("Unexpected entry %+v", entry)
	}
	if entry.Timestamp.IsZero() {
		t.Error("Expected timestamp to be set")
	}
}

func TestMetrics(t *testing.T) {
	e := NewEngine(defaultThresholds, nil)

	record(t, e, "t-1", 5, governance.FeedbackPositive)
	record(t, e, "t-2", 1, governance.FeedbackNegative)
	record(t, e, "t-3", 3, governance.FeedbackNeutral)

	m := e.Metrics()
	if m.Total != 3 {
		t.Errorf("Expected 3 entries, got %d", m.Total)
	}
	if math.Abs(m.AvgRating-3.0) > 1e-9 {
		t.Errorf("Expected avg rating 3.0, got %.2f", m.AvgRating)
	}
	if math.Abs(m.PositiveRate-1.0/3) > 1e-9 {
		t.Errorf("Expected positive rate 1/3, got %.4f", m.PositiveRate)
	}
	if math.Abs(m.NegativeRate-1.0/3) > 1e-9 {
		t.Errorf("Expected negative rate 1/3, got %.4f", m.NegativeRate)
	}
}

func TestSummarize_RecentCappedAtTen(t *testing.T) {
	e := NewEngine(defaultThresholds, nil)
	for i := 0; i < 25; i++ {
		record(t, e, fmt.Sprintf("t-%d", i), 4, governance.FeedbackPositive)
	}

	s := e.Summarize()
	if s.Total != 25 {
		t.Errorf("Expected total 25, got %d", s.Total)
	}
	if len(s.Recent) != 10 {
		t.Fatalf("Expected 10 recent entries, got %d", len(s.Recent))
	}
	if s.Recent[9].TraceID != "t-24" {
		t.Errorf("Expected most recent entry last, got %s", s.Recent[9].TraceID)
	}
	if s.ByType[governance.FeedbackPositive] != 25 {
		t.Errorf("Expected 25 positive, got %d", s.ByType[governance.FeedbackPositive])
	}
}

func TestSummarize_Empty(t *testing.T) {
	e := NewEngine(defaultThresholds, nil)
	s := e.Summarize()

	if s.Total != 0 || len(s.Recent) != 0 {
		t.Errorf("Expected empty summary, got %+v", s)
	}
}
