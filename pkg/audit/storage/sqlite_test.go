package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"mercator-hq/themis/pkg/audit"
	"mercator-hq/themis/pkg/governance"
)

func newTestSQLiteStorage(t *testing.T) *SQLiteStorage {
	t.Helper()

	config := DefaultSQLiteConfig()
	config.Path = filepath.Join(t.TempDir(), "audit.db")

	s, err := NewSQLiteStorage(config)
	if err != nil {
		t.Fatalf("failed to open sqlite storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStorage_Roundtrip(t *testing.T) {
	s := newTestSQLiteStorage(t)
	ctx := context.Background()

	record := testRecord("t-1", "user-a", time.Now().UTC().Truncate(time.Second))
	record.Assessment = &governance.RiskAssessment{
		TraceID:   "t-1",
		RiskScore: 0.72,
		RiskCategory: governance.CategoryCritical,
	}
	record.Decision = &governance.PolicyDecision{
		TraceID:  "t-1",
		PolicyID: "critical_risk_block",
		Action:   governance.ActionBlock,
	}

	if err := s.Store(ctx, record); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	records, err := s.Query(ctx, &audit.Query{TraceID: "t-1"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}

	got := records[0]
	if got.UserID != "user-a" || got.Prompt != "prompt" || got.Model != "test-model" {
		t.Errorf("Record fields did not survive roundtrip: %+v", got)
	}
	if got.Assessment == nil || got.Assessment.RiskScore != 0.72 {
		t.Errorf("Expected assessment with score 0.72, got %+v", got.Assessment)
	}
	if got.Decision == nil || got.Decision.Action != governance.ActionBlock {
		t.Errorf("Expected block decision, got %+v", got.Decision)
	}
}

func TestSQLiteStorage_NullableColumns(t *testing.T) {
	s := newTestSQLiteStorage(t)
	ctx := context.Background()

	if err := s.Store(ctx, testRecord("t-bare", "", time.Now())); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	records, err := s.Query(ctx, &audit.Query{TraceID: "t-bare"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if records[0].Assessment != nil || records[0].Decision != nil {
		t.Error("Expected nil assessment and decision for bare record")
	}
}

func TestSQLiteStorage_QueryFilters(t *testing.T) {
	s := newTestSQLiteStorage(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	users := []string{"user-a", "user-a", "user-b"}
	for i, u := range users {
		r := testRecord(fmt.Sprintf("t-%d", i), u, base.Add(time.Duration(i)*time.Hour))
		if err := s.Store(ctx, r); err != nil {
			t.Fatalf("store failed: %v", err)
		}
	}

	records, err := s.Query(ctx, &audit.Query{UserID: "user-a"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 records for user-a, got %d", len(records))
	}

	start := base.Add(30 * time.Minute)
	records, err = s.Query(ctx, &audit.Query{StartTime: &start})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 records after start time, got %d", len(records))
	}

	records, err = s.Query(ctx, &audit.Query{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].TraceID != "t-1" {
		t.Errorf("Expected paginated record t-1, got %v", records)
	}
}

func TestSQLiteStorage_Summarize(t *testing.T) {
	s := newTestSQLiteStorage(t)
	ctx := context.Background()
	now := time.Now()

	blocked := testRecord("t-1", "user-a", now)
	blocked.Assessment = &governance.RiskAssessment{TraceID: "t-1", RiskScore: 0.9}
	blocked.Decision = &governance.PolicyDecision{TraceID: "t-1", Action: governance.ActionBlock}
	s.Store(ctx, blocked)

	allowed := testRecord("t-2", "user-b", now)
	allowed.Decision = &governance.PolicyDecision{TraceID: "t-2", Action: governance.ActionAllow}
	s.Store(ctx, allowed)

	s.Store(ctx, testRecord("t-3", "user-a", now))

	summary, err := s.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary.TotalRecords != 3 {
		t.Errorf("Expected 3 records, got %d", summary.TotalRecords)
	}
	if summary.UniqueUsers != 2 {
		t.Errorf("Expected 2 unique users, got %d", summary.UniqueUsers)
	}
	if summary.RiskEvents != 1 {
		t.Errorf("Expected 1 risk event, got %d", summary.RiskEvents)
	}
	if summary.PolicyEnforcements != 1 {
		t.Errorf("Expected 1 enforcement, got %d", summary.PolicyEnforcements)
	}
}
