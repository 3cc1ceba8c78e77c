package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"mercator-hq/themis/pkg/governance"
)

// stubStorage is an in-package Storage double so recorder tests do not
// depend on the storage package.
type stubStorage struct {
	mu      sync.Mutex
	records []*Record
	fail    bool
	closed  bool
}

func (s *stubStorage) Store(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("storage unavailable")
	}
	s.records = append(s.records, record)
	return nil
}

func (s *stubStorage) Query(ctx context.Context, query *Query) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if query != nil && query.TraceID != "" {
		var out []*Record
		for _, r := range s.records {
			if r.TraceID == query.TraceID {
				out = append(out, r)
			}
		}
		return out, nil
	}
	return append([]*Record(nil), s.records...), nil
}

func (s *stubStorage) Summarize(ctx context.Context) (*Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Summary{TotalRecords: len(s.records)}, nil
}

func (s *stubStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// gatedStorage blocks every Store call until its gate is closed, which
// lets tests hold the recorder worker mid-write.
type gatedStorage struct {
	inner   *stubStorage
	gate    chan struct{}
	started chan struct{}
}

func (g *gatedStorage) Store(ctx context.Context, record *Record) error {
	g.started <- struct{}{}
	<-g.gate
	return g.inner.Store(ctx, record)
}

func (g *gatedStorage) Query(ctx context.Context, query *Query) ([]*Record, error) {
	return g.inner.Query(ctx, query)
}

func (g *gatedStorage) Summarize(ctx context.Context) (*Summary, error) {
	return g.inner.Summarize(ctx)
}

func (g *gatedStorage) Close() error { return g.inner.Close() }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testExchange(traceID string) *governance.Exchange {
	return &governance.Exchange{
		TraceID:  traceID,
		UserID:   "user-a",
		Prompt:   "prompt",
		Response: "response",
		Model:    "test-model",
	}
}

func TestRecorder_AppendAndFlush(t *testing.T) {
	storage := &stubStorage{}
	recorder := NewRecorder(storage, nil, testLogger())

	recorder.Append(testExchange("t-1"),
		&governance.RiskAssessment{TraceID: "t-1", RiskScore: 0.4},
		&governance.PolicyDecision{TraceID: "t-1", Action: governance.ActionAllow},
	)
	recorder.Append(testExchange("t-2"), nil, nil)

	if err := recorder.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	storage.mu.Lock()
	defer storage.mu.Unlock()
	if len(storage.records) != 2 {
		t.Fatalf("Expected 2 records after flush, got %d", len(storage.records))
	}

	traces := []string{storage.records[0].TraceID, storage.records[1].TraceID}
	sort.Strings(traces)
	if traces[0] != "t-1" || traces[1] != "t-2" {
		t.Errorf("Expected traces t-1 and t-2, got %v", traces)
	}

	first := storage.records[0]
	if first.ID == "" {
		t.Error("Expected generated record ID")
	}
	if first.EventType != "llm_interaction" {
		t.Errorf("Expected event type llm_interaction, got %s", first.EventType)
	}
	if first.Timestamp.IsZero() {
		t.Error("Expected a timestamp on the record")
	}
	if !storage.closed {
		t.Error("Expected storage to be closed")
	}
}

func TestRecorder_BufferFullDropsRecord(t *testing.T) {
	storage := &stubStorage{}
	gate := make(chan struct{})
	blocking := &gatedStorage{inner: storage, gate: gate, started: make(chan struct{}, 8)}

	config := &Config{AsyncBuffer: 1, WriteTimeout: DefaultConfig().WriteTimeout}
	recorder := NewRecorder(blocking, config, testLogger())

	// First record occupies the worker, which blocks inside Store.
	recorder.Append(testExchange("t-0"), nil, nil)
	<-blocking.started

	// Second record fills the one-slot buffer, third must be dropped
	// without blocking the caller.
	recorder.Append(testExchange("t-1"), nil, nil)
	recorder.Append(testExchange("t-2"), nil, nil)

	close(gate)
	if err := recorder.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	storage.mu.Lock()
	defer storage.mu.Unlock()
	if len(storage.records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(storage.records))
	}
	for _, r := range storage.records {
		if r.TraceID == "t-2" {
			t.Error("Expected t-2 to be dropped on full buffer")
		}
	}
}

func TestRecorder_StorageFailureDoesNotPanic(t *testing.T) {
	storage := &stubStorage{fail: true}
	recorder := NewRecorder(storage, nil, testLogger())

	recorder.Append(testExchange("t-1"), nil, nil)

	if err := recorder.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	storage.mu.Lock()
	defer storage.mu.Unlock()
	if len(storage.records) != 0 {
		t.Errorf("Expected no records stored, got %d", len(storage.records))
	}
}

func TestRecorder_Query(t *testing.T) {
	storage := &stubStorage{}
	recorder := NewRecorder(storage, nil, testLogger())

	recorder.Append(testExchange("t-1"), nil, nil)
	recorder.Append(testExchange("t-2"), nil, nil)
	if err := recorder.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	records, err := recorder.Query(context.Background(), &Query{TraceID: "t-1"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(records) != 1 || records[0].TraceID != "t-1" {
		t.Errorf("Expected single record t-1, got %v", records)
	}

	summary, err := recorder.Summarize(context.Background())
	if err != nil {
		t.Fatalf("summarize failed: %v", err)
	}
	if summary.TotalRecords != 2 {
		t.Errorf("Expected 2 total records, got %d", summary.TotalRecords)
	}
}
