package storage

import (
	"context"
	"sort"
	"sync"

	"mercator-hq/themis/pkg/audit"
	"mercator-hq/themis/pkg/governance"
)

// MemoryStorage implements audit.Storage with an in-memory slice. It is
// intended for tests and single-process development deployments.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*audit.Record
}

// NewMemoryStorage creates an in-memory audit storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store persists an audit record in memory.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recordCopy := *record
	s.records = append(s.records, &recordCopy)
	return nil
}

// Query retrieves records matching the query filters, ordered by timestamp
// ascending.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*audit.Record
	for _, record := range s.records {
		if matches(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.Before(results[j].Timestamp)
	})

	return paginate(results, query.Offset, query.Limit), nil
}

// Summarize aggregates the stored history.
func (s *MemoryStorage) Summarize(ctx context.Context) (*audit.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &audit.Summary{TotalRecords: len(s.records)}

	users := make(map[string]struct{})
	for _, record := range s.records {
		if record.UserID != "" {
			users[record.UserID] = struct{}{}
		}
		if record.Assessment != nil {
			summary.RiskEvents++
		}
		if record.Decision != nil && record.Decision.Action != governance.ActionAllow {
			summary.PolicyEnforcements++
		}
	}
	summary.UniqueUsers = len(users)

	return summary, nil
}

// Close is a no-op for memory storage.
func (s *MemoryStorage) Close() error {
	return nil
}

func matches(record *audit.Record, query *audit.Query) bool {
	if query == nil {
		return true
	}
	if query.TraceID != "" && record.TraceID != query.TraceID {
		return false
	}
	if query.UserID != "" && record.UserID != query.UserID {
		return false
	}
	if query.StartTime != nil && record.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.Timestamp.After(*query.EndTime) {
		return false
	}
	return true
}

func paginate(records []*audit.Record, offset, limit int) []*audit.Record {
	if offset >= len(records) {
		return []*audit.Record{}
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
