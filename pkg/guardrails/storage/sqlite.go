package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"mercator-hq/themis/pkg/governance"
)

// Store persists policies and threshold snapshots in SQLite. It is safe
// for concurrent use; writes are serialized by a mutex because SQLite
// supports a single writer.
type Store struct {
	db        *sql.DB
	mu        sync.RWMutex
	closeOnce sync.Once

	savePolicyStmt   *sql.Stmt
	deletePolicyStmt *sql.Stmt
	listPoliciesStmt *sql.Stmt
}

// Config configures the policy store.
type Config struct {
	// Path is the SQLite database file path.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds.
	BusyTimeout time.Duration
}

const schema = `
CREATE TABLE IF NOT EXISTS policies (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	risk_threshold REAL NOT NULL,
	action         TEXT NOT NULL,
	enabled        INTEGER NOT NULL,
	updated_at     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS thresholds (
	id        INTEGER PRIMARY KEY CHECK (id = 1),
	critical  REAL NOT NULL,
	high      REAL NOT NULL,
	medium    REAL NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Open opens or creates the policy database and initializes its schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy store: %w", err)
	}

	// Single writer keeps SQLite lock contention out of the hot path.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize policy store schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) prepareStatements() error {
	var err error

	s.savePolicyStmt, err = s.db.Prepare(`
		INSERT INTO policies (id, name, risk_threshold, action, enabled, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			risk_threshold = excluded.risk_threshold,
			action = excluded.action,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare save statement: %w", err)
	}

	s.deletePolicyStmt, err = s.db.Prepare(`DELETE FROM policies WHERE id = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete statement: %w", err)
	}

	s.listPoliciesStmt, err = s.db.Prepare(`
		SELECT id, name, risk_threshold, action, enabled
		FROM policies
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare list statement: %w", err)
	}

	return nil
}

// SavePolicy upserts one policy.
func (s *Store) SavePolicy(ctx context.Context, policy *governance.Policy) error {
	if policy == nil {
		return fmt.Errorf("policy cannot be nil")
	}
	if policy.ID == "" {
		return fmt.Errorf("policy id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.savePolicyStmt.ExecContext(ctx,
		policy.ID,
		policy.Name,
		policy.RiskThreshold,
		string(policy.Action),
		boolToInt(policy.Enabled),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save policy %q: %w", policy.ID, err)
	}
	return nil
}

// DeletePolicy removes one policy. Deleting an unknown id is not an error.
func (s *Store) DeletePolicy(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("policy id cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.deletePolicyStmt.ExecContext(ctx, id); err != nil {
		return fmt.Errorf("failed to delete policy %q: %w", id, err)
	}
	return nil
}

// SaveAll replaces the stored policy set with the given one in a single
// transaction.
func (s *Store) SaveAll(ctx context.Context, policies []*governance.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM policies`); err != nil {
		return fmt.Errorf("failed to clear policies: %w", err)
	}

	now := time.Now().Unix()
	for _, p := range policies {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO policies (id, name, risk_threshold, action, enabled, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.RiskThreshold, string(p.Action), boolToInt(p.Enabled), now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert policy %q: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit policy set: %w", err)
	}
	return nil
}

// LoadPolicies returns all stored policies ordered by id. An empty store
// returns an empty slice and no error.
func (s *Store) LoadPolicies(ctx context.Context) ([]*governance.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.listPoliciesStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load policies: %w", err)
	}
	defer rows.Close()

	var policies []*governance.Policy
	for rows.Next() {
		var (
			p       governance.Policy
			action  string
			enabled int
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.RiskThreshold, &action, &enabled); err != nil {
			return nil, fmt.Errorf("failed to scan policy row: %w", err)
		}
		p.Action = governance.PolicyAction(action)
		p.Enabled = enabled != 0
		policies = append(policies, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate policy rows: %w", err)
	}

	return policies, nil
}

// SaveThresholds stores the current threshold snapshot, replacing any
// previous one.
func (s *Store) SaveThresholds(ctx context.Context, ts governance.ThresholdSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO thresholds (id, critical, high, medium, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			critical = excluded.critical,
			high = excluded.high,
			medium = excluded.medium,
			updated_at = excluded.updated_at`,
		ts.Critical, ts.High, ts.Medium, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save thresholds: %w", err)
	}
	return nil
}

// LoadThresholds returns the stored threshold snapshot. The second return
// is false when no snapshot has been saved yet.
func (s *Store) LoadThresholds(ctx context.Context) (governance.ThresholdSet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ts governance.ThresholdSet
	row := s.db.QueryRowContext(ctx, `SELECT critical, high, medium FROM thresholds WHERE id = 1`)
	if err := row.Scan(&ts.Critical, &ts.High, &ts.Medium); err != nil {
		if err == sql.ErrNoRows {
			return governance.ThresholdSet{}, false, nil
		}
		return governance.ThresholdSet{}, false, fmt.Errorf("failed to load thresholds: %w", err)
	}
	return ts, true, nil
}

// Close closes the database. Safe to call more than once.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{s.savePolicyStmt, s.deletePolicyStmt, s.listPoliciesStmt} {
			if stmt != nil {
				stmt.Close()
			}
		}
		err = s.db.Close()
	})
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
