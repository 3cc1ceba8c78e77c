package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"mercator-hq/themis/pkg/audit"
	"mercator-hq/themis/pkg/governance"
)

// SQLiteConfig contains configuration for the SQLite audit storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		BusyTimeout:  5 * time.Second,
	}
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id          TEXT PRIMARY KEY,
	trace_id    TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	user_id     TEXT,
	prompt      TEXT NOT NULL,
	response    TEXT NOT NULL,
	model       TEXT NOT NULL,
	assessment  TEXT,
	decision    TEXT,
	timestamp   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_trace_id ON audit_records(trace_id);
CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_records(user_id);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_records(timestamp);
`

// SQLiteStorage implements audit.Storage using SQLite with WAL mode for
// concurrent readers alongside the single async writer.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens (or creates) the audit database and initializes
// the schema.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=%d",
		config.Path, config.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database %q: %w", config.Path, err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	return &SQLiteStorage{
		db:     db,
		config: config,
		logger: slog.Default().With("component", "audit.sqlite"),
	}, nil
}

// Store persists one audit record. The assessment and decision are stored
// as JSON columns so the flat record remains queryable by trace id and
// timestamp.
func (s *SQLiteStorage) Store(ctx context.Context, record *audit.Record) error {
	assessment, err := marshalNullable(record.Assessment)
	if err != nil {
		return fmt.Errorf("failed to encode assessment: %w", err)
	}
	decision, err := marshalNullable(record.Decision)
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_records
		 (id, trace_id, event_type, user_id, prompt, response, model, assessment, decision, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.TraceID, record.EventType, record.UserID,
		record.Prompt, record.Response, record.Model,
		assessment, decision, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to store audit record %s: %w", record.ID, err)
	}
	return nil
}

// Query retrieves records matching the query filters, ordered by timestamp
// ascending.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if query == nil {
		query = &audit.Query{}
	}

	sqlQuery := `SELECT id, trace_id, event_type, user_id, prompt, response, model, assessment, decision, timestamp
		FROM audit_records WHERE 1=1`
	var args []any

	if query.TraceID != "" {
		sqlQuery += " AND trace_id = ?"
		args = append(args, query.TraceID)
	}
	if query.UserID != "" {
		sqlQuery += " AND user_id = ?"
		args = append(args, query.UserID)
	}
	if query.StartTime != nil {
		sqlQuery += " AND timestamp >= ?"
		args = append(args, *query.StartTime)
	}
	if query.EndTime != nil {
		sqlQuery += " AND timestamp <= ?"
		args = append(args, *query.EndTime)
	}

	sqlQuery += " ORDER BY timestamp ASC"
	if query.Limit > 0 {
		sqlQuery += " LIMIT ?"
		args = append(args, query.Limit)
	}
	if query.Offset > 0 {
		if query.Limit <= 0 {
			sqlQuery += " LIMIT -1"
		}
		sqlQuery += " OFFSET ?"
		args = append(args, query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("audit query failed: %w", err)
	}
	defer rows.Close()

	var results []*audit.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, record)
	}
	return results, rows.Err()
}

// Summarize aggregates the stored history.
func (s *SQLiteStorage) Summarize(ctx context.Context) (*audit.Summary, error) {
	summary := &audit.Summary{}

	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT CASE WHEN user_id != '' THEN user_id END),
		       COUNT(assessment),
		       COUNT(CASE WHEN decision IS NOT NULL
		                   AND json_extract(decision, '$.action') != ? THEN 1 END)
		FROM audit_records`,
		string(governance.ActionAllow),
	)
	if err := row.Scan(&summary.TotalRecords, &summary.UniqueUsers,
		&summary.RiskEvents, &summary.PolicyEnforcements); err != nil {
		return nil, fmt.Errorf("audit summary failed: %w", err)
	}

	return summary, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func marshalNullable(v any) (sql.NullString, error) {
	switch t := v.(type) {
	case *governance.RiskAssessment:
		if t == nil {
			return sql.NullString{}, nil
		}
	case *governance.PolicyDecision:
		if t == nil {
			return sql.NullString{}, nil
		}
	}

	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func scanRecord(rows *sql.Rows) (*audit.Record, error) {
	var (
		record               audit.Record
		userID               sql.NullString
		assessment, decision sql.NullString
	)

	if err := rows.Scan(&record.ID, &record.TraceID, &record.EventType, &userID,
		&record.Prompt, &record.Response, &record.Model,
		&assessment, &decision, &record.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to scan audit record: %w", err)
	}

	record.UserID = userID.String

	if assessment.Valid {
		record.Assessment = &governance.RiskAssessment{}
		if err := json.Unmarshal([]byte(assessment.String), record.Assessment); err != nil {
			return nil, fmt.Errorf("failed to decode assessment for %s: %w", record.ID, err)
		}
	}
	if decision.Valid {
		record.Decision = &governance.PolicyDecision{}
		if err := json.Unmarshal([]byte(decision.String), record.Decision); err != nil {
			return nil, fmt.Errorf("failed to decode decision for %s: %w", record.ID, err)
		}
	}

	return &record, nil
}
