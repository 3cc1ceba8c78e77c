package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/themis/pkg/governance"
)

// Config contains configuration for the audit recorder.
type Config struct {
	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns the default recorder configuration.
func DefaultConfig() *Config {
	return &Config{
		AsyncBuffer:  1000,
		WriteTimeout: 5 * time.Second,
	}
}

// Recorder writes audit records asynchronously so the request path never
// blocks on storage. Records are enqueued on a buffered channel and drained
// by a background worker; a full buffer drops the record and logs an
// operational fault rather than stalling the pipeline.
type Recorder struct {
	storage Storage
	config  *Config
	records chan *Record
	done    chan struct{}
	wg      sync.WaitGroup
	logger  *slog.Logger
}

// NewRecorder creates an audit recorder over the given storage backend and
// starts its background worker.
func NewRecorder(storage Storage, config *Config, logger *slog.Logger) *Recorder {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	r := &Recorder{
		storage: storage,
		config:  config,
		records: make(chan *Record, config.AsyncBuffer),
		done:    make(chan struct{}),
		logger:  logger.With("component", "audit.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	return r
}

// Append creates and enqueues an audit record for a governed exchange.
// It returns immediately; the write happens on the background worker. An
// audit write failure never reverses a decision already returned to the
// caller.
func (r *Recorder) Append(ex *governance.Exchange, assessment *governance.RiskAssessment, decision *governance.PolicyDecision) {
	record := &Record{
		ID:         uuid.NewString(),
		TraceID:    ex.TraceID,
		EventType:  "llm_interaction",
		UserID:     ex.UserID,
		Prompt:     ex.Prompt,
		Response:   ex.Response,
		Model:      ex.Model,
		Assessment: assessment,
		Decision:   decision,
		Timestamp:  time.Now().UTC(),
	}

	select {
	case r.records <- record:
	default:
		r.logger.Error("audit buffer full, record dropped",
			"trace_id", record.TraceID,
			"buffer_size", r.config.AsyncBuffer,
		)
	}
}

// worker drains the record channel into storage until Close.
func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case record := <-r.records:
			r.write(record)
		case <-r.done:
			// Drain remaining records before exiting.
			for {
				select {
				case record := <-r.records:
					r.write(record)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(record *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteTimeout)
	defer cancel()

	if err := r.storage.Store(ctx, record); err != nil {
		r.logger.Error("audit write failed",
			"trace_id", record.TraceID,
			"error", err,
		)
	}
}

// Query retrieves audit records matching the filters.
func (r *Recorder) Query(ctx context.Context, query *Query) ([]*Record, error) {
	return r.storage.Query(ctx, query)
}

// Summarize aggregates the audit history.
func (r *Recorder) Summarize(ctx context.Context) (*Summary, error) {
	return r.storage.Summarize(ctx)
}

// Close stops the worker, flushes buffered records, and closes storage.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return r.storage.Close()
}
