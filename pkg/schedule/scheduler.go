// Package schedule runs recurring governance maintenance jobs on cron
// schedules: feedback drift checks and threshold retuning.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"mercator-hq/themis/pkg/feedback"
	"mercator-hq/themis/pkg/governance"
	"mercator-hq/themis/pkg/pipeline"
)

// Config holds the cron expressions for the maintenance jobs. An empty
// expression disables that job.
type Config struct {
	// DriftCheckSchedule runs the feedback drift check.
	// Example: "*/30 * * * *" for every 30 minutes.
	DriftCheckSchedule string

	// RetuneSchedule recomputes and commits guardrail thresholds.
	// Example: "0 3 * * *" for daily at 3 AM.
	RetuneSchedule string
}

// Scheduler runs pipeline maintenance jobs on cron schedules.
type Scheduler struct {
	pipeline *pipeline.Pipeline
	config   Config
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler over the given pipeline.
func NewScheduler(p *pipeline.Pipeline, cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		pipeline: p,
		config:   cfg,
		cron:     cron.New(),
		logger:   logger.With("component", "schedule"),
	}
}

// Start registers the configured jobs and starts the cron runner. Jobs with
// an empty schedule are skipped. The scheduler stops itself when the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if s.config.DriftCheckSchedule == "" && s.config.RetuneSchedule == "" {
		s.logger.Info("no maintenance schedules configured, skipping scheduler")
		return nil
	}

	if s.config.DriftCheckSchedule != "" {
		if _, err := cron.ParseStandard(s.config.DriftCheckSchedule); err != nil {
			return fmt.Errorf("invalid drift check schedule %q: %w", s.config.DriftCheckSchedule, err)
		}
		if _, err := s.cron.AddFunc(s.config.DriftCheckSchedule, s.runDriftCheck); err != nil {
			return fmt.Errorf("failed to schedule drift check: %w", err)
		}
	}

	if s.config.RetuneSchedule != "" {
		if _, err := cron.ParseStandard(s.config.RetuneSchedule); err != nil {
			return fmt.Errorf("invalid retune schedule %q: %w", s.config.RetuneSchedule, err)
		}
		if _, err := s.cron.AddFunc(s.config.RetuneSchedule, s.runRetune); err != nil {
			return fmt.Errorf("failed to schedule retune: %w", err)
		}
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("maintenance scheduler started",
		"drift_check_schedule", s.config.DriftCheckSchedule,
		"retune_schedule", s.config.RetuneSchedule,
	)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Scheduler) runDriftCheck() {
	report := s.pipeline.CheckDrift()

	switch report.Status {
	case feedback.DriftDetected:
		drifted := 0
		for _, m := range report.Metrics {
			if m.Drift {
				drifted++
			}
		}
		s.logger.Warn("scheduled drift check detected drift",
			"drifted_metrics", drifted,
		)
	case feedback.DriftInsufficientData:
		s.logger.Debug("scheduled drift check skipped, insufficient data")
	default:
		s.logger.Debug("scheduled drift check completed, metrics stable")
	}
}

func (s *Scheduler) runRetune() {
	before := s.pipeline.Feedback().Thresholds()

	next, err := s.pipeline.Retune()
	if err != nil {
		s.logger.Error("scheduled retune failed", "error", err)
		return
	}

	if next == before {
		s.logger.Debug("scheduled retune completed, thresholds unchanged")
		return
	}

	s.logger.Info("scheduled retune adjusted thresholds",
		"critical", next.Critical,
		"high", next.High,
		"medium", next.Medium,
	)
}

// Thresholds returns the currently committed threshold set. Exposed for
// operator reporting alongside scheduler status.
func (s *Scheduler) Thresholds() governance.ThresholdSet {
	return s.pipeline.Feedback().Thresholds()
}

// Stop stops the cron runner and waits for running jobs to finish. Safe to
// call when the scheduler never started.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("maintenance scheduler stopped")
	}
}

// IsRunning reports whether the cron runner is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
