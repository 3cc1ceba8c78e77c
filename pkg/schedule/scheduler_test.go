package schedule

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/themis/pkg/audit"
	auditstorage "mercator-hq/themis/pkg/audit/storage"
	"mercator-hq/themis/pkg/config"
	"mercator-hq/themis/pkg/costs"
	"mercator-hq/themis/pkg/feedback"
	"mercator-hq/themis/pkg/gateway"
	"mercator-hq/themis/pkg/guardrails"
	"mercator-hq/themis/pkg/pipeline"
	"mercator-hq/themis/pkg/providers"
	"mercator-hq/themis/pkg/risk"
	"mercator-hq/themis/pkg/telemetry/metrics"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(t *testing.T) *pipeline.Pipeline {
	t.Helper()

	logger := testLogger()
	calculator := costs.NewCalculator(config.CostsConfig{DefaultCostPer1KTokens: 0.01})
	gw := gateway.New(providers.NewMockProvider("mock"), calculator, "test-model", 100, logger)

	guardrailsEngine := guardrails.NewEngine(logger)
	feedbackEngine := feedback.NewEngine(guardrailsEngine.Thresholds(), logger)

	recorder := audit.NewRecorder(auditstorage.NewMemoryStorage(), nil, logger)
	t.Cleanup(func() { recorder.Close() })

	collector := metrics.NewCollector(
		config.MetricsConfig{Enabled: true, Namespace: "themis"},
		prometheus.NewRegistry(),
	)

	return pipeline.New(
		gw,
		risk.NewEngine(logger),
		guardrailsEngine,
		feedbackEngine,
		costs.NewMonitor(0.5, logger),
		recorder,
		collector,
		logger,
	)
}

func TestScheduler_StartAndStop(t *testing.T) {
	s := NewScheduler(newTestPipeline(t), Config{
		DriftCheckSchedule: "*/30 * * * *",
		RetuneSchedule:     "0 3 * * *",
	}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !s.IsRunning() {
		t.Error("Expected scheduler running after start")
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("Expected scheduler stopped")
	}
}

func TestScheduler_EmptySchedulesSkipStart(t *testing.T) {
	s := NewScheduler(newTestPipeline(t), Config{}, testLogger())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if s.IsRunning() {
		t.Error("Expected scheduler not running with no schedules")
	}
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"invalid drift schedule", Config{DriftCheckSchedule: "not a cron"}},
		{"invalid retune schedule", Config{RetuneSchedule: "99 99 * * *"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScheduler(newTestPipeline(t), tc.cfg, testLogger())
			if err := s.Start(context.Background()); err == nil {
				t.Error("Expected error for invalid schedule")
				s.Stop()
			}
		})
	}
}

func TestScheduler_DoubleStart(t *testing.T) {
	s := NewScheduler(newTestPipeline(t), Config{DriftCheckSchedule: "* * * * *"}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop()

	if err := s.Start(ctx); err == nil {
		t.Error("Expected error for second start")
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	s := NewScheduler(newTestPipeline(t), Config{DriftCheckSchedule: "* * * * *"}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	cancel()

	deadline := time.Now().Add(time.Second)
	for s.IsRunning() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.IsRunning() {
		t.Error("Expected scheduler stopped after context cancellation")
	}
}

func TestScheduler_StopWithoutStart(t *testing.T) {
	s := NewScheduler(newTestPipeline(t), Config{}, testLogger())
	s.Stop()
	if s.IsRunning() {
		t.Error("Expected scheduler not running")
	}
}

func TestScheduler_RunJobsDirectly(t *testing.T) {
	p := newTestPipeline(t)
	s := NewScheduler(p, Config{}, testLogger())

	// With no feedback history both jobs are clean no-ops.
	s.runDriftCheck()
	s.runRetune()

	if got := s.Thresholds(); got != p.Feedback().Thresholds() {
		t.Errorf("Unexpected thresholds: %+v", got)
	}
}
