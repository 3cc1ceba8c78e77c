package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/themis/pkg/audit"
	auditstorage "mercator-hq/themis/pkg/audit/storage"
	"mercator-hq/themis/pkg/config"
	"mercator-hq/themis/pkg/costs"
	"mercator-hq/themis/pkg/feedback"
	"mercator-hq/themis/pkg/gateway"
	"mercator-hq/themis/pkg/guardrails"
	"mercator-hq/themis/pkg/guardrails/source"
	policystorage "mercator-hq/themis/pkg/guardrails/storage"
	"mercator-hq/themis/pkg/pipeline"
	"mercator-hq/themis/pkg/providerfactory"
	"mercator-hq/themis/pkg/risk"
	"mercator-hq/themis/pkg/schedule"
	"mercator-hq/themis/pkg/server"
	"mercator-hq/themis/pkg/telemetry/logging"
	"mercator-hq/themis/pkg/telemetry/metrics"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the governance service",
	Long: `Start the governance service with the specified configuration.

The service exposes the completion endpoint and the operator API on the
configured listen address. Every completion request passes through risk
assessment, guardrail enforcement, cost tracking, and audit recording.

Examples:
  # Start with default config
  themis run

  # Start with custom config
  themis run --config /etc/themis/config.yaml

  # Override listen address
  themis run --listen 0.0.0.0:8080

  # Validate config without starting the server
  themis run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the server")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging, os.Stdout)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	// Model provider and gateway.
	provider, err := providerfactory.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize provider: %w", err)
	}
	defer provider.Close()

	pc := cfg.Providers[cfg.Provider]
	calculator := costs.NewCalculator(cfg.Costs)
	gw := gateway.New(provider, calculator, pc.DefaultModel, pc.MaxTokens, logger)

	logger.Info("provider initialized",
		"provider", provider.GetName(),
		"type", provider.GetType(),
		"default_model", pc.DefaultModel,
	)

	// Audit trail.
	var store audit.Storage
	switch cfg.Audit.Backend {
	case "sqlite":
		store, err = auditstorage.NewSQLiteStorage(&auditstorage.SQLiteConfig{Path: cfg.Audit.Path})
		if err != nil {
			return fmt.Errorf("failed to open audit storage: %w", err)
		}
	default:
		store = auditstorage.NewMemoryStorage()
	}

	recorder := audit.NewRecorder(store, &audit.Config{
		AsyncBuffer:  cfg.Audit.AsyncBuffer,
		WriteTimeout: cfg.Audit.WriteTimeout,
	}, logger)
	defer recorder.Close()

	logger.Info("audit trail initialized", "backend", cfg.Audit.Backend)

	// Governance engines.
	riskEngine := risk.NewEngine(logger)
	guardrailsEngine := guardrails.NewEngine(logger)

	policyStore, err := setupPolicyPersistence(ctx, cfg, guardrailsEngine, logger)
	if err != nil {
		return err
	}
	if policyStore != nil {
		defer policyStore.Close()
	}

	if err := setupPolicyFile(ctx, cfg, guardrailsEngine, logger); err != nil {
		return err
	}

	feedbackEngine := feedback.NewEngine(guardrailsEngine.Thresholds(), logger)
	monitor := costs.NewMonitor(cfg.Costs.AlertThresholdUSD, logger)

	p := pipeline.New(gw, riskEngine, guardrailsEngine, feedbackEngine, monitor, recorder, collector, logger)

	// Maintenance scheduler.
	scheduler := schedule.NewScheduler(p, schedule.Config{
		DriftCheckSchedule: cfg.Feedback.DriftCheckSchedule,
		RetuneSchedule:     cfg.Feedback.RetuneSchedule,
	}, logger)
	if err := scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer scheduler.Stop()

	srv := server.NewServer(&cfg.Server, p, collector, policyStore, logger)
	return srv.Start(ctx)
}

// loadConfig loads the configured file, falling back to built-in defaults
// when the default config path does not exist.
func loadConfig() (*config.Config, error) {
	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		if cfgFile == "config.yaml" {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("config file not found: %s", cfgFile)
	}

	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// setupPolicyPersistence opens the policy store when configured and restores
// the persisted policy set and thresholds into the engine.
func setupPolicyPersistence(ctx context.Context, cfg *config.Config, engine *guardrails.Engine, logger *slog.Logger) (*policystorage.Store, error) {
	if cfg.Guardrails.StorePath == "" {
		return nil, nil
	}

	store, err := policystorage.Open(policystorage.Config{Path: cfg.Guardrails.StorePath})
	if err != nil {
		return nil, fmt.Errorf("failed to open policy store: %w", err)
	}

	policies, err := store.LoadPolicies(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load persisted policies: %w", err)
	}
	if len(policies) > 0 {
		if err := engine.ReplacePolicies(policies); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to restore persisted policies: %w", err)
		}
		logger.Info("restored persisted policy set", "policy_count", len(policies))
	}

	thresholds, ok, err := store.LoadThresholds(ctx)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to load persisted thresholds: %w", err)
	}
	if ok {
		if err := engine.SetThresholds(thresholds); err != nil {
			logger.Warn("persisted thresholds not applicable to current policy set", "error", err)
		} else {
			logger.Info("restored persisted thresholds",
				"critical", thresholds.Critical,
				"high", thresholds.High,
				"medium", thresholds.Medium,
			)
		}
	}

	return store, nil
}

// setupPolicyFile applies the configured policy file and starts the watcher
// when hot reload is enabled.
func setupPolicyFile(ctx context.Context, cfg *config.Config, engine *guardrails.Engine, logger *slog.Logger) error {
	if cfg.Guardrails.PolicyFile == "" {
		return nil
	}

	src := source.NewFileSource(cfg.Guardrails.PolicyFile, logger)
	if err := src.Apply(engine); err != nil {
		return fmt.Errorf("failed to load policy file: %w", err)
	}

	if !cfg.Guardrails.WatchPolicyFile {
		return nil
	}

	watcher, err := source.NewWatcher(src, 0, logger)
	if err != nil {
		return fmt.Errorf("failed to create policy watcher: %w", err)
	}
	go func() {
		if err := watcher.Watch(ctx, engine); err != nil {
			logger.Error("policy watcher stopped", "error", err)
		}
	}()

	return nil
}
