package config

import "time"

// Config is the root configuration structure for Themis.
// It contains all configuration sections for the admin server, model
// providers, guardrails, feedback scheduling, audit storage, cost
// monitoring, and telemetry.
type Config struct {
	// Server contains the admin HTTP server configuration.
	Server ServerConfig `yaml:"server"`

	// Provider is the name of the active provider from Providers.
	// The provider is selected once at startup, never per request.
	// Default: "mock"
	Provider string `yaml:"provider"`

	// Providers contains configuration for all model provider
	// integrations, keyed by provider name.
	Providers map[string]ProviderConfig `yaml:"providers"`

	// Guardrails contains policy source and persistence configuration.
	Guardrails GuardrailsConfig `yaml:"guardrails"`

	// Feedback contains drift-check and retune scheduling configuration.
	Feedback FeedbackConfig `yaml:"feedback"`

	// Audit contains audit log storage configuration.
	Audit AuditConfig `yaml:"audit"`

	// Costs contains model pricing and cost alerting configuration.
	Costs CostsConfig `yaml:"costs"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the admin HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Default: "127.0.0.1:8787"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request when
	// keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are abandoned.
	// Default: 15s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// ProviderConfig contains configuration for a single model provider.
type ProviderConfig struct {
	// Type is the provider adapter type ("mock", "openai", "anthropic").
	Type string `yaml:"type"`

	// BaseURL overrides the provider's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	// Default: "OPENAI_API_KEY" / "ANTHROPIC_API_KEY" per type.
	APIKeyEnv string `yaml:"api_key_env"`

	// DefaultModel is used when a request does not name a model.
	DefaultModel string `yaml:"default_model"`

	// Timeout is the per-request HTTP timeout.
	// Default: 30s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries for transient failures.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// MaxTokens caps completion length for generated responses.
	// Default: 500
	MaxTokens int `yaml:"max_tokens"`
}

// GuardrailsConfig contains policy source and persistence configuration.
type GuardrailsConfig struct {
	// PolicyFile is an optional YAML file defining the policy set.
	// When empty, the built-in default policies are used.
	PolicyFile string `yaml:"policy_file"`

	// WatchPolicyFile enables hot-reload of PolicyFile on change.
	// Default: false
	WatchPolicyFile bool `yaml:"watch_policy_file"`

	// StorePath is an optional SQLite database path for persisting
	// policy snapshots across restarts. Empty disables persistence.
	StorePath string `yaml:"store_path"`
}

// FeedbackConfig contains scheduling for the feedback learning loop.
// Empty schedules disable the corresponding job; drift checks and retunes
// can always be triggered on demand through the admin API.
type FeedbackConfig struct {
	// DriftCheckSchedule is a cron expression for periodic drift checks
	// (e.g. "0 * * * *" for hourly).
	DriftCheckSchedule string `yaml:"drift_check_schedule"`

	// RetuneSchedule is a cron expression for periodic threshold
	// retuning. A scheduled retune commits the returned thresholds into
	// the guardrails engine.
	RetuneSchedule string `yaml:"retune_schedule"`
}

// AuditConfig contains audit log storage configuration.
type AuditConfig struct {
	// Backend selects the storage backend ("memory" or "sqlite").
	// Default: "memory"
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path (sqlite backend only).
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int `yaml:"async_buffer"`

	// WriteTimeout is the timeout for writing a record to storage.
	// Default: 5s
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// ModelPricing contains flat per-1K-token pricing for one model.
type ModelPricing struct {
	// CostPer1KTokens is the USD cost per 1000 tokens.
	CostPer1KTokens float64 `yaml:"cost_per_1k_tokens"`
}

// CostsConfig contains model pricing and cost alerting configuration.
type CostsConfig struct {
	// Models maps model id to pricing. Unknown models fall back to
	// DefaultCostPer1KTokens.
	Models map[string]ModelPricing `yaml:"models"`

	// DefaultCostPer1KTokens is the fallback price for unknown models.
	// Default: 0.01
	DefaultCostPer1KTokens float64 `yaml:"default_cost_per_1k_tokens"`

	// AlertThresholdUSD raises a cost alert for any single exchange
	// whose cost exceeds this amount.
	// Default: 0.5
	AlertThresholdUSD float64 `yaml:"alert_threshold_usd"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in logs.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metrics namespace prefix.
	// Default: "themis"
	Namespace string `yaml:"namespace"`
}
