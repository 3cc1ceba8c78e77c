package config

import "time"

// ApplyDefaults fills in default values for any unset configuration fields.
// It is called after parsing and before validation.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = "127.0.0.1:8787"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}

	// Provider defaults
	if cfg.Provider == "" {
		cfg.Provider = "mock"
	}
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	if _, ok := cfg.Providers["mock"]; !ok {
		cfg.Providers["mock"] = ProviderConfig{Type: "mock"}
	}
	for name, pc := range cfg.Providers {
		if pc.Type == "" {
			pc.Type = name
		}
		if pc.Timeout == 0 {
			pc.Timeout = 30 * time.Second
		}
		if pc.MaxRetries == 0 {
			pc.MaxRetries = 2
		}
		if pc.MaxTokens == 0 {
			pc.MaxTokens = 500
		}
		if pc.APIKeyEnv == "" {
			switch pc.Type {
			case "openai":
				pc.APIKeyEnv = "OPENAI_API_KEY"
			case "anthropic":
				pc.APIKeyEnv = "ANTHROPIC_API_KEY"
			}
		}
		cfg.Providers[name] = pc
	}

	// Audit defaults
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = "memory"
	}
	if cfg.Audit.Path == "" {
		cfg.Audit.Path = "data/audit.db"
	}
	if cfg.Audit.AsyncBuffer == 0 {
		cfg.Audit.AsyncBuffer = 1000
	}
	if cfg.Audit.WriteTimeout == 0 {
		cfg.Audit.WriteTimeout = 5 * time.Second
	}

	// Costs defaults
	if cfg.Costs.Models == nil {
		cfg.Costs.Models = defaultModelPricing()
	}
	if cfg.Costs.DefaultCostPer1KTokens == 0 {
		cfg.Costs.DefaultCostPer1KTokens = 0.01
	}
	if cfg.Costs.AlertThresholdUSD == 0 {
		cfg.Costs.AlertThresholdUSD = 0.5
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "themis"
	}
}

// defaultModelPricing returns the built-in per-1K-token pricing table.
// Override per deployment via the costs.models section.
func defaultModelPricing() map[string]ModelPricing {
	return map[string]ModelPricing{
		"gpt-4":           {CostPer1KTokens: 0.03},
		"gpt-4-turbo":     {CostPer1KTokens: 0.01},
		"gpt-3.5-turbo":   {CostPer1KTokens: 0.002},
		"claude-3":        {CostPer1KTokens: 0.015},
		"claude-3-opus":   {CostPer1KTokens: 0.015},
		"claude-3-sonnet": {CostPer1KTokens: 0.003},
		"claude-3-haiku":  {CostPer1KTokens: 0.00025},
	}
}

// Default returns a fully defaulted configuration without reading any file.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	// MetricsConfig.Enabled zero value is false; metrics are on by
	// default unless a file explicitly disables them.
	cfg.Telemetry.Metrics.Enabled = true
	return cfg
}
