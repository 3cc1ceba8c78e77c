package config

import (
	"fmt"
	"net"
	"strings"
)

// knownProviderTypes is the closed set of provider adapter types.
var knownProviderTypes = map[string]bool{
	"mock":      true,
	"openai":    true,
	"anthropic": true,
}

// Validate checks the configuration for errors. It returns the first error
// found with enough context to locate the offending field.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateProviders(cfg); err != nil {
		return err
	}
	if err := validateAudit(&cfg.Audit); err != nil {
		return err
	}
	if err := validateCosts(&cfg.Costs); err != nil {
		return err
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return err
	}
	return nil
}

func validateServer(sc *ServerConfig) error {
	if _, _, err := net.SplitHostPort(sc.ListenAddress); err != nil {
		return fmt.Errorf("server.listen_address %q is not host:port: %w", sc.ListenAddress, err)
	}
	if sc.ReadTimeout < 0 || sc.WriteTimeout < 0 || sc.IdleTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	return nil
}

func validateProviders(cfg *Config) error {
	active, ok := cfg.Providers[cfg.Provider]
	if !ok {
		return fmt.Errorf("provider %q is not defined in providers", cfg.Provider)
	}
	if !knownProviderTypes[active.Type] {
		return fmt.Errorf("provider %q has unknown type %q", cfg.Provider, active.Type)
	}

	for name, pc := range cfg.Providers {
		if !knownProviderTypes[pc.Type] {
			return fmt.Errorf("provider %q has unknown type %q", name, pc.Type)
		}
		if pc.Timeout <= 0 {
			return fmt.Errorf("provider %q timeout must be positive", name)
		}
		if pc.MaxRetries < 0 {
			return fmt.Errorf("provider %q max_retries must not be negative", name)
		}
		if pc.MaxTokens <= 0 {
			return fmt.Errorf("provider %q max_tokens must be positive", name)
		}
	}
	return nil
}

func validateAudit(ac *AuditConfig) error {
	switch strings.ToLower(ac.Backend) {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("audit.backend must be \"memory\" or \"sqlite\", got %q", ac.Backend)
	}
	if ac.Backend == "sqlite" && ac.Path == "" {
		return fmt.Errorf("audit.path is required for the sqlite backend")
	}
	if ac.AsyncBuffer <= 0 {
		return fmt.Errorf("audit.async_buffer must be positive")
	}
	return nil
}

func validateCosts(cc *CostsConfig) error {
	if cc.DefaultCostPer1KTokens < 0 {
		return fmt.Errorf("costs.default_cost_per_1k_tokens must not be negative")
	}
	for model, pricing := range cc.Models {
		if pricing.CostPer1KTokens < 0 {
			return fmt.Errorf("costs.models[%q].cost_per_1k_tokens must not be negative", model)
		}
	}
	if cc.AlertThresholdUSD < 0 {
		return fmt.Errorf("costs.alert_threshold_usd must not be negative")
	}
	return nil
}

func validateTelemetry(tc *TelemetryConfig) error {
	switch strings.ToLower(tc.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("telemetry.logging.level must be debug|info|warn|error, got %q", tc.Logging.Level)
	}
	switch strings.ToLower(tc.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("telemetry.logging.format must be json|text, got %q", tc.Logging.Format)
	}
	return nil
}
