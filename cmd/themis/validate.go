package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/themis/pkg/config"
	"mercator-hq/themis/pkg/guardrails"
	"mercator-hq/themis/pkg/guardrails/source"
)

var validateFlags struct {
	policyFile string
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and policy files",
	Long: `Validate a configuration file and, optionally, a guardrail policy file
without starting the service.

Examples:
  # Validate the default config
  themis validate

  # Validate a specific config
  themis validate --config /etc/themis/config.yaml

  # Validate a policy file
  themis validate --policy-file policies.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringVar(&validateFlags.policyFile, "policy-file", "", "guardrail policy file to validate")
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	fmt.Printf("✓ Configuration valid (%s)\n", cfgFile)

	policyFile := validateFlags.policyFile
	if policyFile == "" {
		policyFile = cfg.Guardrails.PolicyFile
	}
	if policyFile == "" {
		return nil
	}

	// Validation installs into a throwaway engine so invalid policies are
	// caught by the same rules enforcement uses.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := guardrails.NewEngine(logger)
	src := source.NewFileSource(policyFile, logger)
	if err := src.Apply(engine); err != nil {
		return fmt.Errorf("policy file invalid: %w", err)
	}

	fmt.Printf("✓ Policy file valid (%s, %d policies)\n", policyFile, len(engine.Policies()))
	return nil
}
