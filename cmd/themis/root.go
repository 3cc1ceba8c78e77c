package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "themis",
	Short: "Themis - LLM response governance service",
	Long: `Themis is an LLM governance service that assesses, enforces, and audits
model responses.

Each generated response passes through a governance pipeline:
  - Risk assessment (injection, unsafe content, leakage, uncertainty)
  - Guardrail policy enforcement (block, fallback, rewrite)
  - Cost tracking and alerting
  - Audit trail recording
  - Feedback-driven drift detection and threshold retuning`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
