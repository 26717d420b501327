package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
	"github.com/ik-labs/route-pilot/pkg/telemetry/logging"
)

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "routepilot",
	Short: "Policy-driven LLM gateway orchestrator",
	Long: `routepilot mediates access to an OpenAI-compatible chat-completions
gateway. It streams completions with supervised failover across a ranked
list of models, enforces per-user quotas, and records signed, replayable
receipts. It also composes sub-agent chains: small directed graphs of
typed tasks with per-hop policies, budgets, and parent/child receipts.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.New(logLevel, os.Stderr)
		return nil
	},
}

// Execute runs the root command, mapping any returned error to its
// apperrors exit code before the process exits.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(apperrors.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
}
