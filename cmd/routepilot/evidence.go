package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
	"github.com/ik-labs/route-pilot/pkg/cli"
	"github.com/ik-labs/route-pilot/pkg/ledger"
)

var evidenceFlags struct {
	taskID string
	format string
}

var evidenceCmd = &cobra.Command{
	Use:   "evidence",
	Short: "Inspect recorded receipts",
	Long: `evidence provides read access to the signed receipts and traces
routepilot has written.

Subcommands:
  timeline  - list every receipt sharing a task id, ascending by time`,
}

var evidenceTimelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "List every receipt sharing a task id",
	Long: `timeline prints every receipt that shares --task-id, ascending by
timestamp: the root request's receipt followed by every sub-agent hop's
receipt spawned under it.

Examples:
  routepilot evidence timeline --task-id t-1
  routepilot evidence timeline --task-id t-1 --format json`,
	RunE: runEvidenceTimeline,
}

func init() {
	rootCmd.AddCommand(evidenceCmd)
	evidenceCmd.AddCommand(evidenceTimelineCmd)

	evidenceTimelineCmd.Flags().StringVar(&evidenceFlags.taskID, "task-id", "", "task id to fetch the timeline for (required)")
	evidenceTimelineCmd.Flags().StringVar(&evidenceFlags.format, "format", "text", "output format: text, json")
}

func runEvidenceTimeline(cmd *cobra.Command, args []string) error {
	if evidenceFlags.taskID == "" {
		return apperrors.NewConfigError("--task-id", "required")
	}

	ctx := cli.SetupSignalHandler()

	a, closeApp, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp()

	rows, err := a.receipts.TimelineForTask(evidenceFlags.taskID)
	if err != nil {
		return err
	}

	format := cli.OutputFormat(evidenceFlags.format)
	if format != cli.FormatJSON {
		return writeTimelineText(os.Stdout, evidenceFlags.taskID, rows)
	}
	return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, map[string]any{
		"task_id": evidenceFlags.taskID,
		"count":   len(rows),
		"rows":    rows,
	})
}

func writeTimelineText(w *os.File, taskID string, rows []*ledger.Receipt) error {
	fmt.Fprintf(w, "task_id: %s\n", taskID)
	fmt.Fprintf(w, "receipts: %d\n\n", len(rows))

	if len(rows) == 0 {
		fmt.Fprintln(w, "no receipts found.")
		return nil
	}

	for i, r := range rows {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "receipt:       %s\n", r.ID)
		fmt.Fprintf(w, "ts:            %s\n", r.TS)
		fmt.Fprintf(w, "policy:        %s\n", r.Policy)
		fmt.Fprintf(w, "route:         %s -> %s (fallbacks=%d)\n", r.RoutePrimary, r.RouteFinal, r.FallbackCount)
		if r.Agent != nil {
			fmt.Fprintf(w, "agent:         %s\n", *r.Agent)
		}
		if r.ParentID != nil {
			fmt.Fprintf(w, "parent:        %s\n", *r.ParentID)
		}
		fmt.Fprintf(w, "latency_ms:    %d\n", r.LatencyMs)
		fmt.Fprintf(w, "tokens:        prompt=%d completion=%d\n", r.PromptTokens, r.CompletionTokens)
		fmt.Fprintf(w, "cost_usd:      %.6f\n", r.CostUSD)
		if len(r.Reasons) > 0 {
			fmt.Fprintf(w, "reasons:       %v\n", r.Reasons)
		}
	}
	return nil
}
