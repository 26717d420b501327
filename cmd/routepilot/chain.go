package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
	"github.com/ik-labs/route-pilot/pkg/cli"
	"github.com/ik-labs/route-pilot/pkg/subagent"
)

var chainFlags struct {
	chain         string
	taskID        string
	earlyStop     bool
	budgetTokens  int
	budgetCostUSD float64
	budgetTimeMs  int
}

var chainCmd = &cobra.Command{
	Use:   "chain [input-json]",
	Short: "Run a sub-agent chain",
	Long: `chain drives one of the built-in sub-agent chains over a JSON input
object: "helpdesk" runs Triage then Writer (or Triage, Retriever, Writer);
"helpdesk-par" runs Triage then a parallel RetrieverFast/RetrieverAccurate fan-out
joined by a deterministic aggregator.

Examples:
  routepilot chain --chain helpdesk '{"question":"how do I reset my password?"}'
  routepilot chain --chain helpdesk-par --early-stop '{"question":"..."}'`,
	Args: cobra.ExactArgs(1),
	RunE: runChain,
}

func init() {
	rootCmd.AddCommand(chainCmd)

	chainCmd.Flags().StringVar(&chainFlags.chain, "chain", "helpdesk", "chain to run: helpdesk, helpdesk-par")
	chainCmd.Flags().StringVar(&chainFlags.taskID, "task-id", "", "task id; generated if omitted")
	chainCmd.Flags().BoolVar(&chainFlags.earlyStop, "early-stop", false, "cancel the losing branch once one parallel branch succeeds (helpdesk-par only)")
	chainCmd.Flags().IntVar(&chainFlags.budgetTokens, "budget-tokens", 0, "per-hop token budget (carried in the envelope; no over-budget check reads it)")
	chainCmd.Flags().Float64Var(&chainFlags.budgetCostUSD, "budget-cost-usd", 0, "per-hop cost budget in USD (0 disables the check)")
	chainCmd.Flags().IntVar(&chainFlags.budgetTimeMs, "budget-time-ms", 0, "per-hop latency budget in ms (0 disables the check)")
}

func runChain(cmd *cobra.Command, args []string) error {
	var input map[string]any
	if err := json.Unmarshal([]byte(args[0]), &input); err != nil {
		return apperrors.NewConfigError("input-json", fmt.Sprintf("invalid JSON: %v", err))
	}

	taskID := chainFlags.taskID
	if taskID == "" {
		taskID = uuid.NewString()
	}

	ctx := cli.SetupSignalHandler()

	a, closeApp, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp()

	budget := subagent.Budget{
		Tokens:  chainFlags.budgetTokens,
		CostUSD: chainFlags.budgetCostUSD,
		TimeMs:  chainFlags.budgetTimeMs,
	}

	earlyStop := chainFlags.earlyStop
	if !cmd.Flags().Changed("early-stop") {
		earlyStop = a.cfg.EarlyStop
	}

	var outcome *subagent.ChainOutcome
	switch chainFlags.chain {
	case "helpdesk":
		outcome, err = a.subagents.RunHelpdesk(ctx, taskID, input, budget)
	case "helpdesk-par":
		outcome, err = a.subagents.RunHelpdeskParallel(ctx, taskID, input, budget, earlyStop)
	default:
		return apperrors.NewConfigError("--chain", fmt.Sprintf("unknown chain %q", chainFlags.chain))
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome.FinalOutput); err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "task_id=%s hops=%d cancelled=%v\n", taskID, len(outcome.Hops), outcome.CancelledAgents)
	return nil
}
