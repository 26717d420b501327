package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ik-labs/route-pilot/pkg/apperrors"
	"github.com/ik-labs/route-pilot/pkg/cli"
	"github.com/ik-labs/route-pilot/pkg/inference"
)

var inferFlags struct {
	policy      string
	user        string
	attachment  string
	shadowModel string
}

var inferCmd = &cobra.Command{
	Use:   "infer [prompt]",
	Short: "Run one policy-routed inference request",
	Long: `infer sends a single user message through the router, streaming the
response to stdout and writing a signed receipt and trace row on success.

Examples:
  routepilot infer --policy default --user alice "summarize this quarter's numbers"
  routepilot infer --policy default --user alice --attachment report.txt "summarize"`,
	Args: cobra.ExactArgs(1),
	RunE: runInfer,
}

func init() {
	rootCmd.AddCommand(inferCmd)

	inferCmd.Flags().StringVar(&inferFlags.policy, "policy", "default", "policy name to route under")
	inferCmd.Flags().StringVar(&inferFlags.user, "user", "", "user reference for quota accounting (required)")
	inferCmd.Flags().StringVar(&inferFlags.attachment, "attachment", "", "path to a text file appended to the prompt")
	inferCmd.Flags().StringVar(&inferFlags.shadowModel, "shadow-model", "", "run a silent shadow attempt against this model after the main call")
}

func runInfer(cmd *cobra.Command, args []string) error {
	if inferFlags.user == "" {
		return apperrors.NewConfigError("--user", "required")
	}

	ctx := cli.SetupSignalHandler()

	a, closeApp, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp()

	policy, err := a.policies.Resolve(inferFlags.policy)
	if err != nil {
		return err
	}

	var attachment string
	if inferFlags.attachment != "" {
		b, err := os.ReadFile(inferFlags.attachment)
		if err != nil {
			return apperrors.NewConfigError("--attachment", fmt.Sprintf("cannot read file: %v", err))
		}
		attachment = strings.TrimSpace(string(b))
	}

	result, err := a.inference.Run(ctx, inference.Request{
		Policy:      policy,
		UserRef:     inferFlags.user,
		UserContent: args[0],
		Attachment:  attachment,
		Sink:        os.Stdout,
		ShadowModel: inferFlags.shadowModel,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout)
	fmt.Fprintf(os.Stderr, "receipt=%s route=%s fallbacks=%d latency_ms=%d cost_usd=%.6f\n",
		result.ReceiptID, result.RouteFinal, result.FallbackCount, result.LatencyMs, result.CostUSD)
	return nil
}
