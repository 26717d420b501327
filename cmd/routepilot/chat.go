package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ik-labs/route-pilot/pkg/agentsession"
	"github.com/ik-labs/route-pilot/pkg/apperrors"
	"github.com/ik-labs/route-pilot/pkg/cli"
)

var chatFlags struct {
	agent   string
	user    string
	session string
}

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Send one turn to a multi-turn agent chat session",
	Long: `chat sends a single message into a session's persisted history. Pass
--session to continue an existing session; omit it to start a new one and
print its id on stderr so it can be reused on the next call.

Examples:
  routepilot chat --agent helpdesk --user alice "my invoice is wrong"
  routepilot chat --agent helpdesk --user alice --session <id> "still wrong"`,
	Args: cobra.ExactArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatFlags.agent, "agent", "", "agent name to chat with (required)")
	chatCmd.Flags().StringVar(&chatFlags.user, "user", "", "user reference for quota accounting (required)")
	chatCmd.Flags().StringVar(&chatFlags.session, "session", "", "existing session id; omitted starts a new session")
}

func runChat(cmd *cobra.Command, args []string) error {
	if chatFlags.agent == "" {
		return apperrors.NewConfigError("--agent", "required")
	}
	if chatFlags.user == "" {
		return apperrors.NewConfigError("--user", "required")
	}

	ctx := cli.SetupSignalHandler()

	a, closeApp, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer closeApp()

	result, err := a.agentsess.Run(ctx, agentsession.Turn{
		SessionID:   chatFlags.session,
		UserRef:     chatFlags.user,
		AgentName:   chatFlags.agent,
		UserContent: args[0],
		Sink:        os.Stdout,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout)
	fmt.Fprintf(os.Stderr, "session=%s receipt=%s route=%s cost_usd=%.6f\n",
		result.SessionID, result.ReceiptID, result.RouteFinal, result.CostUSD)
	return nil
}
