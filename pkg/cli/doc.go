/*
Package cli holds the small pieces of command-line plumbing shared by
cmd/routepilot's subcommands.

Output Formatting:

"evidence timeline" supports text or JSON output:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, timeline); err != nil {
		return err
	}

Signal Handling:

infer, chat, and chain thread a context canceled on SIGINT/SIGTERM down
through their router and controller calls:

	ctx := cli.SetupSignalHandler()
*/
package cli
