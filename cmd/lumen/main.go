package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenweave/lumen/cmd/lumen/commands"
	"github.com/lumenweave/lumen/logger"
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "LUMEN - On-chain markup renderer",
	Long: `LUMEN - Render markup pages served by blockchain contracts.

Contracts expose render functions returning markdown with LUMEN tags:
includes pull content from other contracts, chunk tags stream large
collections progressively, and render tags stitch whole sub-pages
together.

Available commands:
  resolve - Resolve a contract page to flat markdown
  serve   - Start the viewer server (HTTP + websocket progress stream)
  config  - Inspect and validate configuration
  version - Show version information

Examples:
  lumen resolve CCONTRACT... --path about    # Resolve one page
  lumen serve --port 4820                    # Start the viewer server
  lumen config show                          # Show configuration
  lumen config get network.gateway_url       # Get one config value`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Config output stays machine-readable; everything else logs.
		if cmd.Name() == "show" || cmd.Name() == "get" {
			return nil
		}
		verbose, _ := cmd.Flags().GetCount("verbose")
		if verbose > 0 {
			return logger.InitializeVerbose()
		}
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		return logger.Initialize(jsonLogs)
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit logs as JSON")

	rootCmd.AddCommand(commands.ResolveCmd)
	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
