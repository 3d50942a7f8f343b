package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/lumenweave/lumen/config"
	"github.com/lumenweave/lumen/logger"
	"github.com/lumenweave/lumen/page"
	"github.com/lumenweave/lumen/rpc"
	"github.com/lumenweave/lumen/store"
)

// ResolveCmd renders one contract page to stdout.
var ResolveCmd = &cobra.Command{
	Use:   "resolve <contract-id>",
	Short: "Resolve a contract page to flat markdown",
	Long: `Resolve fetches a contract's render output and flattens it: includes
are resolved recursively, chunked collections are materialized, and
render continuations are stitched in.

Examples:
  lumen resolve CA7Q...IKLZ                      # Root page
  lumen resolve CA7Q...IKLZ --path blog/first    # A specific path
  lumen resolve CA7Q...IKLZ --viewer GDW6...K2M  # Personalized render
  lumen resolve CA7Q...IKLZ --snapshot           # Persist the result`,
	Args: cobra.ExactArgs(1),
	RunE: runResolve,
}

func init() {
	ResolveCmd.Flags().String("path", "", "Logical path within the contract's pages")
	ResolveCmd.Flags().String("viewer", "", "Viewer account for personalized renders")
	ResolveCmd.Flags().Bool("snapshot", false, "Persist the resolved page to the snapshot store")
	ResolveCmd.Flags().Bool("quiet", false, "Suppress progress output, print only the page")
}

func runResolve(cmd *cobra.Command, args []string) error {
	contractID := args[0]
	path, _ := cmd.Flags().GetString("path")
	viewer, _ := cmd.Flags().GetString("viewer")
	persist, _ := cmd.Flags().GetBool("snapshot")
	quiet, _ := cmd.Flags().GetBool("quiet")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	fetcher := rpc.NewGatewayFetcher(cfg.Network.Gateway(), rpc.Options{
		Timeout:           time.Duration(cfg.Network.TimeoutSeconds) * time.Second,
		MaxCallsPerMinute: cfg.Network.MaxCallsPerMinute,
		BurstPerSecond:    cfg.Network.BurstPerSecond,
		Hardened:          cfg.Network.Hardened,
	}, logger.Named("rpc"))

	var snapshots *store.Store
	if persist {
		snapshots, err = store.Open(cfg.Store.Path, logger.Named("store"))
		if err != nil {
			return err
		}
		defer snapshots.Close()
	}

	renderer := page.NewRenderer(fetcher, cfg, snapshots, logger.Named("page"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var spinner *pterm.SpinnerPrinter
	if !quiet {
		spinner, _ = pterm.DefaultSpinner.Start(fmt.Sprintf("Resolving %s", shortContract(contractID)))
	}

	callbacks := page.Callbacks{}
	if !quiet {
		callbacks.OnChunkProgress = func(loaded, total int) {
			if spinner != nil {
				spinner.UpdateText(fmt.Sprintf("Loading chunks %d/%d", loaded, total))
			}
		}
		callbacks.OnChunkError = func(collection string, index int, err error) {
			pterm.Warning.Printfln("chunk %s[%d] failed: %v", collection, index, err)
		}
	}

	result, err := renderer.Render(ctx, contractID, path, viewer, callbacks)
	if err != nil {
		if spinner != nil {
			spinner.Fail("Resolve failed")
		}
		return err
	}

	if spinner != nil {
		spinner.Success(fmt.Sprintf("Resolved in %s (%d keys, %d chunks, %d continuations)",
			result.Duration.Round(time.Millisecond),
			result.ResolvedKeys,
			result.ChunksLoaded,
			result.ContinuationsLoaded,
		))
		if result.CycleDetected {
			pterm.Warning.Println("Circular includes were detected and skipped")
		}
		pterm.Println()
	}

	fmt.Println(result.Content)
	return nil
}

func shortContract(id string) string {
	if len(id) > 12 {
		return id[:4] + "…" + id[len(id)-4:]
	}
	return id
}
