package commands

import (
	"context"
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
	"github.com/lumenweave/lumen/server"
	"github.com/lumenweave/lumen/store"
)

// ServeCmd starts the viewer server.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the viewer server",
	Long: `Serve starts the LUMEN viewer server: an HTTP endpoint for page
snapshots and a websocket stream over which viewers request renders and
receive progressive chunk and continuation events.

The config file is watched; edits to limits or the gateway URL apply to
new connections without a restart.

Examples:
  lumen serve                # Default port
  lumen serve --port 8080    # Explicit port`,
	RunE: runServe,
}

func init() {
	ServeCmd.Flags().Int("port", 0, "Listen port (overrides config)")
	ServeCmd.Flags().Bool("no-store", false, "Disable the snapshot store")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = &port
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
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		snapshots, err = store.Open(cfg.Store.Path, logger.Named("store"))
		if err != nil {
			return err
		}
		defer snapshots.Close()
	}

	renderer := page.NewRenderer(fetcher, cfg, snapshots, logger.Named("page"))
	srv := server.New(cfg, renderer, logger.Named("server"))

	startWatcher(cfg)

	pterm.DefaultHeader.WithFullWidth().Printf("LUMEN viewer - %s", cfg.Network.Name)
	pterm.Info.Printfln("Listening on :%d", srv.Port())
	pterm.Info.Printfln("Gateway %s", cfg.Network.Gateway())
	pterm.Println()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	pterm.Println()
	pterm.Info.Println("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startWatcher hot-reloads validated config limits. Watch failures are
// logged, not fatal: a missing project file just means no hot reload.
func startWatcher(cfg *config.Config) {
	watcher, err := config.NewWatcher("lumen.toml")
	if err != nil {
		logger.Logger.Debugw("config watcher unavailable", "error", err.Error())
		return
	}
	watcher.OnReload(func(next *config.Config) error {
		cfg.Resolver = next.Resolver
		cfg.Chunks = next.Chunks
		cfg.Waterfall = next.Waterfall
		logger.Logger.Infow("limits updated from config",
			"max_depth", cfg.Resolver.MaxDepth,
			"ttl_seconds", cfg.Resolver.TTLSeconds,
		)
		return nil
	})
	watcher.Start()
}
