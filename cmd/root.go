// Package cmd defines and implements the CLI commands for the scraperd executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/config"
	"github.com/civicatlas/scraperd/internal/logging"
	"github.com/civicatlas/scraperd/internal/metrics"
)

var cfgFile string

// runtimeKeyType is the key for storing the Runtime in the command context.
type runtimeKeyType string

const runtimeKey runtimeKeyType = "runtime"

// Runtime holds the services every subcommand needs. It is built once in the
// root command's PersistentPreRunE and injected through the context, so tests
// can swap the factory for a stub.
type Runtime struct {
	Config config.Config
	Logger *zap.Logger
}

// newRuntime is the runtime factory. A variable so tests can replace it.
var newRuntime = func() (*Runtime, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.Init(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	metrics.Init()
	return &Runtime{Config: cfg, Logger: logger}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scraperd",
		Short: "Scraper orchestration service for the CivicAtlas platform.",
		Long: `scraperd schedules and runs the civic-data scrapers behind CivicAtlas.
It maintains the cron schedule per scraper and mode, enqueues scrape jobs
onto a Redis list, and consumes them into the Postgres entity store with
content-hash change detection.`,

		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := newRuntime()
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), runtimeKey, rt))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if rt, ok := cmd.Context().Value(runtimeKey).(*Runtime); ok && rt != nil {
				_ = rt.Logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./scraperd.yaml)")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newScrapeCmd())
	cmd.AddCommand(newWorkCmd())

	return cmd
}

func resolveRuntime(ctx context.Context) (*Runtime, error) {
	rt, ok := ctx.Value(runtimeKey).(*Runtime)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

// Execute is the main entry point. SIGINT/SIGTERM cancel the command context
// so long-running subcommands shut down cleanly.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
