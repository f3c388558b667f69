package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/orchestrator"
	"github.com/civicatlas/scraperd/internal/queue"
	"github.com/civicatlas/scraperd/internal/registry"
	"github.com/civicatlas/scraperd/internal/schedule"
)

const shutdownGrace = 10 * time.Second

// newServeCmd creates the 'serve' subcommand: the orchestrator process that
// owns the cron schedule and the HTTP surface.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the scheduler and the orchestrator HTTP server",
		Long: `Starts the orchestrator: registers a cron entry for every enabled
(scraper, mode) pair, enqueues scrape jobs when entries fire, and serves
/health and /metrics until interrupted.`,
		RunE: runServeCommand,
	}
}

func runServeCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := rt.Config, rt.Logger.Named("orchestrator")

	reg, err := registry.Load()
	if err != nil {
		return fmt.Errorf("load scraper registry: %w", err)
	}

	producer, err := queue.NewRedisQueue(cfg.Redis.URL, cfg.Queue.Key)
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer producer.Close()

	pingCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	err = producer.Ping(pingCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("queue unreachable: %w", err)
	}

	sched := schedule.New(logger)
	orch := orchestrator.New(reg, sched, producer, logger)

	if cfg.Scheduler.Enabled {
		registered := orch.ScheduleAll(
			cfg.Scrapers.EnabledFor("prod"),
			cfg.Scrapers.EnabledFor("test"),
		)
		sched.Start()
		defer sched.Stop()
		logger.Info("scheduler started", zap.Int("entries", registered))
	} else {
		logger.Info("scheduler disabled, serving HTTP only")
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr(),
		Handler: orchestrator.NewServer(logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-cmd.Context().Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
