package cmd

import (
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/config"
	"github.com/civicatlas/scraperd/internal/fetch"
	"github.com/civicatlas/scraperd/internal/queue"
	"github.com/civicatlas/scraperd/internal/refdata"
	"github.com/civicatlas/scraperd/internal/registry"
	"github.com/civicatlas/scraperd/internal/scrape"
	"github.com/civicatlas/scraperd/internal/store"
	"github.com/civicatlas/scraperd/internal/worker"
)

// newWorkCmd creates the 'work' subcommand: the queue-consuming worker pool.
func newWorkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "work",
		Short: "Consumes scrape jobs from the queue",
		Long: `Runs a pool of workers that pop scrape jobs off the Redis list, execute
each job's tasks through the registered runners, and upsert the results
into the entity store with content-hash change detection.`,
		RunE: runWorkCommand,
	}
}

func runWorkCommand(cmd *cobra.Command, _ []string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := rt.Config, rt.Logger.Named("worker")

	reg, err := registry.Load()
	if err != nil {
		return fmt.Errorf("load scraper registry: %w", err)
	}

	consumer, err := queue.NewRedisQueue(cfg.Redis.URL, cfg.Queue.Key)
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer consumer.Close()

	pgStore, pool, err := store.NewPostgresStore(cmd.Context(), cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	runners, err := buildRunners(cfg, pgStore, logger)
	if err != nil {
		return err
	}

	w := worker.New(consumer, reg, runners, pgStore, pgStore, logger)

	concurrency := cfg.Worker.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger.Info("worker pool starting", zap.Int("concurrency", concurrency))

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.Run(cmd.Context())
		}()
	}
	wg.Wait()

	logger.Info("worker pool stopped")
	return nil
}

// buildRunners wires one runner per registered scraper: fetch-backed source
// runners for the legislature scrapers and the Represent sync for the
// reference scraper.
func buildRunners(cfg config.Config, pgStore *store.PostgresStore, logger *zap.Logger) (*scrape.Runners, error) {
	runners := scrape.NewRunners()

	fetcher := fetch.New(fetch.Config{
		Timeout:    cfg.HTTP.Timeout(),
		MaxRetries: cfg.HTTP.MaxRetries,
		UserAgent:  cfg.HTTP.UserAgent,
	}, logger.Named("fetch"))

	for scraper, sources := range scrape.DefaultSources {
		runner := scrape.NewSourceRunner(fetcher, sources, logger.Named(scraper))
		if err := runners.Register(scraper, runner); err != nil {
			return nil, err
		}
	}

	refClient := refdata.New(cfg.Refdata.BaseURL, cfg.HTTP.Timeout(), logger.Named("refdata"))
	syncer := refdata.NewSyncer(refClient, pgStore, cfg.Refdata.BoundarySetSlugs(), cfg.Refdata.Limit, logger.Named("refdata"))
	if err := runners.Register("represent_reference", syncer); err != nil {
		return nil, err
	}
	return runners, nil
}
