package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/orchestrator"
	"github.com/civicatlas/scraperd/internal/queue"
	"github.com/civicatlas/scraperd/internal/registry"
	"github.com/civicatlas/scraperd/internal/schedule"
	"github.com/civicatlas/scraperd/internal/scope"
)

var validModes = map[string]bool{
	"daily":     true,
	"bootstrap": true,
	"special":   true,
}

// newScrapeCmd creates the 'scrape' subcommand: a one-shot dispatch of scrape
// jobs for every scraper task matching a scope selector.
func newScrapeCmd() *cobra.Command {
	var (
		mode     string
		rawScope string
		since    string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Enqueues scrape jobs for a scope, immediately",
		Long: `Dispatches one scrape job per registered scraper whose tier, name and
tasks match the scope selector. Scopes are colon-separated
tier:code:entity patterns, each field defaulting to the * wildcard,
so "federal", "federal:*" and "federal:*:*" are equivalent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrapeCommand(cmd, mode, rawScope, since)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "daily", "run mode: daily, bootstrap or special")
	cmd.Flags().StringVar(&rawScope, "scope", scope.Wildcard, `scope selector "tier:code:entity"`)
	cmd.Flags().StringVar(&since, "since", "", "only fetch records changed since this date (YYYY-MM-DD)")

	return cmd
}

func runScrapeCommand(cmd *cobra.Command, mode, rawScope, since string) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := rt.Config, rt.Logger.Named("scrape")

	if !validModes[mode] {
		return fmt.Errorf("invalid mode %q: expected daily, bootstrap or special", mode)
	}
	sel, err := scope.Parse(rawScope)
	if err != nil {
		return err
	}
	if since != "" {
		if _, err := time.Parse("2006-01-02", since); err != nil {
			return fmt.Errorf("invalid --since date %q: %w", since, err)
		}
		logger.Info("since filter recorded for runners", zap.String("since", since))
	}

	reg, err := registry.Load()
	if err != nil {
		return fmt.Errorf("load scraper registry: %w", err)
	}
	producer, err := queue.NewRedisQueue(cfg.Redis.URL, cfg.Queue.Key)
	if err != nil {
		return fmt.Errorf("connect queue: %w", err)
	}
	defer producer.Close()

	orch := orchestrator.New(reg, schedule.New(logger), producer, logger)

	started := time.Now()
	dispatched, err := orch.Dispatch(sel, mode)
	if err != nil {
		return err
	}
	logger.Info("scrape dispatched",
		zap.String("mode", mode),
		zap.String("scope", sel.String()),
		zap.Int("jobs", dispatched),
	)
	if dispatched == 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: no scrapers matched scope %s\n", sel.String())
	}

	fmt.Fprintf(cmd.OutOrStdout(), "[scrapers] %s %s finished in %.2fs\n",
		mode, sel.String(), time.Since(started).Seconds())
	return nil
}
