// Package worker implements the scrape job consumption loop.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/metrics"
	"github.com/civicatlas/scraperd/internal/queue"
	"github.com/civicatlas/scraperd/internal/registry"
	"github.com/civicatlas/scraperd/internal/scrape"
	"github.com/civicatlas/scraperd/internal/store"
)

// EntityStore persists scraped entities with change detection.
type EntityStore interface {
	UpsertEntity(ctx context.Context, entity store.ScrapedEntity) (changed, created bool, digest string, err error)
}

// Journal records run outcomes.
type Journal interface {
	StartRun(ctx context.Context, scraper, mode string) (uuid.UUID, error)
	FinishRun(ctx context.Context, runID uuid.UUID, status store.RunStatus, created, updated, errorsCount int) error
}

// Worker consumes queue payloads and executes the scrape-and-store pipeline.
// Multiple workers may run in parallel across processes; the store's
// per-natural-key upsert atomicity keeps concurrent overlapping jobs safe.
type Worker struct {
	consumer queue.Consumer
	registry *registry.Registry
	runners  *scrape.Runners
	entities EntityStore
	journal  Journal
	logger   *zap.Logger
	now      func() time.Time
}

// New constructs a Worker.
func New(
	consumer queue.Consumer,
	reg *registry.Registry,
	runners *scrape.Runners,
	entities EntityStore,
	journal Journal,
	logger *zap.Logger,
) *Worker {
	return &Worker{
		consumer: consumer,
		registry: reg,
		runners:  runners,
		entities: entities,
		journal:  journal,
		logger:   logger,
		now:      time.Now,
	}
}

// Run blocks, consuming payloads until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		payload, err := w.consumer.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		w.processJob(ctx, payload)
	}
}

// counters accumulates per-run journal numbers.
type counters struct {
	created int
	updated int
	errors  int
}

func (w *Worker) processJob(ctx context.Context, payload queue.Payload) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	started := w.now()
	logger := w.logger.With(
		zap.String("scraper", payload.Scraper),
		zap.String("mode", payload.Mode),
	)

	runID, err := w.journal.StartRun(ctx, payload.Scraper, payload.Mode)
	if err != nil {
		logger.Error("journal start failed, dropping job", zap.Error(err))
		return
	}
	logger = logger.With(zap.String("run_id", runID.String()))

	var c counters
	if err := w.runTasks(ctx, payload, logger, &c); err != nil {
		c.errors++
		metrics.ObserveRunError(payload.Scraper)
		logger.Error("run aborted", zap.Error(err))
	}

	status := store.RunSucceeded
	if c.errors > 0 {
		status = store.RunFailed
	}
	if err := w.journal.FinishRun(ctx, runID, status, c.created, c.updated, c.errors); err != nil {
		logger.Error("journal finish failed", zap.Error(err))
	}

	duration := w.now().Sub(started)
	metrics.ObserveRun(payload.Scraper, payload.Mode, duration)
	logger.Info("run finished",
		zap.String("status", string(status)),
		zap.Int("created", c.created),
		zap.Int("updated", c.updated),
		zap.Int("errors", c.errors),
		zap.Duration("duration", duration),
	)
}

func (w *Worker) runTasks(ctx context.Context, payload queue.Payload, logger *zap.Logger, c *counters) error {
	desc, ok := w.registry.Lookup(payload.Scraper)
	if !ok {
		return fmt.Errorf("payload names unknown scraper %q", payload.Scraper)
	}
	if len(payload.Tasks) == 0 {
		return fmt.Errorf("payload carries no tasks")
	}
	for _, task := range payload.Tasks {
		if !desc.HasTask(task) {
			return fmt.Errorf("task %q not declared by scraper %q", task, payload.Scraper)
		}
	}

	runner, err := w.runners.Resolve(payload.Scraper)
	if err != nil {
		return err
	}

	for _, task := range payload.Tasks {
		entities, err := runner.Run(ctx, task)
		if err != nil {
			c.errors++
			metrics.ObserveRunError(payload.Scraper)
			logger.Error("task failed", zap.String("task", task), zap.Error(err))
			continue
		}
		w.storeEntities(ctx, payload.Scraper, task, entities, logger, c)
	}
	return nil
}

func (w *Worker) storeEntities(
	ctx context.Context,
	scraper, task string,
	entities []store.ScrapedEntity,
	logger *zap.Logger,
	c *counters,
) {
	for _, entity := range entities {
		changed, created, _, err := w.entities.UpsertEntity(ctx, entity)
		if err != nil {
			c.errors++
			metrics.ObserveRunError(scraper)
			logger.Error("entity upsert failed",
				zap.String("task", task),
				zap.String("external_id", entity.ExternalID),
				zap.Error(err),
			)
			continue
		}
		metrics.ObserveItem(scraper, entity.EntityType, changed)
		switch {
		case created:
			c.created++
		case changed:
			c.updated++
		}
	}
}
