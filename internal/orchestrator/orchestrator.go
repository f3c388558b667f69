// Package orchestrator ties the registry, scheduler, and queue producer
// together and owns the process-wide scheduling lifecycle.
package orchestrator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/metrics"
	"github.com/civicatlas/scraperd/internal/queue"
	"github.com/civicatlas/scraperd/internal/registry"
	"github.com/civicatlas/scraperd/internal/schedule"
	"github.com/civicatlas/scraperd/internal/scope"
)

// enqueueTimeout bounds a single queue push so a wedged backend cannot stall
// the scheduler goroutine.
const enqueueTimeout = 5 * time.Second

// Orchestrator owns the scheduler handle, the queue producer, and the loaded
// registry. It is constructed once at startup and passed to every trigger;
// there is no package-level mutable state.
type Orchestrator struct {
	registry *registry.Registry
	sched    *schedule.Scheduler
	producer queue.Producer
	logger   *zap.Logger
	now      func() time.Time
}

// New builds an Orchestrator.
func New(reg *registry.Registry, sched *schedule.Scheduler, producer queue.Producer, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		registry: reg,
		sched:    sched,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// ScheduleAll registers a cron trigger for every (enabled scraper, mode)
// pair. Unknown names and malformed cron expressions are logged and skipped;
// one bad entry never prevents the rest from being scheduled. Returns the
// number of triggers registered.
func (o *Orchestrator) ScheduleAll(enabledProd, enabledTest []string) int {
	scheduled := 0
	scheduled += o.scheduleMode(enabledProd, registry.ModeProd)
	scheduled += o.scheduleMode(enabledTest, registry.ModeTest)
	return scheduled
}

func (o *Orchestrator) scheduleMode(names []string, mode registry.Mode) int {
	scheduled := 0
	for _, name := range names {
		if _, ok := o.registry.Lookup(name); !ok {
			o.logger.Error("enabled scraper not in registry, skipping",
				zap.String("scraper", name), zap.String("mode", string(mode)))
			continue
		}
		spec, err := o.registry.ResolveCron(name, mode)
		if err != nil {
			o.logger.Error("cron resolution failed, skipping",
				zap.String("scraper", name), zap.String("mode", string(mode)), zap.Error(err))
			continue
		}
		err = o.sched.Register(name, mode, spec, func() {
			o.EnqueueScraper(name, mode)
		})
		if err != nil {
			o.logger.Error("schedule registration failed, skipping",
				zap.String("scraper", name), zap.String("mode", string(mode)), zap.Error(err))
			continue
		}
		o.logger.Info("scraper scheduled",
			zap.String("scraper", name), zap.String("mode", string(mode)), zap.String("cron", spec))
		scheduled++
	}
	return scheduled
}

// EnqueueScraper builds a job payload for the scraper's full task list and
// pushes it onto the queue. It runs inside scheduler trigger callbacks, so it
// must stay fast: one queue push and a metric update. The enqueue metrics
// move on every attempt so missed ticks stay observable even when the backend
// is down.
func (o *Orchestrator) EnqueueScraper(name string, mode registry.Mode) {
	desc, ok := o.registry.Lookup(name)
	if !ok {
		o.logger.Error("trigger fired for unknown scraper", zap.String("scraper", name))
		return
	}
	o.enqueue(desc, string(mode), desc.Tasks)
}

// Dispatch enqueues a job for every registered scraper the selector covers,
// carrying the caller's run mode. Returns the number of jobs enqueued.
func (o *Orchestrator) Dispatch(sel scope.Selector, mode string) (int, error) {
	dispatched := 0
	for _, name := range o.registry.Names() {
		desc, _ := o.registry.Lookup(name)
		tasks := o.selectTasks(desc, sel)
		if len(tasks) == 0 {
			continue
		}
		if err := o.enqueue(desc, mode, tasks); err != nil {
			return dispatched, err
		}
		dispatched++
	}
	return dispatched, nil
}

// selectTasks returns the subset of the descriptor's tasks the selector
// covers, or nil when the scraper is out of scope entirely. The scope's code
// component is matched against the descriptor's jurisdiction codes.
func (o *Orchestrator) selectTasks(desc registry.Descriptor, sel scope.Selector) []string {
	var tasks []string
	for _, task := range desc.Tasks {
		if sel.MatchesAny(desc.Tier, desc.Codes, task) {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func (o *Orchestrator) enqueue(desc registry.Descriptor, mode string, tasks []string) error {
	now := o.now()
	payload := queue.Payload{
		Scraper:    desc.Name,
		Mode:       mode,
		Tasks:      tasks,
		EnqueuedAt: float64(now.UnixNano()) / 1e9,
	}

	ctx, cancel := context.WithTimeout(context.Background(), enqueueTimeout)
	defer cancel()

	err := o.producer.Enqueue(ctx, payload)
	metrics.ObserveEnqueue(desc.Name, now, err)
	if err != nil {
		// A dropped tick is a missed scrape cycle; surface it loudly.
		o.logger.Error("enqueue failed, schedule tick lost",
			zap.String("scraper", desc.Name), zap.String("mode", mode), zap.Error(err))
		return err
	}
	o.logger.Debug("job enqueued",
		zap.String("scraper", desc.Name), zap.String("mode", mode), zap.Strings("tasks", tasks))
	return nil
}
