package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/civicatlas/scraperd/internal/metrics"
	"github.com/civicatlas/scraperd/internal/queue"
	"github.com/civicatlas/scraperd/internal/registry"
	"github.com/civicatlas/scraperd/internal/schedule"
	"github.com/civicatlas/scraperd/internal/scope"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.From([]registry.Descriptor{
		{Name: "federal_parliament", Tier: "federal", Codes: []string{"ca"},
			Tasks: []string{"bills", "mps", "votes"}, ProdCron: "0 2 * * *", TestCron: "0 * * * *"},
		{Name: "municipal_councils", Tier: "municipal", Codes: []string{"toronto", "ottawa"},
			Tasks: []string{"councillors", "meetings"}, ProdCron: "0 3 * * *", TestCron: "30 * * * *"},
	})
	require.NoError(t, err)
	return reg
}

type failingProducer struct{}

func (failingProducer) Enqueue(context.Context, queue.Payload) error {
	return &queue.UnavailableError{Op: "enqueue", Err: errors.New("connection refused")}
}

func TestScheduleAllRegistersEnabledPairs(t *testing.T) {
	metrics.Init()
	sched := schedule.New(zap.NewNop())
	q := queue.NewMemoryQueue(8)
	defer q.Close()

	o := New(testRegistry(t), sched, q, zap.NewNop())
	n := o.ScheduleAll([]string{"federal_parliament"}, []string{"federal_parliament", "municipal_councils"})
	require.Equal(t, 3, n)
	require.True(t, sched.Registered("federal_parliament", registry.ModeProd))
	require.True(t, sched.Registered("federal_parliament", registry.ModeTest))
	require.True(t, sched.Registered("municipal_councils", registry.ModeTest))
}

func TestScheduleAllIsolatesPerEntryFailures(t *testing.T) {
	metrics.Init()
	t.Setenv("MUNICIPAL_COUNCILS_TEST_CRON", "definitely not cron")

	sched := schedule.New(zap.NewNop())
	q := queue.NewMemoryQueue(8)
	defer q.Close()

	o := New(testRegistry(t), sched, q, zap.NewNop())
	n := o.ScheduleAll(nil, []string{"no_such_scraper", "municipal_councils", "federal_parliament"})

	// The unknown name and the bad cron are skipped; the good entry survives.
	require.Equal(t, 1, n)
	require.True(t, sched.Registered("federal_parliament", registry.ModeTest))
	require.False(t, sched.Registered("municipal_councils", registry.ModeTest))
}

func TestEnqueueScraperProducesOnePayloadPerFire(t *testing.T) {
	metrics.Init()
	sched := schedule.New(zap.NewNop())
	q := queue.NewMemoryQueue(8)
	defer q.Close()

	o := New(testRegistry(t), sched, q, zap.NewNop())
	o.now = func() time.Time { return time.Unix(1700000000, 0) }

	before := enqueuedTotal(t, "federal_parliament")
	o.EnqueueScraper("federal_parliament", registry.ModeTest)

	require.Equal(t, 1, q.Len())
	payload, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "federal_parliament", payload.Scraper)
	require.Equal(t, "test", payload.Mode)
	require.Equal(t, []string{"bills", "mps", "votes"}, payload.Tasks)
	require.InDelta(t, 1700000000, payload.EnqueuedAt, 0.001)

	after := enqueuedTotal(t, "federal_parliament")
	require.Equal(t, before+1, after)
}

func TestEnqueueScraperRecordsFailedAttempt(t *testing.T) {
	metrics.Init()
	sched := schedule.New(zap.NewNop())

	o := New(testRegistry(t), sched, failingProducer{}, zap.NewNop())

	before := enqueuedTotal(t, "municipal_councils")
	o.EnqueueScraper("municipal_councils", registry.ModeProd)
	after := enqueuedTotal(t, "municipal_councils")

	// The attempt is still counted, making the missed tick observable.
	require.Equal(t, before+1, after)
}

func TestDispatchFiltersByScope(t *testing.T) {
	metrics.Init()
	sched := schedule.New(zap.NewNop())
	q := queue.NewMemoryQueue(8)
	defer q.Close()

	o := New(testRegistry(t), sched, q, zap.NewNop())

	sel, err := scope.Parse("federal:*:bills")
	require.NoError(t, err)

	n, err := o.Dispatch(sel, "daily")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	payload, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "federal_parliament", payload.Scraper)
	require.Equal(t, "daily", payload.Mode)
	require.Equal(t, []string{"bills"}, payload.Tasks)
}

func TestDispatchMatchesJurisdictionCode(t *testing.T) {
	metrics.Init()
	sched := schedule.New(zap.NewNop())
	q := queue.NewMemoryQueue(8)
	defer q.Close()

	o := New(testRegistry(t), sched, q, zap.NewNop())

	// A concrete code dispatches the scraper covering that jurisdiction.
	sel, err := scope.Parse("municipal:toronto:*")
	require.NoError(t, err)
	n, err := o.Dispatch(sel, "daily")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	payload, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	require.Equal(t, "municipal_councils", payload.Scraper)
	require.Equal(t, []string{"councillors", "meetings"}, payload.Tasks)

	// A code no descriptor covers dispatches nothing.
	sel, err = scope.Parse("municipal:saskatoon:*")
	require.NoError(t, err)
	n, err = o.Dispatch(sel, "daily")
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestDispatchWildcardCoversAllScrapers(t *testing.T) {
	metrics.Init()
	sched := schedule.New(zap.NewNop())
	q := queue.NewMemoryQueue(8)
	defer q.Close()

	o := New(testRegistry(t), sched, q, zap.NewNop())

	sel, err := scope.Parse("*")
	require.NoError(t, err)

	n, err := o.Dispatch(sel, "bootstrap")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

// enqueuedTotal reads scraperd_jobs_enqueued_total for one scraper from the
// default registry.
func enqueuedTotal(t *testing.T, scraper string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "scraperd_jobs_enqueued_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			for _, label := range metric.GetLabel() {
				if label.GetName() == "scraper" && label.GetValue() == scraper {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
