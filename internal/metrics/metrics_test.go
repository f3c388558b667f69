package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if jobsEnqueuedTotal == nil || itemsProcessedTotal == nil ||
		runDurationSeconds == nil || httpRequestsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveEnqueue(t *testing.T) {
	Init()

	now := time.Unix(1700000000, 0)
	ObserveEnqueue("federal_parliament", now, nil)

	if got := testutil.ToFloat64(jobsEnqueuedTotal.WithLabelValues("federal_parliament")); got != 1 {
		t.Errorf("jobs_enqueued_total = %f; want 1", got)
	}
	if got := testutil.ToFloat64(lastEnqueueTimestamp.WithLabelValues("federal_parliament")); got != 1700000000 {
		t.Errorf("last_enqueue_timestamp = %f; want 1700000000", got)
	}
	if got := testutil.ToFloat64(enqueueFailuresTotal.WithLabelValues("federal_parliament")); got != 0 {
		t.Errorf("enqueue_failures_total = %f; want 0", got)
	}

	// A failed attempt still moves the counter and gauge.
	later := now.Add(time.Hour)
	ObserveEnqueue("federal_parliament", later, errors.New("redis down"))

	if got := testutil.ToFloat64(jobsEnqueuedTotal.WithLabelValues("federal_parliament")); got != 2 {
		t.Errorf("jobs_enqueued_total after failure = %f; want 2", got)
	}
	if got := testutil.ToFloat64(enqueueFailuresTotal.WithLabelValues("federal_parliament")); got != 1 {
		t.Errorf("enqueue_failures_total = %f; want 1", got)
	}
	if got := testutil.ToFloat64(lastEnqueueTimestamp.WithLabelValues("federal_parliament")); got != float64(later.Unix()) {
		t.Errorf("last_enqueue_timestamp = %f; want %d", got, later.Unix())
	}
}

func TestObserveItem(t *testing.T) {
	Init()

	ObserveItem("municipal_councils", "motions", true)
	ObserveItem("municipal_councils", "motions", false)

	if got := testutil.ToFloat64(itemsProcessedTotal.WithLabelValues("municipal_councils", "motions")); got != 2 {
		t.Errorf("items_processed_total = %f; want 2", got)
	}
	if got := testutil.ToFloat64(itemsChangedTotal.WithLabelValues("municipal_councils", "motions")); got != 1 {
		t.Errorf("items_changed_total = %f; want 1", got)
	}
}

func TestActiveWorkersGauge(t *testing.T) {
	Init()

	before := testutil.ToFloat64(activeWorkers)
	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	if got := testutil.ToFloat64(activeWorkers); got != before+1 {
		t.Errorf("active_workers = %f; want %f", got, before+1)
	}
	DecActiveWorkers()
}
