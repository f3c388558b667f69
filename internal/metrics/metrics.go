// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	jobsEnqueuedTotal          *prometheus.CounterVec
	enqueueFailuresTotal       *prometheus.CounterVec
	lastEnqueueTimestamp       *prometheus.GaugeVec
	itemsProcessedTotal        *prometheus.CounterVec
	itemsChangedTotal          *prometheus.CounterVec
	runDurationSeconds         *prometheus.HistogramVec
	runErrorsTotal             *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		jobsEnqueuedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraperd_jobs_enqueued_total",
				Help: "Total scrape jobs pushed onto the queue, labeled by scraper.",
			},
			[]string{"scraper"},
		)

		enqueueFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraperd_enqueue_failures_total",
				Help: "Total enqueue attempts that could not reach the queue backend.",
			},
			[]string{"scraper"},
		)

		lastEnqueueTimestamp = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "scraperd_last_enqueue_timestamp_seconds",
				Help: "Unix time of the most recent enqueue attempt, labeled by scraper.",
			},
			[]string{"scraper"},
		)

		itemsProcessedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraperd_items_processed_total",
				Help: "Total scraped entities processed, labeled by scraper and entity type.",
			},
			[]string{"scraper", "entity_type"},
		)

		itemsChangedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraperd_items_changed_total",
				Help: "Total scraped entities whose content hash changed, labeled by scraper and entity type.",
			},
			[]string{"scraper", "entity_type"},
		)

		runDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scraperd_run_duration_seconds",
				Help:    "Histogram of scrape run durations, labeled by scraper and mode.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"scraper", "mode"},
		)

		runErrorsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraperd_run_errors_total",
				Help: "Total errors recorded against scrape runs, labeled by scraper.",
			},
			[]string{"scraper"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "scraperd_active_workers",
				Help: "Number of workers currently processing a job.",
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveEnqueue records an enqueue attempt. The counter and timestamp gauge
// move on every attempt, success or failure, so a schedule tick that reached
// this code path is always observable.
func ObserveEnqueue(scraper string, at time.Time, err error) {
	jobsEnqueuedTotal.WithLabelValues(scraper).Inc()
	lastEnqueueTimestamp.WithLabelValues(scraper).Set(float64(at.Unix()))
	if err != nil {
		enqueueFailuresTotal.WithLabelValues(scraper).Inc()
	}
}

// ObserveItem records one processed entity and whether its content changed.
func ObserveItem(scraper, entityType string, changed bool) {
	itemsProcessedTotal.WithLabelValues(scraper, entityType).Inc()
	if changed {
		itemsChangedTotal.WithLabelValues(scraper, entityType).Inc()
	}
}

// ObserveRun records the duration of a completed scrape run.
func ObserveRun(scraper, mode string, duration time.Duration) {
	runDurationSeconds.WithLabelValues(scraper, mode).Observe(duration.Seconds())
}

// ObserveRunError counts an error surfaced during a scrape run.
func ObserveRunError(scraper string) {
	runErrorsTotal.WithLabelValues(scraper).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	activeWorkers.Dec()
}
