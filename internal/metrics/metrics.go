// Package metrics exposes Prometheus collectors for the indexing engine.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	engineDiscoveredItemsTotal *prometheus.CounterVec
	engineTasksScheduledTotal  *prometheus.CounterVec
	engineFetchesTotal         *prometheus.CounterVec
	engineExtractionsTotal     *prometheus.CounterVec
	engineItemsStoredTotal     *prometheus.CounterVec
	enginePluginFailuresTotal  *prometheus.CounterVec
	engineStartupSeconds       prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		engineDiscoveredItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_discovered_items_total",
				Help: "Total number of items discovered, labeled by content source.",
			},
			[]string{"source"},
		)

		engineTasksScheduledTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_tasks_scheduled_total",
				Help: "Total number of pipeline tasks scheduled, labeled by kind and execution mode.",
			},
			[]string{"kind", "mode"},
		)

		engineFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_fetches_total",
				Help: "Total number of fetch attempts, labeled by fetcher and status.",
			},
			[]string{"fetcher", "status"},
		)

		engineExtractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_extractions_total",
				Help: "Total number of extraction attempts, labeled by extractor and status.",
			},
			[]string{"extractor", "status"},
		)

		engineItemsStoredTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_items_stored_total",
				Help: "Total number of items written to the data store, labeled by mime type.",
			},
			[]string{"mime_type"},
		)

		enginePluginFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "engine_plugin_failures_total",
				Help: "Total number of isolated plugin failures, labeled by extension point.",
			},
			[]string{"point"},
		)

		engineStartupSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "engine_startup_seconds",
				Help:    "Histogram of full startup sequence durations.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDiscovered adds to the per-source discovery counter.
func ObserveDiscovered(source string, n int) {
	Init()
	if n > 0 {
		engineDiscoveredItemsTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveTaskScheduled increments the scheduled-task counter.
func ObserveTaskScheduled(kind, mode string) {
	Init()
	engineTasksScheduledTotal.WithLabelValues(kind, mode).Inc()
}

// ObserveFetch increments the fetch counter for the given fetcher and status.
func ObserveFetch(fetcher, status string) {
	Init()
	engineFetchesTotal.WithLabelValues(fetcher, status).Inc()
}

// ObserveExtract increments the extraction counter for the given extractor and status.
func ObserveExtract(extractor, status string) {
	Init()
	engineExtractionsTotal.WithLabelValues(extractor, status).Inc()
}

// ObserveStored increments the stored-item counter for the given mime type.
func ObserveStored(mimeType string) {
	Init()
	if mimeType == "" {
		mimeType = "unknown"
	}
	engineItemsStoredTotal.WithLabelValues(mimeType).Inc()
}

// ObservePluginFailure increments the isolated-failure counter for an extension point.
func ObservePluginFailure(point string) {
	Init()
	enginePluginFailuresTotal.WithLabelValues(point).Inc()
}

// ObserveStartup records the duration of a startup sequence.
func ObserveStartup(d time.Duration) {
	Init()
	engineStartupSeconds.Observe(d.Seconds())
}
