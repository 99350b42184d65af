// Package metrics registers the service's Prometheus instrumentation.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "tanklens_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	syncRuns    *prometheus.CounterVec
	syncLatency *prometheus.HistogramVec
	syncSkips   prometheus.Counter
	syncDevices prometheus.Gauge

	ingestSamples *prometheus.CounterVec
)

// Init registers all collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		syncRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sync_runs_total",
				Help: "Total sync pipeline runs by result",
			},
			[]string{"result"},
		)
		syncLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "sync_latency_seconds",
				Help:    "Sync pipeline latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		syncSkips = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "sync_skipped_ticks_total",
				Help: "Ticks skipped because a previous run was still in flight",
			},
		)
		syncDevices = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "sync_devices_last_run",
				Help: "Devices synced cleanly in the last run",
			},
		)
		ingestSamples = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_samples_total",
				Help: "Raw samples accepted or rejected on the ingest endpoint",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(syncRuns, syncLatency, syncSkips, syncDevices, ingestSamples)
	})
}

// ObserveSyncRun records one pipeline run.
func ObserveSyncRun(elapsed time.Duration, devices int, err error) {
	if syncRuns == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	syncRuns.WithLabelValues(result).Inc()
	syncLatency.WithLabelValues(result).Observe(elapsed.Seconds())
	if err == nil {
		syncDevices.Set(float64(devices))
	}
}

// ObserveSyncSkip records a tick dropped by the non-reentrancy guard.
func ObserveSyncSkip() {
	if syncSkips == nil {
		return
	}
	syncSkips.Inc()
}

// ObserveIngest records one ingest attempt.
func ObserveIngest(err error) {
	if ingestSamples == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	ingestSamples.WithLabelValues(result).Inc()
}
