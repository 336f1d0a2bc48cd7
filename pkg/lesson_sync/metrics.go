package lesson_sync

import (
	"net/http"

	"github.com/greensquare/lessonsync/internal/event_bus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	FlowDaily   = "daily"
	FlowMonthly = "monthly"
	FlowAll     = "all"

	outcomeOK      = "ok"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

// Metrics holds the sync collectors on a private registry.
type Metrics struct {
	registry     *prometheus.Registry
	handler      http.Handler
	runs         *prometheus.CounterVec
	colorWrites  *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	cacheVersion prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonsync_sync_runs_total",
		Help: "Sync runs by flow and outcome",
	}, []string{"flow", "outcome"})

	colorWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lessonsync_color_writes_total",
		Help: "Evaluation color write-backs by outcome",
	}, []string{"outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lessonsync_sync_duration_seconds",
		Help:    "Duration of sync runs in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})

	cacheVersion := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lessonsync_cache_version",
		Help: "Current daily snapshot cache version",
	})

	registry.MustRegister(runs, colorWrites, duration, cacheVersion)

	return &Metrics{
		registry:     registry,
		handler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		runs:         runs,
		colorWrites:  colorWrites,
		duration:     duration,
		cacheVersion: cacheVersion,
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *Metrics) observeRun(flow, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(flow, outcome).Inc()
	if outcome != outcomeSkipped {
		m.duration.WithLabelValues(flow).Observe(seconds)
	}
}

func (m *Metrics) observeColorWrite(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.colorWrites.WithLabelValues(outcomeFailed).Inc()
		return
	}
	m.colorWrites.WithLabelValues(outcomeOK).Inc()
}

// OnSnapshotChanged tracks the cache version, subscribe it to DailySnapshotChangedType.
func (m *Metrics) OnSnapshotChanged(e event_bus.EventT[event_bus.DailySnapshotChanged]) error {
	if m == nil {
		return nil
	}
	m.cacheVersion.Set(float64(e.Data.Version))
	return nil
}

// SetCacheVersion seeds the gauge at startup.
func (m *Metrics) SetCacheVersion(version int64) {
	if m == nil {
		return
	}
	m.cacheVersion.Set(float64(version))
}
