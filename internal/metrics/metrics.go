// Package metrics holds the Prometheus collectors of the spatial engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ryot"

// Pathfinding outcomes.
const (
	OutcomeFound     = "found"
	OutcomeNotFound  = "not_found"
	OutcomeCancelled = "cancelled"
	OutcomePanicked  = "panicked"
	OutcomeRejected  = "rejected"
)

// Metrics groups the engine collectors.
type Metrics struct {
	pathfindRequests *prometheus.CounterVec
	pathfindDuration prometheus.Histogram
	cacheLookups     *prometheus.CounterVec
	casters          prometheus.Gauge
	flagEntries      prometheus.Gauge
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		pathfindRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pathfind_requests_total",
			Help:      "Completed path requests by outcome.",
		}, []string{"outcome"}),
		pathfindDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pathfind_duration_seconds",
			Help:      "Wall time spent in a single A* search.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "raycast_cache_lookups_total",
			Help:      "Intersection cache lookups by result.",
		}, []string{"result"}),
		casters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "raycast_casters",
			Help:      "Casters processed in the last tick.",
		}),
		flagEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flag_cache_entries",
			Help:      "Positions with a non-default navigability entry.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.pathfindRequests,
		m.pathfindDuration,
		m.cacheLookups,
		m.casters,
		m.flagEntries,
	}
}

// PathfindDone records one finished path request.
func (m *Metrics) PathfindDone(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.pathfindRequests.WithLabelValues(outcome).Inc()
	if took > 0 {
		m.pathfindDuration.Observe(took.Seconds())
	}
}

// CacheLookup records an intersection cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// SetCasters sets the processed-casters gauge.
func (m *Metrics) SetCasters(n int) {
	if m == nil {
		return
	}
	m.casters.Set(float64(n))
}

// SetFlagEntries sets the flag cache size gauge.
func (m *Metrics) SetFlagEntries(n int) {
	if m == nil {
		return
	}
	m.flagEntries.Set(float64(n))
}

// Handler serves the collectors gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
