// Package metrics exposes Prometheus collectors for refreshes, draws and
// background writes. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "moherun"

// Refresh results.
const (
	ResultOK     = "ok"
	ResultFailed = "failed"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	persists        *prometheus.CounterVec
	draws           *prometheus.CounterVec
	totalKm         prometheus.Gauge
	activeRunners   prometheus.Gauge
	weeks           prometheus.Gauge
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Dashboard refreshes by result.",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Time spent fetching and scoring the spreadsheet.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "persist_total",
			Help:      "Background writes to the spreadsheet script by kind and outcome.",
		}, []string{"kind", "outcome"}),
		draws: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "draws_total",
			Help:      "Lucky draws performed by kind.",
		}, []string{"kind"}),
		totalKm: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_distance_km",
			Help:      "Team distance including bonuses.",
		}),
		activeRunners: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runners",
			Help:      "Runners with distance in the latest week.",
		}),
		weeks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "weeks_ingested",
			Help:      "Weekly tabs read in the last refresh.",
		}),
	}
	reg.MustRegister(
		m.refreshes, m.refreshDuration, m.persists, m.draws,
		m.totalKm, m.activeRunners, m.weeks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRefresh records one refresh.
func (m *Metrics) ObserveRefresh(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.refreshes.WithLabelValues(result).Inc()
	m.refreshDuration.Observe(d.Seconds())
}

// SetTotals records the headline numbers of the latest snapshot.
func (m *Metrics) SetTotals(totalKm float64, activeRunners, weeks int) {
	if m == nil {
		return
	}
	m.totalKm.Set(totalKm)
	m.activeRunners.Set(float64(activeRunners))
	m.weeks.Set(float64(weeks))
}

// PersistOutcome counts a finished background write.
func (m *Metrics) PersistOutcome(kind string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.persists.WithLabelValues(kind, outcome).Inc()
}

// DrawPerformed counts a fresh draw.
func (m *Metrics) DrawPerformed(kind string) {
	if m == nil {
		return
	}
	m.draws.WithLabelValues(kind).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
