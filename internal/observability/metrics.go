// Package observability holds the Prometheus metrics of the ranking engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "matchboard"

const engineSubsystem = "engine"

// Metrics holds the counters and histograms updated by the engine, the aux
// set managers and the HTTP server. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// ComputesTotal counts visible list computations.
	// Labels: surface, mode
	ComputesTotal *prometheus.CounterVec

	// ComputeDurationSeconds measures one computation.
	// Labels: surface
	ComputeDurationSeconds *prometheus.HistogramVec

	// VisibleItems is the size of computed visible lists.
	// Labels: surface, mode
	VisibleItems *prometheus.HistogramVec

	// DroppedTotal counts entities removed by each filter step.
	// Labels: surface, step
	DroppedTotal *prometheus.CounterVec

	// TogglesTotal counts auxiliary set toggles.
	// Labels: set, result (added, removed, error)
	TogglesTotal *prometheus.CounterVec

	// RequestsTotal counts HTTP requests.
	// Labels: route, status
	RequestsTotal *prometheus.CounterVec
}

// Toggle results.
const (
	ToggleAdded   = "added"
	ToggleRemoved = "removed"
	ToggleError   = "error"
)

// New creates the metrics and registers them with reg. A nil reg uses the
// default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		ComputesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "computes_total",
				Help:      "Total number of visible list computations by surface and mode",
			},
			[]string{"surface", "mode"},
		),

		ComputeDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "compute_duration_seconds",
				Help:      "Duration of a visible list computation in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"surface"},
		),

		VisibleItems: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "visible_items",
				Help:      "Number of entities in computed visible lists",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
			},
			[]string{"surface", "mode"},
		),

		DroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: engineSubsystem,
				Name:      "dropped_total",
				Help:      "Total entities removed by filter step",
			},
			[]string{"surface", "step"},
		),

		TogglesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "auxset",
				Name:      "toggles_total",
				Help:      "Total auxiliary set toggles by set and result",
			},
			[]string{"set", "result"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total HTTP requests by route and status",
			},
			[]string{"route", "status"},
		),
	}
}

// ObserveCompute records one computation.
func (m *Metrics) ObserveCompute(surface, mode string, visible int, took time.Duration) {
	if m == nil {
		return
	}
	m.ComputesTotal.WithLabelValues(surface, mode).Inc()
	m.ComputeDurationSeconds.WithLabelValues(surface).Observe(took.Seconds())
	m.VisibleItems.WithLabelValues(surface, mode).Observe(float64(visible))
}

// ObserveDropped records how many entities a filter step removed.
func (m *Metrics) ObserveDropped(surface, step string, dropped int) {
	if m == nil || dropped <= 0 {
		return
	}
	m.DroppedTotal.WithLabelValues(surface, step).Add(float64(dropped))
}

func (m *Metrics) ObserveToggle(set, result string) {
	if m == nil {
		return
	}
	m.TogglesTotal.WithLabelValues(set, result).Inc()
}

func (m *Metrics) ObserveRequest(route, status string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(route, status).Inc()
}
