package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They always record; Register
// exposes them on a registry.
var (
	sessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riftterm",
			Subsystem: "session",
			Name:      "started_total",
			Help:      "Number of simulation sessions started.",
		}, []string{"mode"},
	)
	sessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "riftterm",
			Subsystem: "session",
			Name:      "active",
			Help:      "Sessions currently running.",
		}, []string{"mode"},
	)
	sessionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "riftterm",
			Subsystem: "session",
			Name:      "duration_seconds",
			Help:      "Wall time from session start to stop.",
			Buckets:   []float64{1, 5, 15, 30, 45, 60, 90, 120},
		}, []string{"mode", "outcome"},
	)
	linesEmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riftterm",
			Subsystem: "terminal",
			Name:      "lines_emitted_total",
			Help:      "Lines appended to display buffers.",
		}, []string{"mode", "kind"},
	)
	detections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riftterm",
			Subsystem: "terminal",
			Name:      "detections_total",
			Help:      "Synthetic transactions classified as RIFT tagged.",
		},
	)
	phaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riftterm",
			Subsystem: "terminal",
			Name:      "phase_transitions_total",
			Help:      "Phase transitions by target phase.",
		}, []string{"from", "to"},
	)
)

// Register registers all metrics with the provided registerer. Calling it
// again with the same registerer is a no-op; each distinct registerer gets
// the same collectors.
func Register(r prometheus.Registerer) error {
	cs := []prometheus.Collector{sessionsStarted, sessionsActive, sessionDuration, linesEmitted, detections, phaseTransitions}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Handler serves the metrics gathered by g, or the default gatherer when g is nil.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func SessionStarted(mode string) {
	sessionsStarted.WithLabelValues(mode).Inc()
	sessionsActive.WithLabelValues(mode).Inc()
}

func SessionEnded(mode, outcome string, d time.Duration) {
	sessionsActive.WithLabelValues(mode).Dec()
	sessionDuration.WithLabelValues(mode, outcome).Observe(d.Seconds())
}

func LineEmitted(mode, kind string) {
	linesEmitted.WithLabelValues(mode, kind).Inc()
}

func Detection() {
	detections.Inc()
}

func PhaseTransition(from, to string) {
	phaseTransitions.WithLabelValues(from, to).Inc()
}
