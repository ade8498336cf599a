package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder collects draw metrics. A nil *Recorder is valid and records nothing,
// which keeps the CLI and tests free of a registry.
type Recorder struct {
	registry      *prometheus.Registry
	transitions   *prometheus.CounterVec
	assignments   *prometheus.CounterVec
	filled        prometheus.Gauge
	notifications *prometheus.CounterVec
}

func New() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: registry,
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "championship_draw",
			Name:      "status_transitions_total",
			Help:      "Draw status transitions by target status.",
		}, []string{"to"}),
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "championship_draw",
			Name:      "assignments_total",
			Help:      "Club assignment attempts by outcome.",
		}, []string{"outcome"}),
		filled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "championship_draw",
			Name:      "filled_positions",
			Help:      "Positions holding a club in the current draw.",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "championship_draw",
			Name:      "view_notifications_total",
			Help:      "Change notifications delivered to views by source.",
		}, []string{"source"}),
	}
	registry.MustRegister(r.transitions, r.assignments, r.filled, r.notifications)
	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) Transition(to string) {
	if r == nil {
		return
	}
	r.transitions.WithLabelValues(to).Inc()
}

func (r *Recorder) Assignment(outcome string, filled int) {
	if r == nil {
		return
	}
	r.assignments.WithLabelValues(outcome).Inc()
	if outcome == OutcomeAssigned {
		r.filled.Set(float64(filled))
	}
}

func (r *Recorder) Filled(filled int) {
	if r == nil {
		return
	}
	r.filled.Set(float64(filled))
}

func (r *Recorder) Notification(source string) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues(source).Inc()
}

// Assignment outcomes
const (
	OutcomeAssigned  = "assigned"
	OutcomeExhausted = "exhausted"
	OutcomeRejected  = "rejected"
)
