// Package metrics exposes the Prometheus instrumentation for the command
// and event pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors registered by New.
type Metrics struct {
	Commands            *prometheus.CounterVec
	Events              *prometheus.CounterVec
	TransitionsInFlight prometheus.Gauge
	Nodes               prometheus.Gauge
	Viewports           prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "commands_total",
			Help:      "Commands dispatched, partitioned by type and outcome.",
		}, []string{"type", "outcome"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "strata",
			Name:      "events_total",
			Help:      "Events published on the stream, partitioned by type.",
		}, []string{"type"}),
		TransitionsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "strata",
			Name:      "transitions_in_flight",
			Help:      "Viewports currently animating a transition.",
		}),
		Nodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "strata",
			Name:      "graph_nodes",
			Help:      "Nodes in the spatial graph, root included.",
		}),
		Viewports: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "strata",
			Name:      "viewports",
			Help:      "Active viewports.",
		}),
	}
	reg.MustRegister(m.Commands, m.Events, m.TransitionsInFlight, m.Nodes, m.Viewports)
	return m
}
