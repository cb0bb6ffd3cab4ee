package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the counters exposed on /metrics.
type Metrics struct {
	connections *prometheus.CounterVec
	active      prometheus.Gauge
	messages    *prometheus.CounterVec
	statuses    *prometheus.CounterVec
	commits     *prometheus.CounterVec
	ignored     prometheus.Counter
	fatal       prometheus.Counter
}

// NewMetrics registers the service metrics with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		connections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "connections_total",
				Help:      "Websocket connections by outcome",
			},
			[]string{"outcome"},
		),
		active: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_connections",
				Help:      "Open websocket connections",
			},
		),
		messages: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Inbound messages by type",
			},
			[]string{"type"},
		),
		statuses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "disambiguations_total",
				Help:      "Disambiguation attempts by status",
			},
			[]string{"status"},
		),
		commits: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commits_total",
				Help:      "Continuation commits by trigger",
			},
			[]string{"trigger"},
		),
		ignored: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ignored_utterances_total",
				Help:      "Utterances dropped while the microphone was gated",
			},
		),
		fatal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fatal_errors_total",
				Help:      "Engine errors that closed a connection",
			},
		),
	}
}
