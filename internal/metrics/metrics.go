// Package metrics exposes Prometheus counters for agent connections and
// run outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const Namespace = "cavy"

// Metrics groups the collectors registered by the coordinator. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	connections   prometheus.Counter
	notifications prometheus.Counter
	results       *prometheus.CounterVec
	runs          *prometheus.CounterVec
	timeouts      prometheus.Counter
	dropped       prometheus.Counter
}

// New registers the coordinator collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "agent_connections_total",
			Help:      "Count of agent websocket connections accepted",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keepalive_notifications_total",
			Help:      "Count of keep-alive notifications received",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "test_results_total",
			Help:      "Count of individual test results reported",
		}, []string{"result"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Count of completed test runs",
		}, []string{"result"}),
		timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keepalive_timeouts_total",
			Help:      "Count of keep-alive deadlines that expired",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "dropped_messages_total",
			Help:      "Count of inbound messages ignored as malformed or unknown",
		}),
	}
	reg.MustRegister(m.connections, m.notifications, m.results, m.runs, m.timeouts, m.dropped)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordConnection() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

func (m *Metrics) RecordNotification() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}

func (m *Metrics) RecordResult(passed bool) {
	if m == nil {
		return
	}
	m.results.WithLabelValues(resultLabel(passed)).Inc()
}

func (m *Metrics) RecordRun(passed bool) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(resultLabel(passed)).Inc()
}

func (m *Metrics) RecordTimeout() {
	if m == nil {
		return
	}
	m.timeouts.Inc()
}

func (m *Metrics) RecordDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

func resultLabel(passed bool) string {
	if passed {
		return "pass"
	}
	return "fail"
}
