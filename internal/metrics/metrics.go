package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketdata"

// Metrics holds the SDK's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ReconnectLoops        prometheus.Counter
	ReconnectAttempts     *prometheus.CounterVec
	ReplayedSubscriptions prometheus.Counter
	ReplayFailures        prometheus.Counter
	PagesFetched          *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReconnectLoops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnect_loops_total",
			Help:      "Reconnection loops started after an unexpected socket close.",
		}),
		ReconnectAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnect_attempts_total",
			Help:      "Reconnection attempts by authentication result.",
		}, []string{"result"}),
		ReplayedSubscriptions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "replayed_subscriptions_total",
			Help:      "Subscriptions re-issued after a successful reconnection.",
		}),
		ReplayFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "replay_failures_total",
			Help:      "Subscriptions that failed to re-issue after a reconnection.",
		}),
		PagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rest",
			Name:      "pages_fetched_total",
			Help:      "Pages fetched from paginated REST endpoints.",
		}, []string{"endpoint"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ReconnectLoops,
			m.ReconnectAttempts,
			m.ReplayedSubscriptions,
			m.ReplayFailures,
			m.PagesFetched,
		)
	}
	return m
}

// NewRegistry returns a registry preloaded with the Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

// Handler serves the metrics in reg.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) IncReconnectLoop() {
	if m == nil {
		return
	}
	m.ReconnectLoops.Inc()
}

// ObserveAttempt records one reconnection attempt with its result label,
// e.g. "authorized", "unauthorized" or "error".
func (m *Metrics) ObserveAttempt(result string) {
	if m == nil {
		return
	}
	m.ReconnectAttempts.WithLabelValues(result).Inc()
}

func (m *Metrics) IncReplayed() {
	if m == nil {
		return
	}
	m.ReplayedSubscriptions.Inc()
}

func (m *Metrics) IncReplayFailure() {
	if m == nil {
		return
	}
	m.ReplayFailures.Inc()
}

func (m *Metrics) IncPage(endpoint string) {
	if m == nil {
		return
	}
	m.PagesFetched.WithLabelValues(endpoint).Inc()
}
