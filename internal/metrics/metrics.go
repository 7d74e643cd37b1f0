// Package metrics exposes Prometheus counters for call handling.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks call session activity. Each instance owns its own
// registry so tests can create isolated copies.
type Metrics struct {
	registry *prometheus.Registry

	// ActiveSessions is the number of sessions currently live.
	ActiveSessions prometheus.Gauge

	// SessionsTotal counts finished sessions by termination reason.
	SessionsTotal *prometheus.CounterVec

	// CallsAnswered counts calls that were successfully answered.
	CallsAnswered prometheus.Counter

	// WebhookEvents counts inbound webhook events by type.
	WebhookEvents *prometheus.CounterVec
}

// New creates and registers the voicebridge metric set.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicebridge_active_sessions",
			Help: "Current number of live call sessions",
		}),

		SessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_sessions_total",
			Help: "Total finished call sessions by termination reason",
		}, []string{"reason"}),

		CallsAnswered: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicebridge_calls_answered_total",
			Help: "Total calls answered on the signaling channel",
		}),

		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicebridge_webhook_events_total",
			Help: "Total webhook events received by type",
		}, []string{"type"}),
	}
}

// Handler returns the HTTP handler serving this metric set.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
