// Package metrics exposes the registry's throughput as Prometheus
// collectors, grounded in the teacher's internal/gateway
// metrics_prometheus.go (this module standardizes on that real dependency
// rather than the teacher's stdlib-expvar fallback in internal/metrics).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every collector the supervision engine reports through.
// Constructed once at startup and threaded into the pieces that observe
// ingress, alarm state, and streaming fan-out.
type Registry struct {
	MessagesTotal     *prometheus.CounterVec
	AlarmsActive      prometheus.Gauge
	ReportsEmitted    *prometheus.CounterVec
	StreamingSessions prometheus.Gauge
}

// New creates and registers every collector against reg. Pass
// prometheus.NewRegistry() for an isolated registry (tests), or
// prometheus.DefaultRegisterer for production wiring via promhttp.Handler().
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqguard_messages_total",
			Help: "Total ingress messages observed, labeled by broker and topic.",
		}, []string{"broker", "topic"}),
		AlarmsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqguard_alarms_active",
			Help: "Count of AlarmTrack entries currently active, across all devices.",
		}),
		ReportsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mqguard_reports_emitted_total",
			Help: "Total DeviceReports emitted, labeled by device.",
		}, []string{"device"}),
		StreamingSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mqguard_streaming_sessions",
			Help: "Live streaming reporter session count.",
		}),
	}
	reg.MustRegister(m.MessagesTotal, m.AlarmsActive, m.ReportsEmitted, m.StreamingSessions)
	return m
}

// ObserveMessage records one ingress message for (broker, topic).
func (m *Registry) ObserveMessage(broker, topic string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(broker, topic).Inc()
}

// ObserveReport records one emitted report for device and adjusts the
// active-alarm gauge by activeDelta.
func (m *Registry) ObserveReport(device string, activeDelta int) {
	if m == nil {
		return
	}
	m.ReportsEmitted.WithLabelValues(device).Inc()
	m.AlarmsActive.Add(float64(activeDelta))
}

// SetStreamingSessions sets the current live session count for a streaming
// reporter. Called after every accept and every session close.
func (m *Registry) SetStreamingSessions(count int) {
	if m == nil {
		return
	}
	m.StreamingSessions.Set(float64(count))
}
