// Package metrics holds the Prometheus collectors of the signaling server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "huddle"

type Metrics struct {
	Connections   prometheus.Gauge
	Authenticated prometheus.Gauge
	RoomActive    prometheus.Gauge
	RoomMembers   prometheus.Gauge
	Intents       *prometheus.CounterVec
	Signals       *prometheus.CounterVec
	AuthLatency   prometheus.Histogram

	gatherer prometheus.Gatherer
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections",
			Help: "Live signaling connections.",
		}),
		Authenticated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "connections_authenticated",
			Help: "Live signaling connections with a verified identity.",
		}),
		RoomActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "room_active",
			Help: "1 while a room is open.",
		}),
		RoomMembers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "room_members",
			Help: "Members of the open room.",
		}),
		Intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "intents_total",
			Help: "Client intents by type and result code.",
		}, []string{"intent", "result"}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "signals_total",
			Help: "Relayed negotiation messages by kind and outcome.",
		}, []string{"kind", "outcome"}),
		AuthLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "auth_duration_seconds",
			Help:    "Identity verification latency.",
			Buckets: prometheus.DefBuckets,
		}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.Connections, m.Authenticated, m.RoomActive, m.RoomMembers,
		m.Intents, m.Signals, m.AuthLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes Prometheus metrics at /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Intent(intent, result string) {
	if m == nil {
		return
	}
	m.Intents.WithLabelValues(intent, result).Inc()
}

func (m *Metrics) Signal(kind, outcome string) {
	if m == nil {
		return
	}
	m.Signals.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveAuth(seconds float64) {
	if m == nil {
		return
	}
	m.AuthLatency.Observe(seconds)
}

func (m *Metrics) SetConnections(total, authenticated int) {
	if m == nil {
		return
	}
	m.Connections.Set(float64(total))
	m.Authenticated.Set(float64(authenticated))
}

func (m *Metrics) SetRoom(members int) {
	if m == nil {
		return
	}
	if members > 0 {
		m.RoomActive.Set(1)
	} else {
		m.RoomActive.Set(0)
	}
	m.RoomMembers.Set(float64(members))
}
