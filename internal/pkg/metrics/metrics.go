package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of the auth bridge on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Flows       *prometheus.CounterVec
	AvatarProxy *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Flows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiktok_bridge_flows_total",
			Help: "Auth flows by name and outcome (ok or the failure kind).",
		}, []string{"flow", "outcome"}),
		AvatarProxy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tiktok_bridge_avatar_proxy_total",
			Help: "Avatar proxy requests by upstream status class.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		m.Flows,
		m.AvatarProxy,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveFlow counts one finished flow. An empty kind means success.
func (m *Metrics) ObserveFlow(flow, kind string) {
	if m == nil {
		return
	}
	if kind == "" {
		kind = "ok"
	}
	m.Flows.WithLabelValues(flow, kind).Inc()
}

func (m *Metrics) ObserveAvatar(status string) {
	if m == nil {
		return
	}
	m.AvatarProxy.WithLabelValues(status).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
