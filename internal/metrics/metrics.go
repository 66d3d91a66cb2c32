// Package metrics exposes the process's Prometheus collectors.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every counter/gauge the server updates. Every
// consumer accepts a nil *Metrics and then skips its updates; New
// builds a live one (it registers its own private registry so tests
// can create as many instances as they like).
type Metrics struct {
	Registry *prometheus.Registry

	CommandsTotal    *prometheus.CounterVec
	ConnectedClients prometheus.Gauge
	ConnectedReplicas prometheus.Gauge
	LastSaveSeconds  prometheus.Gauge
	DirtyKeys        prometheus.Gauge
	SaveDuration     prometheus.Histogram
}

// New builds and registers a fresh Metrics instance.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coolcache",
			Name:      "commands_total",
			Help:      "Total commands processed, by command name.",
		}, []string{"command"}),
		ConnectedClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coolcache",
			Name:      "connected_clients",
			Help:      "Number of open client connections, replica links included.",
		}),
		ConnectedReplicas: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coolcache",
			Name:      "connected_replicas",
			Help:      "Number of registered replica connections.",
		}),
		LastSaveSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coolcache",
			Name:      "last_save_unix_seconds",
			Help:      "Unix timestamp of the last successful save.",
		}),
		DirtyKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "coolcache",
			Name:      "dirty_keys",
			Help:      "Mutations since the last successful save.",
		}),
		SaveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "coolcache",
			Name:      "save_duration_seconds",
			Help:      "Time taken to write a snapshot.",
		}),
	}
	reg.MustRegister(m.CommandsTotal, m.ConnectedClients, m.ConnectedReplicas,
		m.LastSaveSeconds, m.DirtyKeys, m.SaveDuration)
	return m
}
