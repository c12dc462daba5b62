// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package stats

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the engine's Prometheus exports, generalized from the
// teacher's eBPF program-level counters to the data plane's per-packet and
// per-session counters.
type Metrics struct {
	PacketsProcessed prometheus.Counter
	PacketsDropped   prometheus.Counter
	PacketsPassed    prometheus.Counter
	BytesProcessed   prometheus.Counter

	SessionsActive prometheus.Gauge
	SessionsTotal  prometheus.Counter
	SessionsEvicted *prometheus.CounterVec

	ThreatsRaised *prometheus.CounterVec
	MeterBreached *prometheus.CounterVec

	FQDNEntries prometheus.Gauge
	EndpointCount prometheus.Gauge
}

// NewMetrics constructs the metric set. Registration with a registry is the
// caller's responsibility so tests can use a private registry.
func NewMetrics() *Metrics {
	return &Metrics{
		PacketsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpengine_packets_processed_total",
			Help: "Total number of packets processed by the data plane.",
		}),
		PacketsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpengine_packets_dropped_total",
			Help: "Total number of packets dropped by policy or reset.",
		}),
		PacketsPassed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpengine_packets_passed_total",
			Help: "Total number of packets forwarded.",
		}),
		BytesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpengine_bytes_processed_total",
			Help: "Total number of bytes processed by the data plane.",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dpengine_sessions_active",
			Help: "Number of sessions currently tracked.",
		}),
		SessionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dpengine_sessions_created_total",
			Help: "Total number of sessions created.",
		}),
		SessionsEvicted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpengine_sessions_evicted_total",
			Help: "Total number of sessions evicted, by cause.",
		}, []string{"cause"}),
		ThreatsRaised: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpengine_threats_total",
			Help: "Total number of threats raised, by threat id.",
		}, []string{"threat_id"}),
		MeterBreached: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dpengine_meter_breached_total",
			Help: "Total number of meter watermark breaches, by meter id.",
		}, []string{"meter_id"}),
		FQDNEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dpengine_fqdn_entries",
			Help: "Number of registered FQDN table entries.",
		}),
		EndpointCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dpengine_endpoints",
			Help: "Number of installed endpoints.",
		}),
	}
}

// Collectors returns every metric as a prometheus.Collector, for bulk
// registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.PacketsProcessed, m.PacketsDropped, m.PacketsPassed, m.BytesProcessed,
		m.SessionsActive, m.SessionsTotal, m.SessionsEvicted,
		m.ThreatsRaised, m.MeterBreached, m.FQDNEntries, m.EndpointCount,
	}
}
