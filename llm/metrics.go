// Package llm - Prometheus-Metriken des Ladevorgangs
package llm

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records the outcome of loading and profiling an engine.
type Metrics struct {
	cacheBlocks  *prometheus.GaugeVec
	cacheBudget  *prometheus.GaugeVec
	peakBytes    *prometheus.GaugeVec
	loadDuration *prometheus.GaugeVec
}

// NewMetrics creates the gauges and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cacheBlocks: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "aphrodite",
				Subsystem: "kvcache",
				Name:      "blocks",
				Help:      "Number of KV cache blocks",
			},
			[]string{"model", "location"},
		),
		cacheBudget: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "aphrodite",
				Subsystem: "kvcache",
				Name:      "budget_bytes",
				Help:      "Memory budget of the KV cache in bytes",
			},
			[]string{"model", "location"},
		),
		peakBytes: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "aphrodite",
				Subsystem: "profile",
				Name:      "peak_bytes",
				Help:      "Peak device memory of the profiling pass",
			},
			[]string{"model"},
		),
		loadDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "aphrodite",
				Subsystem: "loader",
				Name:      "duration_seconds",
				Help:      "Time spent loading weights and profiling",
			},
			[]string{"model"},
		),
	}
	reg.MustRegister(m.cacheBlocks, m.cacheBudget, m.peakBytes, m.loadDuration)
	return m
}

// Observe records c for the model id.
func (m *Metrics) Observe(id string, c *Capacity, elapsed time.Duration) {
	m.cacheBlocks.WithLabelValues(id, "device").Set(float64(c.Blocks.Device))
	m.cacheBlocks.WithLabelValues(id, "host").Set(float64(c.Blocks.Host))
	m.cacheBudget.WithLabelValues(id, "device").Set(float64(c.DeviceBudget))
	m.cacheBudget.WithLabelValues(id, "host").Set(float64(c.HostBudget))
	m.peakBytes.WithLabelValues(id).Set(float64(c.Peak))
	m.loadDuration.WithLabelValues(id).Set(elapsed.Seconds())
}

// WriteMetrics writes the metrics of g in the text exposition format to
// path, for the node exporter's textfile collector.
func WriteMetrics(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
