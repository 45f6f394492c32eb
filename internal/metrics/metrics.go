package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline counters. Each process registers its own set.
type Metrics struct {
	Published *prometheus.CounterVec
	Consumed  *prometheus.CounterVec
	Skipped   *prometheus.CounterVec
	Alerts    *prometheus.CounterVec
	HeartRate *prometheus.HistogramVec

	registry *prometheus.Registry
}

func newCounterVec(name, help string, labels []string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "heart",
			Subsystem: "stream",
			Name:      name,
			Help:      help,
		},
		labels,
	)
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Published: newCounterVec("messages_published_total", "Messages published to the broker", []string{"topic", "format"}),
		Consumed:  newCounterVec("messages_consumed_total", "Messages decoded and handed to the record handler", []string{"topic", "format"}),
		Skipped:   newCounterVec("messages_skipped_total", "Messages that could not be decoded", []string{"topic", "format"}),
		Alerts:    newCounterVec("alerts_total", "Heart rate alerts raised by the monitor", []string{"kind"}),
		HeartRate: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "heart",
				Subsystem: "stream",
				Name:      "heart_rate_bpm",
				Help:      "Observed heart rate readings",
				Buckets:   []float64{40, 50, 60, 70, 80, 90, 100, 120, 140, 160, 180, 200},
			},
			[]string{"topic"},
		),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(m.Published, m.Consumed, m.Skipped, m.Alerts, m.HeartRate)
	return m
}

// Gatherer exposes the registry for the /metrics handler.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}
