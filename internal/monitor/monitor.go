// Package monitor inspects heart-rate records as they arrive: it flags
// readings outside the configured band and detects stalls, i.e. a full
// rolling window whose readings vary by no more than the stall threshold.
package monitor

import (
	"context"
	"log/slog"

	"heart-streaming/internal/metrics"
	"heart-streaming/internal/record"
)

type Kind string

const (
	KindNormal Kind = "normal"
	KindHigh   Kind = "high"
	KindLow    Kind = "low"
)

type Config struct {
	ThresholdHigh  float64
	ThresholdLow   float64
	StallThreshold float64
	WindowSize     int
	Metrics        *metrics.Metrics
}

type Event struct {
	Kind      Kind
	Stalled   bool
	HeartRate float64
	SensorID  string
}

type Monitor struct {
	high, low      float64
	stallThreshold float64
	window         *window
	metrics        *metrics.Metrics
}

func New(cfg Config) *Monitor {
	size := cfg.WindowSize
	if size < 1 {
		size = 1
	}
	return &Monitor{
		high:           cfg.ThresholdHigh,
		low:            cfg.ThresholdLow,
		stallThreshold: cfg.StallThreshold,
		window:         newWindow(size),
		metrics:        cfg.Metrics,
	}
}

// Inspect classifies r and updates the rolling window. The window spans all
// sensors on the topic, in delivery order.
func (m *Monitor) Inspect(r record.Record) Event {
	hr := *r.HeartRate
	ev := Event{Kind: KindNormal, HeartRate: hr, SensorID: r.ID}
	switch {
	case hr > m.high:
		ev.Kind = KindHigh
	case hr < m.low:
		ev.Kind = KindLow
	}

	m.window.push(hr)
	if m.window.full() {
		ev.Stalled = m.window.spread() <= m.stallThreshold
	}
	return ev
}

// Handle is the consumer callback: it logs the outcome of Inspect.
func (m *Monitor) Handle(ctx context.Context, r record.Record) error {
	ev := m.Inspect(r)
	attrs := []any{
		"timestamp", record.FormatTimestamp(r.Timestamp),
		"sensor_id", r.ID,
		"heart_rate", ev.HeartRate,
	}
	switch ev.Kind {
	case KindNormal:
		slog.InfoContext(ctx, "Normal heart rate", attrs...)
	default:
		slog.WarnContext(ctx, "ALERT: heart rate out of range", append(attrs, "alert", string(ev.Kind))...)
		m.count(string(ev.Kind))
	}
	if ev.Stalled {
		slog.InfoContext(ctx, "Heart rate stall detected", append(attrs, "window", m.window.size)...)
		m.count("stall")
	}
	return nil
}

func (m *Monitor) count(kind string) {
	if m.metrics != nil {
		m.metrics.Alerts.WithLabelValues(kind).Inc()
	}
}
