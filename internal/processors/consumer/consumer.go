package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"heart-streaming/internal/codec"
	k "heart-streaming/internal/kafka"
	"heart-streaming/internal/metrics"
	"heart-streaming/internal/record"
	"heart-streaming/internal/worker"
)

var ErrReadMessage = errors.New("error reading message")

// Handler processes one decoded record. Errors are logged and do not stop
// the consumer.
type Handler func(ctx context.Context, r record.Record) error

type Config struct {
	Topic    string
	Reader   k.Reader
	Codec    codec.Codec
	OnRecord Handler
	Metrics  *metrics.Metrics
}

type Consumer struct {
	worker   *worker.Worker
	topic    string
	reader   k.Reader
	codec    codec.Codec
	onRecord Handler
	metrics  *metrics.Metrics
}

func New(cfg Config) *Consumer {
	consumer := &Consumer{
		topic:    cfg.Topic,
		reader:   cfg.Reader,
		codec:    cfg.Codec,
		onRecord: cfg.OnRecord,
		metrics:  cfg.Metrics,
	}
	if consumer.onRecord == nil {
		consumer.onRecord = LogRecord
	}

	consumer.worker = worker.New(worker.Config{
		Name:      cfg.Codec.Format() + "-consumer",
		Processor: consumer,
	})
	return consumer
}

func (c *Consumer) Worker() *worker.Worker {
	return c.worker
}

// Open marks the consumer connected; call it once the broker is reachable.
func (c *Consumer) Open(ctx context.Context) error {
	return c.worker.Connected(ctx)
}

func (c *Consumer) Run(ctx context.Context) error {
	slog.InfoContext(ctx, "Polling messages", "topic", c.topic, "format", c.codec.Format())
	return c.worker.Run(ctx)
}

func (c *Consumer) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing consumer resources...", "topic", c.topic)
	if err := c.reader.Close(); err != nil {
		slog.ErrorContext(ctx, "Error closing reader", "error", err)
	}
}

// Auto-commit active
func (c *Consumer) ProcessMessage(ctx context.Context) error {
	const fn = "Consumer:ProcessMessage"
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s:%w:%w", fn, ErrReadMessage, err)
	}
	slog.DebugContext(ctx, "Received message", "topic", m.Topic, "partition", m.Partition, "offset", m.Offset)

	r, err := c.codec.Decode(m.Value)
	if err != nil {
		slog.ErrorContext(ctx, "Error decoding message",
			"topic", m.Topic,
			"partition", m.Partition,
			"offset", m.Offset,
			"payload", k.Snippet(m.Value),
			"error", err,
		)
		if c.metrics != nil {
			c.metrics.Skipped.WithLabelValues(c.topic, c.codec.Format()).Inc()
		}
		return worker.Skip(fmt.Errorf("%s:%w", fn, err))
	}
	if c.metrics != nil {
		c.metrics.Consumed.WithLabelValues(c.topic, c.codec.Format()).Inc()
		c.metrics.HeartRate.WithLabelValues(c.topic).Observe(*r.HeartRate)
	}

	if err := c.onRecord(ctx, r); err != nil {
		slog.ErrorContext(ctx, "Error handling record", "sensor_id", r.ID, "offset", m.Offset, "error", err)
	}
	return nil
}

// LogRecord is the plain handler: it logs every record.
func LogRecord(ctx context.Context, r record.Record) error {
	slog.InfoContext(ctx, "Processed message",
		"timestamp", record.FormatTimestamp(r.Timestamp),
		"sensor_id", r.ID,
		"heart_rate", *r.HeartRate,
	)
	return nil
}

// Chain runs handlers in order; every handler runs and the errors are joined.
func Chain(handlers ...Handler) Handler {
	return func(ctx context.Context, r record.Record) error {
		var errs []error
		for _, h := range handlers {
			if err := h(ctx, r); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}
