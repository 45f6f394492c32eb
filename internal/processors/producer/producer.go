package producer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"heart-streaming/internal/codec"
	"heart-streaming/internal/ids"
	k "heart-streaming/internal/kafka"
	"heart-streaming/internal/metrics"
	"heart-streaming/internal/source"
	"heart-streaming/internal/worker"
)

var (
	ErrReadRecord   = errors.New("error reading record")
	ErrWriteMessage = errors.New("error writing message")
)

type Config struct {
	Topic    string
	Source   source.Source
	Codec    codec.Codec
	Writer   k.Writer
	Interval time.Duration
	Metrics  *metrics.Metrics
}

// Producer publishes every record of its source to one topic, in source
// order, one message per record.
type Producer struct {
	worker  *worker.Worker
	topic   string
	source  source.Source
	codec   codec.Codec
	writer  k.Writer
	limiter *rate.Limiter
	metrics *metrics.Metrics
	sent    int
}

func New(cfg Config) *Producer {
	producer := &Producer{
		topic:   cfg.Topic,
		source:  cfg.Source,
		codec:   cfg.Codec,
		writer:  cfg.Writer,
		limiter: newLimiter(cfg.Interval),
		metrics: cfg.Metrics,
	}

	producer.worker = worker.New(worker.Config{
		Name:      cfg.Codec.Format() + "-producer",
		Processor: producer,
	})
	return producer
}

// newLimiter spaces publishes by interval; the first one goes out at once.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (p *Producer) Worker() *worker.Worker {
	return p.worker
}

// Open opens the record source; the broker writer is ready once constructed.
func (p *Producer) Open(ctx context.Context) error {
	if err := p.source.Open(ctx); err != nil {
		return err
	}
	return p.worker.Connected(ctx)
}

func (p *Producer) Run(ctx context.Context) error {
	err := p.worker.Run(ctx)
	slog.InfoContext(ctx, "Producer done", "topic", p.topic, "published", p.sent)
	return err
}

func (p *Producer) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing producer resources...", "topic", p.topic)
	if err := p.source.Close(); err != nil {
		slog.ErrorContext(ctx, "Error closing source", "error", err)
	}
	if err := p.writer.Close(); err != nil {
		slog.ErrorContext(ctx, "Error closing writer", "error", err)
	}
}

func (p *Producer) ProcessMessage(ctx context.Context) error {
	const fn = "Producer:ProcessMessage"
	r, err := p.source.Next(ctx)
	if err == io.EOF {
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrReadRecord, err)
	}

	payload, err := p.codec.Encode(r)
	if err != nil {
		return fmt.Errorf("%s: topic=%s sensor_id=%s:%w", fn, p.topic, r.ID, err)
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(r.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: k.HeaderMessageID, Value: []byte(ids.NewMessageID())},
			{Key: k.HeaderContentType, Value: []byte(p.codec.ContentType())},
			{Key: k.HeaderFormat, Value: []byte(p.codec.Format())},
		},
	})
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrWriteMessage, err)
	}
	p.sent++
	if p.metrics != nil {
		p.metrics.Published.WithLabelValues(p.topic, p.codec.Format()).Inc()
	}
	slog.InfoContext(ctx, "Published message", "topic", p.topic, "sensor_id", r.ID, "payload", string(payload))
	return nil
}
