package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

var ErrBrokerConnection = errors.New("broker connection failed")

const (
	HeaderMessageID   = "message_id"
	HeaderContentType = "content_type"
	HeaderFormat      = "format"
)

type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ReaderConfig struct {
	Brokers string
	GroupID string
	Topic   string
}

type WriterConfig struct {
	Brokers string
	Topic   string
}

// NewReader joins the consumer group; offsets are committed by ReadMessage.
func NewReader(cfg ReaderConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		GroupID:     cfg.GroupID,
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
	})
}

// NewReplayReader reads topic from the first offset without a consumer group,
// so nothing is committed. Used for one-off replays.
func NewReplayReader(cfg ReaderConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{cfg.Brokers},
		Topic:       cfg.Topic,
		StartOffset: kafka.FirstOffset,
	})
}

// NewWriter returns a synchronous writer that sends each message as soon as
// WriteMessages is called.
func NewWriter(cfg WriterConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    1,
		RequiredAcks: kafka.RequireAll,
	}
}

// WaitForBroker dials the broker until it answers or maxWait elapses.
func WaitForBroker(ctx context.Context, broker string, maxWait time.Duration, interval time.Duration) error {
	const fn = "Kafka:WaitForBroker"
	deadline := time.Now().Add(maxWait)
	for {
		dialCtx, cancel := context.WithTimeout(ctx, interval)
		conn, err := kafka.DialContext(dialCtx, "tcp", broker)
		cancel()
		if err == nil {
			conn.Close()
			slog.InfoContext(ctx, "Broker is ready", "broker", broker)
			return nil
		}
		slog.InfoContext(ctx, "Broker not ready", "broker", broker, "error", err)
		if !time.Now().Add(interval).Before(deadline) {
			return fmt.Errorf("%s:%w: %s not reachable after %s:%w", fn, ErrBrokerConnection, broker, maxWait, err)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s:%w:%w", fn, ErrBrokerConnection, ctx.Err())
		case <-time.After(interval):
		}
	}
}

// Header returns the value of the first header named key.
func Header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// Snippet trims a payload for log output.
func Snippet(payload []byte) string {
	const max = 120
	if len(payload) <= max {
		return string(payload)
	}
	return string(payload[:max]) + "..."
}
