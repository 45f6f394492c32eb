package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"heart-streaming/internal/api"
	"heart-streaming/internal/cache"
	"heart-streaming/internal/codec"
	"heart-streaming/internal/config"
	"heart-streaming/internal/db"
	k "heart-streaming/internal/kafka"
	"heart-streaming/internal/metrics"
	"heart-streaming/internal/monitor"
	"heart-streaming/internal/processors/consumer"
)

const hydrateReadTimeout = 5 * time.Second

// RunConsumer consumes the topic for format until ctx is cancelled or the
// broker fails. Every decoded record goes through the monitor, then the
// optional archive and sensor cache, then extra in order.
func RunConsumer(ctx context.Context, s *config.Settings, format string, extra ...consumer.Handler) error {
	const fn = "App:RunConsumer"
	c, err := codec.New(format, s.CSVColumns)
	if err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	m := metrics.New()
	topic := s.Topic(format)

	mon := monitor.New(monitor.Config{
		ThresholdHigh:  s.ThresholdHigh,
		ThresholdLow:   s.ThresholdLow,
		StallThreshold: s.StallThreshold,
		WindowSize:     s.WindowSize,
		Metrics:        m,
	})
	handlers := []consumer.Handler{mon.Handle}
	apiCfg := api.Config{Gatherer: m.Gatherer()}

	if err := k.WaitForBroker(ctx, s.BrokerAddress, s.BrokerWait, brokerPollInterval); err != nil {
		if interrupted(ctx, err) {
			slog.InfoContext(ctx, "Interrupted while waiting for broker", "broker", s.BrokerAddress)
			return nil
		}
		return fmt.Errorf("%s:%w", fn, err)
	}

	if s.DatabaseURL != "" {
		database, err := db.Init(ctx, db.Config{ConnString: s.DatabaseURL})
		if err != nil {
			return fmt.Errorf("%s:%w", fn, err)
		}
		defer database.Close()
		handlers = append(handlers, database.Archive(topic))
		apiCfg.DB = database
	}

	if s.HTTPAddr != "" {
		latest := cache.New(cache.Config{Topic: topic, ReadTimeout: hydrateReadTimeout})
		replay := k.NewReplayReader(k.ReaderConfig{Brokers: s.BrokerAddress, Topic: topic})
		latest.Hydrate(ctx, replay, c)
		if err := replay.Close(); err != nil {
			slog.WarnContext(ctx, "Error closing replay reader", "error", err)
		}
		latest.Dump()
		handlers = append(handlers, latest.Observe)
		apiCfg.Latest = latest
	}
	handlers = append(handlers, extra...)

	cons := consumer.New(consumer.Config{
		Topic: topic,
		Reader: k.NewReader(k.ReaderConfig{
			Brokers: s.BrokerAddress,
			GroupID: s.ConsumerGroupID,
			Topic:   topic,
		}),
		Codec:    c,
		OnRecord: consumer.Chain(handlers...),
		Metrics:  m,
	})
	defer cons.Close(ctx)

	if err := cons.Open(ctx); err != nil {
		cons.Worker().Fail(ctx, err)
		return fmt.Errorf("%s:%w", fn, err)
	}

	stopHTTP := serveHTTP(ctx, s.HTTPAddr, apiCfg)
	defer stopHTTP()

	if err := cons.Run(ctx); err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	return nil
}
