package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"heart-streaming/internal/api"
	"heart-streaming/internal/codec"
	"heart-streaming/internal/config"
	k "heart-streaming/internal/kafka"
	"heart-streaming/internal/metrics"
	"heart-streaming/internal/processors/producer"
	"heart-streaming/internal/source"
)

// RunProducer publishes the configured data file for format to its topic and
// returns once the file is exhausted.
func RunProducer(ctx context.Context, s *config.Settings, format string) error {
	const fn = "App:RunProducer"
	c, err := codec.New(format, s.CSVColumns)
	if err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	src, err := source.New(format, s.DataFile(format))
	if err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	m := metrics.New()
	topic := s.Topic(format)

	p := producer.New(producer.Config{
		Topic:    topic,
		Source:   src,
		Codec:    c,
		Writer:   k.NewWriter(k.WriterConfig{Brokers: s.BrokerAddress, Topic: topic}),
		Interval: s.ProducerInterval,
		Metrics:  m,
	})
	defer p.Close(ctx)

	if err := k.WaitForBroker(ctx, s.BrokerAddress, s.BrokerWait, brokerPollInterval); err != nil {
		if interrupted(ctx, err) {
			slog.InfoContext(ctx, "Interrupted while waiting for broker", "broker", s.BrokerAddress)
			return nil
		}
		p.Worker().Fail(ctx, err)
		return fmt.Errorf("%s:%w", fn, err)
	}
	if err := p.Open(ctx); err != nil {
		p.Worker().Fail(ctx, err)
		return fmt.Errorf("%s:%w", fn, err)
	}

	stopHTTP := serveHTTP(ctx, s.HTTPAddr, api.Config{Gatherer: m.Gatherer()})
	defer stopHTTP()

	slog.InfoContext(ctx, "Publishing records", "topic", topic, "file", src.Name(), "format", format)
	if err := p.Run(ctx); err != nil {
		return fmt.Errorf("%s:%w", fn, err)
	}
	return nil
}

// interrupted reports whether err comes from ctx being cancelled.
func interrupted(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled)
}

// serveHTTP starts the API server in the background when addr is set. The
// returned func stops it and waits for it to exit.
func serveHTTP(ctx context.Context, addr string, cfg api.Config) func() {
	if addr == "" {
		return func() {}
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := api.New(cfg).Serve(ctx, addr); err != nil {
			slog.ErrorContext(ctx, "HTTP server error", "addr", addr, "error", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
