// Package app wires settings, broker clients and processors into the four
// producer and consumer processes.
package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"heart-streaming/internal/config"
)

// brokerPollInterval is the pause between broker reachability checks.
const brokerPollInterval = 2 * time.Second

type Runner func(ctx context.Context, s *config.Settings) error

func Producer(format string) Runner {
	return func(ctx context.Context, s *config.Settings) error {
		return RunProducer(ctx, s, format)
	}
}

func Consumer(format string) Runner {
	return func(ctx context.Context, s *config.Settings) error {
		return RunConsumer(ctx, s, format)
	}
}

// Main loads the settings, installs the JSON logger and runs run until it
// returns or the process is interrupted. The result is the exit code.
func Main(name string, run Runner) int {
	settings, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("Invalid configuration", "service", name, "error", err)
		return 1
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: settings.LogLevel})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.InfoContext(ctx, "Starting service...", "service", name, "settings", settings)
	if err := run(ctx, settings); err != nil {
		slog.ErrorContext(ctx, "Service failed", "service", name, "error", err)
		return 1
	}
	slog.InfoContext(ctx, "Service stopped", "service", name)
	return 0
}
