package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
)

type Config struct {
	Name      string
	Processor Processor
}

// Processor handles one unit of work per call. Returning io.EOF ends the run
// cleanly; an error wrapped with Skip is logged and the loop continues; any
// other error fails the worker.
type Processor interface {
	ProcessMessage(ctx context.Context) error
}

type Worker struct {
	name      string
	processor Processor

	mu    sync.Mutex
	state State
}

func New(cfg Config) *Worker {
	return &Worker{
		name:      cfg.Name,
		processor: cfg.Processor,
		state:     StateInit,
	}
}

func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

func (w *Worker) transition(ctx context.Context, to State) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := checkTransition(w.state, to); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Worker state changed", "worker", w.name, "from", w.state, "to", to)
	w.state = to
	return nil
}

// Connected marks the broker clients as constructed and reachable.
func (w *Worker) Connected(ctx context.Context) error {
	return w.transition(ctx, StateConnected)
}

// Fail moves the worker to FAILED from any live state, e.g. when connecting fails.
func (w *Worker) Fail(ctx context.Context, cause error) {
	if err := w.transition(ctx, StateFailed); err != nil {
		return
	}
	slog.ErrorContext(ctx, "Worker failed", "worker", w.name, "error", cause)
}

// Run loops the processor until the context is cancelled, the processor
// reports io.EOF, or a fatal error occurs. The returned error is nil on a
// clean stop.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.transition(ctx, StateRunning); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Worker started...", "worker", w.name)
	for {
		select {
		case <-ctx.Done():
			w.transition(ctx, StateTerminated)
			slog.InfoContext(ctx, "Worker stopped...", "worker", w.name)
			return nil
		default:
		}

		err := w.processor.ProcessMessage(ctx)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			w.transition(ctx, StateTerminated)
			slog.InfoContext(ctx, "Worker finished...", "worker", w.name)
			return nil
		case ctx.Err() != nil && errors.Is(err, ctx.Err()):
			w.transition(ctx, StateTerminated)
			slog.InfoContext(ctx, "Worker stopped...", "worker", w.name)
			return nil
		case IsSkip(err):
			// the processor logs the skipped message with its context
			slog.DebugContext(ctx, "Skipping message", "worker", w.name, "error", err)
		default:
			w.Fail(ctx, err)
			return err
		}
	}
}
