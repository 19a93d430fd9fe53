// Package worker runs the background consumer that mirrors ledger events
// into a spreadsheet.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"litepay/internal/amqp"
)

// Handler processes one ledger event. A returned error requeues the event.
type Handler func(ctx context.Context, ev *amqp.LedgerEvent) error

// Consumer delivers events until ctx is done.
type Consumer interface {
	ConsumeEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// HeaderEnsurer prepares the destination before the first event arrives.
type HeaderEnsurer interface {
	EnsureHeader(ctx context.Context) error
}

// Stats counts handled events since start.
type Stats struct {
	Processed int64
	Failed    int64
}

// MirrorWorker feeds consumed events to a handler and keeps counts.
type MirrorWorker struct {
	consumer Consumer
	handle   Handler
	header   HeaderEnsurer
	logger   *slog.Logger

	processed int64
	failed    int64
}

type Option func(*MirrorWorker)

// WithHeader runs EnsureHeader once before consuming.
func WithHeader(h HeaderEnsurer) Option {
	return func(w *MirrorWorker) { w.header = h }
}

func WithLogger(l *slog.Logger) Option {
	return func(w *MirrorWorker) { w.logger = l }
}

func NewMirrorWorker(consumer Consumer, handle Handler, opts ...Option) *MirrorWorker {
	w := &MirrorWorker{
		consumer: consumer,
		handle:   handle,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes until ctx is cancelled. Cancellation is a clean stop and
// returns nil. A header failure is logged and consumption starts anyway.
func (w *MirrorWorker) Run(ctx context.Context) error {
	if w.header != nil {
		if err := w.header.EnsureHeader(ctx); err != nil {
			w.logger.ErrorContext(ctx, "Failed to prepare sheet header", "error", err)
		}
	}

	w.logger.InfoContext(ctx, "Mirror worker started")
	err := w.consumer.ConsumeEvents(ctx, w.process)
	stats := w.Stats()
	w.logger.InfoContext(ctx, "Mirror worker stopped",
		"processed", stats.Processed,
		"failed", stats.Failed)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

func (w *MirrorWorker) process(ctx context.Context, ev *amqp.LedgerEvent) error {
	if err := w.handle(ctx, ev); err != nil {
		atomic.AddInt64(&w.failed, 1)
		return err
	}
	atomic.AddInt64(&w.processed, 1)
	return nil
}

func (w *MirrorWorker) Stats() Stats {
	return Stats{
		Processed: atomic.LoadInt64(&w.processed),
		Failed:    atomic.LoadInt64(&w.failed),
	}
}
