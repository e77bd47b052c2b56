package notify

import (
	"context"
	"log/slog"
)

type task struct {
	alert    *DonorAlert
	cooldown *CooldownComplete
}

// Worker decouples lifecycle writes from message delivery through a
// bounded inbox. When the inbox is full the newest message is dropped and
// logged; donor messages are best-effort, the ledger is the record.
type Worker struct {
	next   Dispatcher
	inbox  chan task
	logger *slog.Logger
}

func NewWorker(next Dispatcher, buffer int, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		next:   next,
		inbox:  make(chan task, buffer),
		logger: logger,
	}
}

func (w *Worker) DonorAlert(ctx context.Context, alert DonorAlert) error {
	w.enqueue(ctx, task{alert: &alert})
	return nil
}

func (w *Worker) CooldownComplete(ctx context.Context, done CooldownComplete) error {
	w.enqueue(ctx, task{cooldown: &done})
	return nil
}

func (w *Worker) enqueue(ctx context.Context, t task) {
	select {
	case w.inbox <- t:
	default:
		w.logger.WarnContext(ctx, "notify inbox full, dropping message")
	}
}

// Run consumes the inbox until ctx is cancelled. Delivery errors are
// logged, not retried.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t := <-w.inbox:
			w.deliver(ctx, t)
		}
	}
}

func (w *Worker) deliver(ctx context.Context, t task) {
	var err error
	switch {
	case t.alert != nil:
		err = w.next.DonorAlert(ctx, *t.alert)
	case t.cooldown != nil:
		err = w.next.CooldownComplete(ctx, *t.cooldown)
	}
	if err != nil {
		w.logger.ErrorContext(ctx, "notify delivery failed", "error", err)
	}
}
