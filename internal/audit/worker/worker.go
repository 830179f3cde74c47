package worker

import (
	"context"
	"log/slog"
	"time"

	"parktrust/internal/audit"
)

// Worker drains audit records from a channel and appends them to a sink,
// keeping slow sinks (postgres, redis, kafka) off the request path. A full
// inbox drops the record rather than blocking a state transition; the drop is
// logged so operators can size the buffer.
type Worker struct {
	store  audit.Store
	inbox  chan audit.Record
	logger *slog.Logger
}

func New(store audit.Store, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Worker{
		store:  store,
		inbox:  make(chan audit.Record, buffer),
		logger: logger,
	}
}

// Emit queues a record without blocking. It implements the same contract as
// audit.Publisher.Emit so services can take either.
func (w *Worker) Emit(ctx context.Context, rec audit.Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	select {
	case w.inbox <- rec:
	default:
		w.logger.WarnContext(ctx, "audit inbox full, dropping record",
			"kind", rec.Kind,
			"slot_id", rec.SlotID,
		)
	}
	return nil
}

// Run consumes the inbox until the context is cancelled, then drains whatever
// is already queued.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case rec := <-w.inbox:
			w.append(ctx, rec)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case rec := <-w.inbox:
			w.append(context.Background(), rec)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, rec audit.Record) {
	if err := w.store.Append(ctx, rec); err != nil {
		w.logger.ErrorContext(ctx, "failed to append audit record",
			"error", err,
			"kind", rec.Kind,
			"slot_id", rec.SlotID,
		)
	}
}
