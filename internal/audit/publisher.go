package audit

import (
	"context"
	"time"
)

// Publisher captures structured transition records. It is append-only and
// delegates persistence to a Store so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, rec Record) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	return p.store.Append(ctx, rec)
}
