package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"parktrust/internal/audit"
	"parktrust/internal/platform/metrics"
	slotmodels "parktrust/internal/slot/models"
	"parktrust/internal/ticket/models"
	"parktrust/internal/ticket/store"
)

// SlotReleaser is the slice of the slot registry the ledger needs: freeing a
// slot when its ticket closes.
type SlotReleaser interface {
	Release(ctx context.Context, slotID string) (*slotmodels.Slot, error)
}

// AuditEmitter forwards transition records to the append-only log sink.
type AuditEmitter interface {
	Emit(ctx context.Context, rec audit.Record) error
}

// Ledger owns ticket lifecycle: issue at reservation time, close on exit,
// lookup for billing. Tickets are never deleted.
type Ledger struct {
	tickets store.Store
	slots   SlotReleaser
	logger  *slog.Logger
	auditor AuditEmitter
	metrics *metrics.Metrics
}

type Option func(*Ledger)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithAuditEmitter(a AuditEmitter) Option {
	return func(l *Ledger) { l.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func NewLedger(tickets store.Store, slots SlotReleaser, opts ...Option) *Ledger {
	l := &Ledger{
		tickets: tickets,
		slots:   slots,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Issue records a new active ticket for a reserved slot. The caller (the
// allocation engine) has already bound the slot to the returned ticket id.
func (l *Ledger) Issue(ctx context.Context, ticketID, slotID, gateID, plate string) (*models.Ticket, error) {
	if ticketID == "" {
		ticketID = uuid.NewString()
	}
	t := models.New(ticketID, plate, gateID, slotID, time.Now())
	if err := l.tickets.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("issue ticket: %w", err)
	}

	l.emit(ctx, audit.Record{
		Kind:     audit.KindTicketIssued,
		SlotID:   slotID,
		TicketID: t.ID,
		State:    string(t.Status),
	})
	l.logger.InfoContext(ctx, "ticket issued",
		"ticket_id", t.ID,
		"slot_id", slotID,
		"gate_id", gateID,
		"plate", plate,
	)
	return t, nil
}

// Close marks the ticket as exited and frees its slot. The conditional close
// is the serialization point: of two concurrent exits exactly one wins, and
// only the winner releases the slot, so the slot is never freed twice.
func (l *Ledger) Close(ctx context.Context, ticketID string) (*models.Ticket, error) {
	t, err := l.tickets.Close(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	released, err := l.slots.Release(ctx, t.SlotID)
	if err != nil {
		// The ticket is already closed; surface the inconsistency rather
		// than hiding it. Release is idempotent, so a retry is safe.
		l.logger.ErrorContext(ctx, "ticket closed but slot release failed",
			"ticket_id", t.ID,
			"slot_id", t.SlotID,
			"error", err,
		)
		return nil, fmt.Errorf("release slot %q: %w", t.SlotID, err)
	}

	l.emit(ctx, audit.Record{
		Kind:     audit.KindTicketClosed,
		SlotID:   t.SlotID,
		TicketID: t.ID,
		State:    string(t.Status),
	})
	l.emit(ctx, audit.Record{
		Kind:     audit.KindSlotReleased,
		SlotID:   released.ID,
		TicketID: t.ID,
		State:    string(released.State),
	})
	l.metrics.IncTicketClosed()
	l.logger.InfoContext(ctx, "ticket closed",
		"ticket_id", t.ID,
		"slot_id", t.SlotID,
	)
	return t, nil
}

// Lookup returns one ticket by id.
func (l *Ledger) Lookup(ctx context.Context, ticketID string) (*models.Ticket, error) {
	return l.tickets.Find(ctx, ticketID)
}

func (l *Ledger) emit(ctx context.Context, rec audit.Record) {
	if l.auditor == nil {
		return
	}
	if err := l.auditor.Emit(ctx, rec); err != nil {
		l.logger.ErrorContext(ctx, "failed to emit audit record", "kind", rec.Kind, "error", err)
	}
}
