package allocation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"parktrust/internal/audit"
	"parktrust/internal/geometry"
	"parktrust/internal/platform/metrics"
	slotmodels "parktrust/internal/slot/models"
	slotstore "parktrust/internal/slot/store"
	ticketmodels "parktrust/internal/ticket/models"
	"parktrust/pkg/sentinel"
)

// Domain errors layered on the infrastructure sentinels.
var (
	ErrUnknownGate = fmt.Errorf("unknown gate: %w", sentinel.ErrNotFound)
	ErrLotFull     = fmt.Errorf("lot full: %w", sentinel.ErrExhausted)
)

// TicketIssuer is the slice of the ticket ledger the engine needs.
type TicketIssuer interface {
	Issue(ctx context.Context, ticketID, slotID, gateID, plate string) (*ticketmodels.Ticket, error)
}

// AuditEmitter forwards transition records to the append-only log sink.
type AuditEmitter interface {
	Emit(ctx context.Context, rec audit.Record) error
}

// Result is a successful allocation: the issued ticket, the reserved slot and
// walking directions from the gate.
type Result struct {
	Ticket     *ticketmodels.Ticket
	Slot       *slotmodels.Slot
	Distance   int
	Directions string
}

// Engine selects the nearest free slot to an entry gate and reserves it.
type Engine struct {
	slots      slotstore.Store
	geo        *geometry.Index
	ledger     TicketIssuer
	logger     *slog.Logger
	auditor    AuditEmitter
	metrics    *metrics.Metrics
	maxRetries int
}

type Option func(*Engine)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

func WithAuditEmitter(a AuditEmitter) Option {
	return func(e *Engine) { e.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithMaxRetries bounds how many times a lost reserve race is retried before
// the lot counts as full.
func WithMaxRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

func NewEngine(slots slotstore.Store, geo *geometry.Index, ledger TicketIssuer, opts ...Option) *Engine {
	e := &Engine{
		slots:      slots,
		geo:        geo,
		ledger:     ledger,
		logger:     slog.Default(),
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Allocate reserves the free slot nearest to the gate and issues a ticket for
// it. Ties on distance resolve to the lowest slot id so repeated allocation
// under identical state is deterministic.
func (e *Engine) Allocate(ctx context.Context, gateID, plate string) (*Result, error) {
	gatePos, err := e.geo.GatePosition(gateID)
	if err != nil {
		e.metrics.IncAllocationFailure("unknown_gate")
		return nil, fmt.Errorf("gate %q: %w", gateID, ErrUnknownGate)
	}

	// The scan runs outside any registry lock; a concurrent allocation may
	// steal the chosen slot between the scan and the reserve, so losing the
	// race rescans the remaining free slots up to the retry bound.
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		free, err := e.slots.ListFree(ctx)
		if err != nil {
			return nil, fmt.Errorf("list free slots: %w", err)
		}
		e.metrics.SetFreeSlots(len(free))
		if len(free) == 0 {
			e.metrics.IncAllocationFailure("lot_full")
			return nil, ErrLotFull
		}

		best, dist := nearest(gatePos, free)
		ticketID := uuid.NewString()

		reserved, err := e.slots.Reserve(ctx, best.ID, ticketID)
		if err != nil {
			if errors.Is(err, slotstore.ErrSlotNotFree) {
				e.logger.DebugContext(ctx, "lost reserve race, retrying",
					"slot_id", best.ID,
					"attempt", attempt+1,
				)
				continue
			}
			return nil, fmt.Errorf("reserve slot %q: %w", best.ID, err)
		}

		t, err := e.ledger.Issue(ctx, ticketID, reserved.ID, gateID, plate)
		if err != nil {
			// Roll the reservation back so no partial mutation is visible.
			if _, relErr := e.slots.Release(ctx, reserved.ID); relErr != nil {
				e.logger.ErrorContext(ctx, "rollback release failed",
					"slot_id", reserved.ID,
					"error", relErr,
				)
			}
			return nil, fmt.Errorf("issue ticket for slot %q: %w", reserved.ID, err)
		}

		e.emit(ctx, audit.Record{
			Kind:     audit.KindSlotReserved,
			SlotID:   reserved.ID,
			TicketID: ticketID,
			State:    string(reserved.State),
		})
		e.metrics.IncAllocation()
		e.metrics.SetFreeSlots(len(free) - 1)
		e.logger.InfoContext(ctx, "slot allocated",
			"slot_id", reserved.ID,
			"ticket_id", ticketID,
			"gate_id", gateID,
			"distance", dist,
		)

		return &Result{
			Ticket:     t,
			Slot:       reserved,
			Distance:   dist,
			Directions: fmt.Sprintf("Go to Grid %s", reserved.Position),
		}, nil
	}

	e.metrics.IncAllocationFailure("retries_exhausted")
	return nil, ErrLotFull
}

// nearest picks the slot minimizing Manhattan distance to the gate. The free
// list arrives sorted by id, so keeping the strictly closer slot makes ties
// resolve to the lowest id.
func nearest(gate geometry.Point, free []*slotmodels.Slot) (*slotmodels.Slot, int) {
	best := free[0]
	bestDist := geometry.Distance(gate, best.Position)
	for _, sl := range free[1:] {
		if d := geometry.Distance(gate, sl.Position); d < bestDist {
			best, bestDist = sl, d
		}
	}
	return best, bestDist
}

func (e *Engine) emit(ctx context.Context, rec audit.Record) {
	if e.auditor == nil {
		return
	}
	if err := e.auditor.Emit(ctx, rec); err != nil {
		e.logger.ErrorContext(ctx, "failed to emit audit record", "kind", rec.Kind, "error", err)
	}
}
