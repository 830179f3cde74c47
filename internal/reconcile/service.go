package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"parktrust/internal/audit"
	"parktrust/internal/platform/metrics"
	slotmodels "parktrust/internal/slot/models"
	slotstore "parktrust/internal/slot/store"
)

// SensorStatus is the physical state a sensor reports for a slot.
type SensorStatus string

const (
	SensorOccupied SensorStatus = "occupied"
	SensorEmpty    SensorStatus = "empty"
)

// SensorEvent is one reading from a physical slot sensor. Transient: only its
// effect on slot state is persisted.
type SensorEvent struct {
	SlotID     string
	Status     SensorStatus
	ObservedAt time.Time
}

// Outcome classifies a reconciliation. Mismatches are valid outcomes for an
// alerting collaborator, not system errors.
type Outcome string

const (
	// OutcomeMatchConfirmed: the reading agrees with a reservation or an
	// earlier confirmation.
	OutcomeMatchConfirmed Outcome = "match_confirmed"
	// OutcomeMatchClear: an empty reading on a free slot; nothing to do.
	OutcomeMatchClear Outcome = "match_clear"
	// OutcomeUnexpectedOccupancy: a vehicle is in a slot nobody reserved.
	OutcomeUnexpectedOccupancy Outcome = "unexpected_occupancy"
	// OutcomeExpectedOccupancyMissing: a reserved or confirmed slot reads
	// empty. Not auto-released here: the vehicle may simply not have arrived
	// yet, and grace-period release belongs to an external timeout policy.
	OutcomeExpectedOccupancyMissing Outcome = "expected_occupancy_missing"
)

// Result carries the outcome and the slot state after reconciliation.
type Result struct {
	Outcome  Outcome
	Slot     *slotmodels.Slot
	TicketID string
}

// AuditEmitter forwards transition records to the append-only log sink.
type AuditEmitter interface {
	Emit(ctx context.Context, rec audit.Record) error
}

// Reconciler matches sensor readings against the registry's expected state.
// It owns no entity itself; it reads slots and drives the Reserved ->
// Confirmed transition.
type Reconciler struct {
	slots   slotstore.Store
	logger  *slog.Logger
	auditor AuditEmitter
	metrics *metrics.Metrics
}

type Option func(*Reconciler)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) { r.logger = logger }
}

func WithAuditEmitter(a AuditEmitter) Option {
	return func(r *Reconciler) { r.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) { r.metrics = m }
}

func New(slots slotstore.Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		slots:  slots,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReportSensor reconciles one sensor event. Any status/state pair not
// explicitly handled is a no-op returning the unchanged state, never a crash.
func (r *Reconciler) ReportSensor(ctx context.Context, event SensorEvent) (*Result, error) {
	sl, err := r.slots.Get(ctx, event.SlotID)
	if err != nil {
		return nil, err
	}

	var res *Result
	switch event.Status {
	case SensorOccupied:
		res, err = r.reportOccupied(ctx, sl)
	case SensorEmpty:
		res, err = r.reportEmpty(ctx, sl)
	default:
		return nil, fmt.Errorf("unknown sensor status %q", event.Status)
	}
	if err != nil {
		return nil, err
	}

	r.metrics.IncReconciliation(string(res.Outcome))
	if res.Outcome == OutcomeUnexpectedOccupancy || res.Outcome == OutcomeExpectedOccupancyMissing {
		r.emit(ctx, audit.Record{
			Kind:     audit.KindReconcileMismatch,
			SlotID:   sl.ID,
			TicketID: res.TicketID,
			State:    string(res.Slot.State),
			Detail:   string(res.Outcome),
		})
		r.logger.WarnContext(ctx, "sensor reading contradicts slot state",
			"slot_id", sl.ID,
			"slot_state", res.Slot.State,
			"sensor_status", event.Status,
			"outcome", res.Outcome,
		)
	}
	return res, nil
}

func (r *Reconciler) reportOccupied(ctx context.Context, sl *slotmodels.Slot) (*Result, error) {
	switch sl.State {
	case slotmodels.StateFree:
		// Unassigned vehicle, possible intrusion. State untouched.
		return &Result{Outcome: OutcomeUnexpectedOccupancy, Slot: sl}, nil

	case slotmodels.StateReserved:
		confirmed, err := r.slots.Confirm(ctx, sl.ID)
		if err != nil {
			if errors.Is(err, slotstore.ErrInvalidTransition) {
				// Lost a race with a concurrent release or confirm; reconcile
				// against the state that actually won.
				current, getErr := r.slots.Get(ctx, sl.ID)
				if getErr != nil {
					return nil, getErr
				}
				return r.reportOccupied(ctx, current)
			}
			return nil, err
		}
		r.emit(ctx, audit.Record{
			Kind:     audit.KindSlotConfirmed,
			SlotID:   confirmed.ID,
			TicketID: confirmed.TicketID,
			State:    string(confirmed.State),
		})
		r.logger.InfoContext(ctx, "reservation confirmed by sensor",
			"slot_id", confirmed.ID,
			"ticket_id", confirmed.TicketID,
		)
		return &Result{Outcome: OutcomeMatchConfirmed, Slot: confirmed, TicketID: confirmed.TicketID}, nil

	case slotmodels.StateConfirmed:
		// Repeat sensor ping. Idempotent.
		return &Result{Outcome: OutcomeMatchConfirmed, Slot: sl, TicketID: sl.TicketID}, nil
	}
	return &Result{Outcome: OutcomeMatchClear, Slot: sl}, nil
}

func (r *Reconciler) reportEmpty(_ context.Context, sl *slotmodels.Slot) (*Result, error) {
	if sl.State == slotmodels.StateFree {
		return &Result{Outcome: OutcomeMatchClear, Slot: sl}, nil
	}
	// Reserved or Confirmed reading empty: reported, not auto-released.
	return &Result{Outcome: OutcomeExpectedOccupancyMissing, Slot: sl, TicketID: sl.TicketID}, nil
}

func (r *Reconciler) emit(ctx context.Context, rec audit.Record) {
	if r.auditor == nil {
		return
	}
	if err := r.auditor.Emit(ctx, rec); err != nil {
		r.logger.ErrorContext(ctx, "failed to emit audit record", "kind", rec.Kind, "error", err)
	}
}
