package audit

import (
	"context"
	"time"
)

// Kind labels the state transition an audit record captures.
type Kind string

const (
	KindSlotReserved      Kind = "slot_reserved"
	KindSlotConfirmed     Kind = "slot_confirmed"
	KindSlotReleased      Kind = "slot_released"
	KindTicketIssued      Kind = "ticket_issued"
	KindTicketClosed      Kind = "ticket_closed"
	KindReconcileMismatch Kind = "reconcile_mismatch"
)

// Record is emitted from domain logic once per state transition. Keep it
// transport-agnostic so sinks can fan out. The core supplies structured
// fields only; integrity tokens, if any, belong to the sink.
type Record struct {
	Kind      Kind      `json:"kind"`
	SlotID    string    `json:"slot_id,omitempty"`
	TicketID  string    `json:"ticket_id,omitempty"`
	State     string    `json:"state,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Store is an append-only sink for audit records.
type Store interface {
	Append(ctx context.Context, rec Record) error
}
