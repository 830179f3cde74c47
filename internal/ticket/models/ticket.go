package models

import "time"

// Status is the lifecycle state of one lot-occupancy session.
type Status string

const (
	StatusActive Status = "active"
	StatusExited Status = "exited"
)

// Ticket records one vehicle's session from entry to exit. Tickets are
// append-only history: closing marks them Exited, nothing ever deletes them.
type Ticket struct {
	ID       string     `json:"id"`
	Plate    string     `json:"plate"`
	GateID   string     `json:"gate_id"`
	SlotID   string     `json:"slot_id"`
	Status   Status     `json:"status"`
	IssuedAt time.Time  `json:"issued_at"`
	ExitedAt *time.Time `json:"exited_at,omitempty"`
}

// New constructs an active ticket bound to a slot.
func New(id, plate, gateID, slotID string, now time.Time) *Ticket {
	return &Ticket{
		ID:       id,
		Plate:    plate,
		GateID:   gateID,
		SlotID:   slotID,
		Status:   StatusActive,
		IssuedAt: now,
	}
}

func (t *Ticket) IsActive() bool {
	return t.Status == StatusActive
}

// CanClose checks that the ticket has not already been exited. Use with
// ApplyClose under the store's lock.
func (t *Ticket) CanClose() bool {
	return t.Status == StatusActive
}

// ApplyClose marks the session as exited. Call CanClose first.
func (t *Ticket) ApplyClose(now time.Time) {
	t.Status = StatusExited
	t.ExitedAt = &now
}

// Clone returns an independent copy so callers never share store-owned memory.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.ExitedAt != nil {
		at := *t.ExitedAt
		c.ExitedAt = &at
	}
	return &c
}
