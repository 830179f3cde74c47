package models

import (
	"time"

	"parktrust/internal/geometry"
)

// State is the occupancy state of a slot.
type State string

const (
	// StateFree means the slot is unassigned and eligible for allocation.
	StateFree State = "free"
	// StateReserved means a ticket holds the slot but no sensor has confirmed
	// a vehicle yet.
	StateReserved State = "reserved"
	// StateConfirmed means a sensor reading matched the reservation.
	StateConfirmed State = "confirmed"
)

// CanTransitionTo reports whether the slot state machine permits the move.
// Free -> Reserved -> Confirmed; Release returns any state to Free.
func (s State) CanTransitionTo(target State) bool {
	switch target {
	case StateReserved:
		return s == StateFree
	case StateConfirmed:
		return s == StateReserved
	case StateFree:
		return true
	}
	return false
}

// Slot is the aggregate root for one parking space.
//
// Invariants:
//   - At most one active ticket per slot: TicketID is non-empty iff State != Free
//   - A slot never moves Free -> Confirmed directly; it must pass through Reserved
//   - ID and Position are immutable after construction
type Slot struct {
	ID        string         `json:"id"`
	Position  geometry.Point `json:"position"`
	State     State          `json:"state"`
	TicketID  string         `json:"ticket_id,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// New constructs a free slot at a fixed position.
func New(id string, pos geometry.Point) *Slot {
	return &Slot{ID: id, Position: pos, State: StateFree}
}

func (s *Slot) IsFree() bool {
	return s.State == StateFree
}

// CanReserve checks that the slot may be bound to a ticket. Use with
// ApplyReserve under the store's lock for atomic validate-then-mutate.
func (s *Slot) CanReserve() bool {
	return s.State.CanTransitionTo(StateReserved)
}

// ApplyReserve binds the slot to a ticket. Call CanReserve first.
func (s *Slot) ApplyReserve(ticketID string, now time.Time) {
	s.State = StateReserved
	s.TicketID = ticketID
	s.UpdatedAt = now
}

// CanConfirm checks that a sensor confirmation is legal for the current state.
func (s *Slot) CanConfirm() bool {
	return s.State.CanTransitionTo(StateConfirmed)
}

// ApplyConfirm marks the reservation as physically confirmed. The ticket
// linkage is untouched.
func (s *Slot) ApplyConfirm(now time.Time) {
	s.State = StateConfirmed
	s.UpdatedAt = now
}

// ApplyRelease returns the slot to Free and detaches the ticket. Legal from
// any state, so release stays idempotent.
func (s *Slot) ApplyRelease(now time.Time) {
	s.State = StateFree
	s.TicketID = ""
	s.UpdatedAt = now
}

// Clone returns an independent copy so callers never share store-owned memory.
func (s *Slot) Clone() *Slot {
	c := *s
	return &c
}
