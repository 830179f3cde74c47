package store

import (
	"context"
	"fmt"

	"parktrust/internal/slot/models"
	"parktrust/pkg/sentinel"
)

// Store is the authoritative registry of slot state. Implementations must make
// every mutation atomic with respect to a single slot: no caller may observe a
// partially applied reserve, confirm, or release.
type Store interface {
	// ListFree returns copies of all slots currently in the Free state,
	// sorted by id so allocation's tie-break stays deterministic.
	ListFree(ctx context.Context) ([]*models.Slot, error)
	// Get returns a copy of one slot, or sentinel.ErrNotFound.
	Get(ctx context.Context, slotID string) (*models.Slot, error)
	// Reserve binds a free slot to a ticket. Fails with sentinel.ErrNotFound
	// for an unknown slot and ErrSlotNotFree when the slot is not Free.
	Reserve(ctx context.Context, slotID, ticketID string) (*models.Slot, error)
	// Confirm moves a reserved slot to Confirmed. Fails with
	// sentinel.ErrNotFound or ErrInvalidTransition when not Reserved.
	Confirm(ctx context.Context, slotID string) (*models.Slot, error)
	// Release returns a slot to Free and detaches its ticket. Idempotent when
	// already Free; fails only with sentinel.ErrNotFound.
	Release(ctx context.Context, slotID string) (*models.Slot, error)
}

// Domain errors layered on the infrastructure sentinels so callers can match
// either the specific failure or the broad category.
var (
	ErrSlotNotFree       = fmt.Errorf("slot not free: %w", sentinel.ErrConflict)
	ErrInvalidTransition = fmt.Errorf("invalid slot transition: %w", sentinel.ErrInvalidState)
)
