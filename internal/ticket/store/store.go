package store

import (
	"context"
	"fmt"

	"parktrust/internal/ticket/models"
	"parktrust/pkg/sentinel"
)

// Store is the append-only ticket ledger storage. Close must be serialized per
// ticket so two concurrent exits cannot both succeed.
type Store interface {
	// Create records a new ticket. Fails with sentinel.ErrConflict on a
	// duplicate id.
	Create(ctx context.Context, t *models.Ticket) error
	// Find returns a copy of one ticket, or sentinel.ErrNotFound.
	Find(ctx context.Context, ticketID string) (*models.Ticket, error)
	// Close marks an active ticket as exited and returns the closed ticket.
	// Fails with sentinel.ErrNotFound or ErrAlreadyExited.
	Close(ctx context.Context, ticketID string) (*models.Ticket, error)
}

// ErrAlreadyExited layers on the conflict sentinel: the ticket exists but the
// session was already closed.
var ErrAlreadyExited = fmt.Errorf("ticket already exited: %w", sentinel.ErrConflict)
