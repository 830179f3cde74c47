package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"parktrust/internal/ticket/models"
	"parktrust/pkg/sentinel"
)

// Postgres persists the ticket history. Close uses a conditional UPDATE so
// concurrent exits for the same ticket resolve to exactly one winner.
//
// Schema:
//
//	CREATE TABLE tickets (
//	    id        TEXT PRIMARY KEY,
//	    plate     TEXT NOT NULL,
//	    gate_id   TEXT NOT NULL,
//	    slot_id   TEXT NOT NULL,
//	    status    TEXT NOT NULL DEFAULT 'active',
//	    issued_at TIMESTAMPTZ NOT NULL,
//	    exited_at TIMESTAMPTZ
//	);
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const ticketColumns = `id, plate, gate_id, slot_id, status, issued_at, exited_at`

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(&t.ID, &t.Plate, &t.GateID, &t.SlotID, &t.Status, &t.IssuedAt, &t.ExitedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Postgres) Create(ctx context.Context, t *models.Ticket) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tickets (id, plate, gate_id, slot_id, status, issued_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.Plate, t.GateID, t.SlotID, t.Status, t.IssuedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("ticket %q: %w", t.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create ticket: %w", err)
	}
	return nil
}

func (s *Postgres) Find(ctx context.Context, ticketID string) (*models.Ticket, error) {
	t, err := scanTicket(s.pool.QueryRow(ctx,
		`SELECT `+ticketColumns+` FROM tickets WHERE id = $1`, ticketID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("ticket %q: %w", ticketID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find ticket: %w", err)
	}
	return t, nil
}

func (s *Postgres) Close(ctx context.Context, ticketID string) (*models.Ticket, error) {
	t, err := scanTicket(s.pool.QueryRow(ctx,
		`UPDATE tickets SET status = 'exited', exited_at = now()
		 WHERE id = $1 AND status = 'active'
		 RETURNING `+ticketColumns, ticketID))
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("close ticket: %w", err)
	}
	// No row updated: unknown ticket or already exited.
	if _, findErr := s.Find(ctx, ticketID); findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("ticket %q: %w", ticketID, ErrAlreadyExited)
}
