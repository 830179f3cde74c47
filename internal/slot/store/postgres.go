package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parktrust/internal/slot/models"
	"parktrust/pkg/sentinel"
)

// Postgres persists the slot registry. Conditional UPDATEs make each
// transition atomic at the row level, so the free -> reserved race resolves
// inside the database.
//
// Schema:
//
//	CREATE TABLE slots (
//	    id         TEXT PRIMARY KEY,
//	    x          INT NOT NULL,
//	    y          INT NOT NULL,
//	    state      TEXT NOT NULL DEFAULT 'free',
//	    ticket_id  TEXT,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

const slotColumns = `id, x, y, state, COALESCE(ticket_id, ''), updated_at`

func scanSlot(row pgx.Row) (*models.Slot, error) {
	var sl models.Slot
	err := row.Scan(&sl.ID, &sl.Position.X, &sl.Position.Y, &sl.State, &sl.TicketID, &sl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &sl, nil
}

func (s *Postgres) ListFree(ctx context.Context) ([]*models.Slot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE state = 'free' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list free slots: %w", err)
	}
	defer rows.Close()

	var free []*models.Slot
	for rows.Next() {
		sl, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		free = append(free, sl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list free slots: %w", err)
	}
	return free, nil
}

func (s *Postgres) Get(ctx context.Context, slotID string) (*models.Slot, error) {
	sl, err := scanSlot(s.pool.QueryRow(ctx,
		`SELECT `+slotColumns+` FROM slots WHERE id = $1`, slotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("slot %q: %w", slotID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("get slot: %w", err)
	}
	return sl, nil
}

func (s *Postgres) Reserve(ctx context.Context, slotID, ticketID string) (*models.Slot, error) {
	sl, err := scanSlot(s.pool.QueryRow(ctx,
		`UPDATE slots SET state = 'reserved', ticket_id = $2, updated_at = now()
		 WHERE id = $1 AND state = 'free'
		 RETURNING `+slotColumns, slotID, ticketID))
	if err == nil {
		return sl, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reserve slot: %w", err)
	}
	// No row updated: unknown slot or lost the race. Re-read to tell them apart.
	cur, getErr := s.Get(ctx, slotID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("slot %q in state %s: %w", slotID, cur.State, ErrSlotNotFree)
}

func (s *Postgres) Confirm(ctx context.Context, slotID string) (*models.Slot, error) {
	sl, err := scanSlot(s.pool.QueryRow(ctx,
		`UPDATE slots SET state = 'confirmed', updated_at = now()
		 WHERE id = $1 AND state = 'reserved'
		 RETURNING `+slotColumns, slotID))
	if err == nil {
		return sl, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("confirm slot: %w", err)
	}
	cur, getErr := s.Get(ctx, slotID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("slot %q in state %s: %w", slotID, cur.State, ErrInvalidTransition)
}

func (s *Postgres) Release(ctx context.Context, slotID string) (*models.Slot, error) {
	sl, err := scanSlot(s.pool.QueryRow(ctx,
		`UPDATE slots SET state = 'free', ticket_id = NULL, updated_at = now()
		 WHERE id = $1
		 RETURNING `+slotColumns, slotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("slot %q: %w", slotID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("release slot: %w", err)
	}
	return sl, nil
}

// Seed inserts missing slots from a layout; existing rows keep their state.
func (s *Postgres) Seed(ctx context.Context, slots []*models.Slot) error {
	for _, sl := range slots {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO slots (id, x, y, state) VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO NOTHING`,
			sl.ID, sl.Position.X, sl.Position.Y, sl.State)
		if err != nil {
			return fmt.Errorf("seed slot %q: %w", sl.ID, err)
		}
	}
	return nil
}
