package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"parktrust/internal/audit"
)

// Store appends audit records to an insert-only table. There is no update or
// delete path; retention is an operational concern.
//
// Schema:
//
//	CREATE TABLE audit_records (
//	    seq        BIGSERIAL PRIMARY KEY,
//	    kind       TEXT NOT NULL,
//	    slot_id    TEXT,
//	    ticket_id  TEXT,
//	    state      TEXT,
//	    detail     TEXT,
//	    created_at TIMESTAMPTZ NOT NULL
//	);
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, rec audit.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO audit_records (kind, slot_id, ticket_id, state, detail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.Kind, rec.SlotID, rec.TicketID, rec.State, rec.Detail, rec.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}
