package redisstream

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"parktrust/internal/audit"
)

const defaultStream = "parktrust:audit"

// Store appends audit records to a Redis stream. XADD is append-only by
// construction, which is the integrity property the sink contract asks for;
// downstream consumers read the stream with their own consumer groups.
type Store struct {
	client *redis.Client
	stream string
}

func New(client *redis.Client, stream string) *Store {
	if stream == "" {
		stream = defaultStream
	}
	return &Store{client: client, stream: stream}
}

func (s *Store) Append(ctx context.Context, rec audit.Record) error {
	err := s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"kind":      string(rec.Kind),
			"slot_id":   rec.SlotID,
			"ticket_id": rec.TicketID,
			"state":     rec.State,
			"detail":    rec.Detail,
			"ts":        rec.Timestamp.UnixMilli(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd audit record: %w", err)
	}
	return nil
}
