package audit_test

import (
	"context"
	"testing"
	"time"

	"parktrust/internal/audit"
	"parktrust/internal/audit/store/memory"
)

func TestEmitFillsTimestamp(t *testing.T) {
	sink := memory.New()
	pub := audit.NewPublisher(sink)

	before := time.Now()
	err := pub.Emit(context.Background(), audit.Record{
		Kind:   audit.KindSlotReserved,
		SlotID: "A1",
		State:  "reserved",
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	recs := sink.List()
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].Timestamp.Before(before) {
		t.Fatal("expected Emit to stamp the record")
	}
}

func TestEmitKeepsExplicitTimestamp(t *testing.T) {
	sink := memory.New()
	pub := audit.NewPublisher(sink)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err := pub.Emit(context.Background(), audit.Record{
		Kind:      audit.KindTicketClosed,
		TicketID:  "tkt-1",
		Timestamp: at,
	})
	if err != nil {
		t.Fatalf("Emit: %v", err)
	}

	recs := sink.List()
	if !recs[0].Timestamp.Equal(at) {
		t.Fatalf("timestamp overwritten: %v", recs[0].Timestamp)
	}
}
