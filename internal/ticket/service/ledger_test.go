package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/suite"

	"parktrust/internal/audit"
	auditmemory "parktrust/internal/audit/store/memory"
	"parktrust/internal/lot"
	slotstore "parktrust/internal/slot/store"
	"parktrust/internal/ticket/models"
	"parktrust/internal/ticket/store"
	"parktrust/pkg/sentinel"
)

type LedgerSuite struct {
	suite.Suite
	slots  *slotstore.InMemory
	sink   *auditmemory.Store
	ledger *Ledger
	ctx    context.Context
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.slots = slotstore.FromLayout(lot.Default())
	s.sink = auditmemory.New()
	s.ledger = NewLedger(store.NewInMemory(), s.slots,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditEmitter(audit.NewPublisher(s.sink)),
	)
	s.ctx = context.Background()
}

func (s *LedgerSuite) TestIssueAndLookup() {
	t, err := s.ledger.Issue(s.ctx, "", "A1", "Gate_A", "DL-10-AB-1234")
	s.Require().NoError(err)
	s.NotEmpty(t.ID)
	s.Equal(models.StatusActive, t.Status)
	s.Equal("A1", t.SlotID)
	s.Equal("Gate_A", t.GateID)

	found, err := s.ledger.Lookup(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(t.ID, found.ID)
	s.Equal("DL-10-AB-1234", found.Plate)

	_, err = s.ledger.Lookup(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *LedgerSuite) TestCloseReleasesSlot() {
	_, err := s.slots.Reserve(s.ctx, "A1", "tkt-a1")
	s.Require().NoError(err)
	t, err := s.ledger.Issue(s.ctx, "tkt-a1", "A1", "Gate_A", "X")
	s.Require().NoError(err)

	closed, err := s.ledger.Close(s.ctx, t.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusExited, closed.Status)
	s.NotNil(closed.ExitedAt)

	sl, err := s.slots.Get(s.ctx, "A1")
	s.Require().NoError(err)
	s.True(sl.IsFree())
	s.Empty(sl.TicketID)

	kinds := make([]audit.Kind, 0)
	for _, rec := range s.sink.List() {
		kinds = append(kinds, rec.Kind)
	}
	s.Contains(kinds, audit.KindTicketClosed)
	s.Contains(kinds, audit.KindSlotReleased)
}

func (s *LedgerSuite) TestDoubleCloseReturnsAlreadyExited() {
	_, err := s.slots.Reserve(s.ctx, "A1", "tkt-a1")
	s.Require().NoError(err)
	t, err := s.ledger.Issue(s.ctx, "tkt-a1", "A1", "Gate_A", "X")
	s.Require().NoError(err)

	_, err = s.ledger.Close(s.ctx, t.ID)
	s.Require().NoError(err)

	// Another vehicle takes the freed slot; the stale second close must not
	// release it again.
	_, err = s.slots.Reserve(s.ctx, "A1", "tkt-next")
	s.Require().NoError(err)

	_, err = s.ledger.Close(s.ctx, t.ID)
	s.Require().ErrorIs(err, store.ErrAlreadyExited)

	sl, err := s.slots.Get(s.ctx, "A1")
	s.Require().NoError(err)
	s.Equal("tkt-next", sl.TicketID)
}

func (s *LedgerSuite) TestCloseUnknownTicket() {
	_, err := s.ledger.Close(s.ctx, "missing")
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

// TestConcurrentClose verifies the conditional close is the serialization
// point: exactly one of many concurrent exits wins.
func (s *LedgerSuite) TestConcurrentClose() {
	_, err := s.slots.Reserve(s.ctx, "A1", "tkt-a1")
	s.Require().NoError(err)
	t, err := s.ledger.Issue(s.ctx, "tkt-a1", "A1", "Gate_A", "X")
	s.Require().NoError(err)

	const goroutines = 32
	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ledger.Close(context.Background(), t.ID); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}
