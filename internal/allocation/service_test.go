package allocation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"parktrust/internal/audit"
	auditmemory "parktrust/internal/audit/store/memory"
	"parktrust/internal/geometry"
	"parktrust/internal/lot"
	slotmodels "parktrust/internal/slot/models"
	slotstore "parktrust/internal/slot/store"
	ticketmodels "parktrust/internal/ticket/models"
	ticketservice "parktrust/internal/ticket/service"
	ticketstore "parktrust/internal/ticket/store"
)

type EngineSuite struct {
	suite.Suite
	slots  *slotstore.InMemory
	geo    *geometry.Index
	sink   *auditmemory.Store
	engine *Engine
	ctx    context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	layout := lot.Default()
	s.slots = slotstore.FromLayout(layout)
	s.geo = geometry.NewIndex()
	layout.Apply(s.geo)
	s.sink = auditmemory.New()
	s.engine = s.newEngine(s.slots)
	s.ctx = context.Background()
}

func (s *EngineSuite) newEngine(slots slotstore.Store, opts ...Option) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ledger := ticketservice.NewLedger(ticketstore.NewInMemory(), slots,
		ticketservice.WithLogger(logger))
	base := []Option{
		WithLogger(logger),
		WithAuditEmitter(audit.NewPublisher(s.sink)),
	}
	return NewEngine(slots, s.geo, ledger, append(base, opts...)...)
}

func (s *EngineSuite) TestAllocateNearestFreeSlot() {
	// Gate_A sits at (0,0); A1 at distance 10 is the closest slot.
	res, err := s.engine.Allocate(s.ctx, "Gate_A", "DL-10-AB-1234")
	s.Require().NoError(err)
	s.Equal("A1", res.Slot.ID)
	s.Equal(10, res.Distance)
	s.Equal(slotmodels.StateReserved, res.Slot.State)
	s.Equal(res.Ticket.ID, res.Slot.TicketID)
	s.Equal(ticketmodels.StatusActive, res.Ticket.Status)
	s.Equal("Go to Grid (0, 10)", res.Directions)
}

func (s *EngineSuite) TestAllocateSkipsOccupiedSlots() {
	// Reserve and confirm B1 through the normal path, then check the gate
	// nearest to it allocates around it.
	_, err := s.slots.Reserve(s.ctx, "B1", "tkt-prior")
	s.Require().NoError(err)
	_, err = s.slots.Confirm(s.ctx, "B1")
	s.Require().NoError(err)

	// Gate_B at (20,0): B1 would be distance 10 but is occupied; next
	// closest free are A1 (30) and B2 (20).
	res, err := s.engine.Allocate(s.ctx, "Gate_B", "X")
	s.Require().NoError(err)
	s.Equal("B2", res.Slot.ID)
	s.Equal(20, res.Distance)
}

func (s *EngineSuite) TestUnknownGate() {
	_, err := s.engine.Allocate(s.ctx, "Gate_Z", "X")
	s.Require().ErrorIs(err, ErrUnknownGate)
}

func (s *EngineSuite) TestLotFull() {
	for _, id := range []string{"A1", "A2", "B1", "B2"} {
		_, err := s.slots.Reserve(s.ctx, id, "tkt-"+id)
		s.Require().NoError(err)
	}
	_, err := s.engine.Allocate(s.ctx, "Gate_A", "X")
	s.Require().ErrorIs(err, ErrLotFull)
}

func (s *EngineSuite) TestTieBreakIsDeterministic() {
	// Two free slots equidistant from the gate: the lower id must win, every
	// time, under identical state.
	layout := lot.Layout{
		Gates: []lot.Gate{{ID: "G", Position: geometry.Point{X: 0, Y: 0}}},
		Slots: []lot.SlotSpec{
			{ID: "S2", Position: geometry.Point{X: 10, Y: 0}},
			{ID: "S1", Position: geometry.Point{X: 0, Y: 10}},
		},
	}
	for i := 0; i < 10; i++ {
		slots := slotstore.FromLayout(layout)
		geo := geometry.NewIndex()
		layout.Apply(geo)
		s.geo = geo
		engine := s.newEngine(slots)

		res, err := engine.Allocate(s.ctx, "G", "X")
		s.Require().NoError(err)
		s.Equal("S1", res.Slot.ID, "iteration %d", i)
	}
}

func (s *EngineSuite) TestRetriesAfterLostRace() {
	contended := &contendedStore{InMemory: s.slots, failures: 2}
	engine := s.newEngine(contended)

	res, err := engine.Allocate(s.ctx, "Gate_A", "X")
	s.Require().NoError(err)
	s.NotNil(res)
	s.EqualValues(0, contended.failures)
}

func (s *EngineSuite) TestRetriesAreBounded() {
	contended := &contendedStore{InMemory: s.slots, failures: 100}
	engine := s.newEngine(contended, WithMaxRetries(3))

	_, err := engine.Allocate(s.ctx, "Gate_A", "X")
	s.Require().ErrorIs(err, ErrLotFull)
}

func (s *EngineSuite) TestRollbackWhenTicketIssueFails() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(s.slots, s.geo, failingIssuer{}, WithLogger(logger))

	_, err := engine.Allocate(s.ctx, "Gate_A", "X")
	s.Require().Error(err)

	// The reservation must have been rolled back.
	sl, err := s.slots.Get(s.ctx, "A1")
	s.Require().NoError(err)
	s.True(sl.IsFree())
	s.Empty(sl.TicketID)
}

// TestConcurrentAllocationsNeverShareASlot exercises the mutual exclusion
// invariant: for any interleaving, no two allocations win the same slot.
func (s *EngineSuite) TestConcurrentAllocationsNeverShareASlot() {
	const goroutines = 16
	var mu sync.Mutex
	winners := make(map[string]string)

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.engine.Allocate(context.Background(), "Gate_A", "X")
			if err != nil {
				if !errors.Is(err, ErrLotFull) {
					s.T().Errorf("unexpected allocation error: %v", err)
				}
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if prior, taken := winners[res.Slot.ID]; taken {
				s.T().Errorf("slot %s allocated to both %s and %s", res.Slot.ID, prior, res.Ticket.ID)
			}
			winners[res.Slot.ID] = res.Ticket.ID
		}()
	}
	wg.Wait()

	// The default lot has 4 slots, so at most 4 allocations may succeed.
	s.LessOrEqual(len(winners), 4)
	s.NotEmpty(winners)
}

// contendedStore makes the first n Reserve calls lose the race.
type contendedStore struct {
	*slotstore.InMemory
	mu       sync.Mutex
	failures int
}

func (c *contendedStore) Reserve(ctx context.Context, slotID, ticketID string) (*slotmodels.Slot, error) {
	c.mu.Lock()
	if c.failures > 0 {
		c.failures--
		c.mu.Unlock()
		return nil, slotstore.ErrSlotNotFree
	}
	c.mu.Unlock()
	return c.InMemory.Reserve(ctx, slotID, ticketID)
}

type failingIssuer struct{}

func (failingIssuer) Issue(context.Context, string, string, string, string) (*ticketmodels.Ticket, error) {
	return nil, errors.New("ledger unavailable")
}
