package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"parktrust/internal/lot"
	"parktrust/internal/slot/models"
	"parktrust/pkg/sentinel"
)

// InMemory is the registry used in tests and single-process deployments.
// The mutex is held only for map access and the per-slot mutation itself,
// never across allocation's distance scan.
type InMemory struct {
	mu    sync.RWMutex
	slots map[string]*models.Slot
}

func NewInMemory(slots ...*models.Slot) *InMemory {
	s := &InMemory{slots: make(map[string]*models.Slot, len(slots))}
	for _, sl := range slots {
		s.slots[sl.ID] = sl.Clone()
	}
	return s
}

// FromLayout seeds a registry with every slot of a lot layout, all Free.
func FromLayout(l lot.Layout) *InMemory {
	return NewInMemory(SlotsFromLayout(l)...)
}

// SlotsFromLayout builds the free slots a layout describes, for seeding any
// Store implementation.
func SlotsFromLayout(l lot.Layout) []*models.Slot {
	slots := make([]*models.Slot, 0, len(l.Slots))
	for _, spec := range l.Slots {
		slots = append(slots, models.New(spec.ID, spec.Position))
	}
	return slots
}

func (s *InMemory) ListFree(_ context.Context) ([]*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	free := make([]*models.Slot, 0, len(s.slots))
	for _, sl := range s.slots {
		if sl.IsFree() {
			free = append(free, sl.Clone())
		}
	}
	// Stable order keeps allocation's tie-break deterministic regardless of
	// map iteration order.
	sort.Slice(free, func(i, j int) bool { return free[i].ID < free[j].ID })
	return free, nil
}

func (s *InMemory) Get(_ context.Context, slotID string) (*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sl, ok := s.slots[slotID]
	if !ok {
		return nil, fmt.Errorf("slot %q: %w", slotID, sentinel.ErrNotFound)
	}
	return sl.Clone(), nil
}

func (s *InMemory) Reserve(_ context.Context, slotID, ticketID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[slotID]
	if !ok {
		return nil, fmt.Errorf("slot %q: %w", slotID, sentinel.ErrNotFound)
	}
	if !sl.CanReserve() {
		return nil, fmt.Errorf("slot %q in state %s: %w", slotID, sl.State, ErrSlotNotFree)
	}
	sl.ApplyReserve(ticketID, time.Now())
	return sl.Clone(), nil
}

func (s *InMemory) Confirm(_ context.Context, slotID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[slotID]
	if !ok {
		return nil, fmt.Errorf("slot %q: %w", slotID, sentinel.ErrNotFound)
	}
	if !sl.CanConfirm() {
		return nil, fmt.Errorf("slot %q in state %s: %w", slotID, sl.State, ErrInvalidTransition)
	}
	sl.ApplyConfirm(time.Now())
	return sl.Clone(), nil
}

func (s *InMemory) Release(_ context.Context, slotID string) (*models.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[slotID]
	if !ok {
		return nil, fmt.Errorf("slot %q: %w", slotID, sentinel.ErrNotFound)
	}
	sl.ApplyRelease(time.Now())
	return sl.Clone(), nil
}
