package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"parktrust/internal/ticket/models"
	"parktrust/pkg/sentinel"
)

// InMemory keeps the full ticket history in a map. Nothing is ever deleted.
type InMemory struct {
	mu      sync.RWMutex
	tickets map[string]*models.Ticket
}

func NewInMemory() *InMemory {
	return &InMemory{tickets: make(map[string]*models.Ticket)}
}

func (s *InMemory) Create(_ context.Context, t *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tickets[t.ID]; exists {
		return fmt.Errorf("ticket %q: %w", t.ID, sentinel.ErrConflict)
	}
	s.tickets[t.ID] = t.Clone()
	return nil
}

func (s *InMemory) Find(_ context.Context, ticketID string) (*models.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("ticket %q: %w", ticketID, sentinel.ErrNotFound)
	}
	return t.Clone(), nil
}

func (s *InMemory) Close(_ context.Context, ticketID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, fmt.Errorf("ticket %q: %w", ticketID, sentinel.ErrNotFound)
	}
	if !t.CanClose() {
		return nil, fmt.Errorf("ticket %q: %w", ticketID, ErrAlreadyExited)
	}
	t.ApplyClose(time.Now())
	return t.Clone(), nil
}
