package memory

import (
	"context"
	"sync"

	"veritasor/pkg/domain"
	audit "veritasor/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.BondID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.BondID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[domain.BondID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.BondID] = append(s.events[event.BondID], event)
	return nil
}

func (s *InMemoryStore) ListByBond(_ context.Context, bondID domain.BondID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[bondID]...), nil
}

// ListAll returns all audit events across all bonds (admin-only operation)
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var allEvents []audit.Event
	for _, bondEvents := range s.events {
		allEvents = append(allEvents, bondEvents...)
	}
	return allEvents, nil
}
