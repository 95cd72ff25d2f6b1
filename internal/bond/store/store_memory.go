package store

import (
	"context"
	"fmt"
	"sync"

	"veritasor/internal/bond/models"
	"veritasor/pkg/domain"
	"veritasor/pkg/platform/sentinel"
)

type redemptionKey struct {
	bondID domain.BondID
	period string
}

// InMemory keeps all bond state in process memory. Used by tests and local
// development; production deployments use the Postgres store.
type InMemory struct {
	mu          sync.RWMutex
	admin       domain.Identity
	nextBondID  domain.BondID
	bonds       map[domain.BondID]*models.Bond
	owners      map[domain.BondID]domain.Identity
	redemptions map[redemptionKey]*models.RedemptionRecord
	totals      map[domain.BondID]int64
}

// NewInMemory builds an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		bonds:       make(map[domain.BondID]*models.Bond),
		owners:      make(map[domain.BondID]domain.Identity),
		redemptions: make(map[redemptionKey]*models.RedemptionRecord),
		totals:      make(map[domain.BondID]int64),
	}
}

func (s *InMemory) SetAdmin(_ context.Context, admin domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.admin.IsNil() {
		return fmt.Errorf("admin already registered: %w", sentinel.ErrConflict)
	}
	s.admin = admin
	return nil
}

func (s *InMemory) GetAdmin(_ context.Context) (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.admin.IsNil() {
		return "", sentinel.ErrNotFound
	}
	return s.admin, nil
}

func (s *InMemory) CreateBond(_ context.Context, bond *models.Bond, owner domain.Identity) (domain.BondID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextBondID
	stored := *bond
	stored.ID = id

	s.bonds[id] = &stored
	s.owners[id] = owner
	s.totals[id] = 0
	s.nextBondID++

	bond.ID = id
	return id, nil
}

func (s *InMemory) GetBond(_ context.Context, id domain.BondID) (*models.Bond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bond, ok := s.bonds[id]
	if !ok {
		return nil, nil
	}
	copied := *bond
	return &copied, nil
}

func (s *InMemory) GetOwner(_ context.Context, id domain.BondID) (domain.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owners[id], nil
}

func (s *InMemory) SetOwner(_ context.Context, id domain.BondID, owner domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bonds[id]; !ok {
		return fmt.Errorf("bond %d: %w", id, sentinel.ErrNotFound)
	}
	s.owners[id] = owner
	return nil
}

func (s *InMemory) GetRedemption(_ context.Context, id domain.BondID, period string) (*models.RedemptionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.redemptions[redemptionKey{id, period}]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (s *InMemory) GetTotalRedeemed(_ context.Context, id domain.BondID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totals[id], nil
}

func (s *InMemory) ApplyRedemption(_ context.Context, rec *models.RedemptionRecord, newTotal int64, flip bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := redemptionKey{rec.BondID, rec.Period}
	if _, exists := s.redemptions[key]; exists {
		return fmt.Errorf("redemption for bond %d period %q: %w", rec.BondID, rec.Period, sentinel.ErrConflict)
	}
	bond, ok := s.bonds[rec.BondID]
	if !ok {
		return fmt.Errorf("bond %d: %w", rec.BondID, sentinel.ErrNotFound)
	}

	copied := *rec
	s.redemptions[key] = &copied
	s.totals[rec.BondID] = newTotal
	if flip {
		bond.Status = models.StatusFullyRedeemed
	}
	return nil
}

func (s *InMemory) SetStatus(_ context.Context, id domain.BondID, status models.BondStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bond, ok := s.bonds[id]
	if !ok {
		return fmt.Errorf("bond %d: %w", id, sentinel.ErrNotFound)
	}
	bond.Status = status
	return nil
}
