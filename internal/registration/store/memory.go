package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"clubhub/internal/registration/models"
	"clubhub/pkg/platform/sentinel"
)

type pairKey struct {
	userID  uuid.UUID
	eventID uuid.UUID
}

// InMemory enforces the same guarantees as the postgres store under a
// single mutex: one registration per (user, event), capacity checked
// atomically with the insert.
type InMemory struct {
	mu   sync.RWMutex
	byID map[pairKey]*models.Registration
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[pairKey]*models.Registration)}
}

// Create inserts the registration. maxCapacity, when non-nil, bounds the
// number of rows in registered status for the event; the check and the
// insert happen under one lock so concurrent registrations cannot both pass.
func (s *InMemory) Create(ctx context.Context, reg *models.Registration, maxCapacity *int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{reg.UserID, reg.EventID}
	if _, exists := s.byID[key]; exists {
		return sentinel.ErrConflict
	}
	if maxCapacity != nil {
		count := 0
		for _, r := range s.byID {
			if r.EventID == reg.EventID && r.Status == models.StatusRegistered {
				count++
			}
		}
		if count >= *maxCapacity {
			return sentinel.ErrCapacityFull
		}
	}
	s.byID[key] = clone(reg)
	return nil
}

func (s *InMemory) Find(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.byID[pairKey{userID, eventID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(reg), nil
}

// DeleteRegistered removes the registration only while it is still in
// registered status. A pair in any other status returns ErrInvalidState.
func (s *InMemory) DeleteRegistered(ctx context.Context, userID, eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{userID, eventID}
	reg, ok := s.byID[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if reg.Status != models.StatusRegistered {
		return sentinel.ErrInvalidState
	}
	delete(s.byID, key)
	return nil
}

func (s *InMemory) UpdateStatus(ctx context.Context, userID, eventID uuid.UUID, status models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.byID[pairKey{userID, eventID}]
	if !ok {
		return sentinel.ErrNotFound
	}
	reg.Status = status
	return nil
}

// ListByUser returns the user's registrations newest first, optionally
// filtered by status, with the total before paging.
func (s *InMemory) ListByUser(ctx context.Context, userID uuid.UUID, status *models.Status, offset, limit int) ([]*models.Registration, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Registration
	for _, r := range s.byID {
		if r.UserID == userID && (status == nil || r.Status == *status) {
			all = append(all, clone(r))
		}
	}
	return page(all, offset, limit)
}

func (s *InMemory) ListByEvent(ctx context.Context, eventID uuid.UUID, status *models.Status, offset, limit int) ([]*models.Registration, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Registration
	for _, r := range s.byID {
		if r.EventID == eventID && (status == nil || r.Status == *status) {
			all = append(all, clone(r))
		}
	}
	return page(all, offset, limit)
}

func (s *InMemory) CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.byID {
		if r.EventID == eventID {
			count++
		}
	}
	return count, nil
}

func (s *InMemory) CountByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.byID {
		if r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func page(all []*models.Registration, offset, limit int) ([]*models.Registration, int, error) {
	sort.Slice(all, func(i, j int) bool {
		return all[i].RegisteredAt.After(all[j].RegisteredAt)
	})
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func clone(r *models.Registration) *models.Registration {
	out := *r
	return &out
}
