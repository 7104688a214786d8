package attendance

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/attendance/models"
	"clubhub/pkg/platform/sentinel"
)

// Filter narrows attendance listings. Nil fields match everything; From and
// To bound MarkedAt.
type Filter struct {
	EventID *uuid.UUID
	UserID  *uuid.UUID
	Status  *models.Status
	From    *time.Time
	To      *time.Time
}

func (f Filter) matches(a *models.Attendance) bool {
	if f.EventID != nil && a.EventID != *f.EventID {
		return false
	}
	if f.UserID != nil && a.UserID != *f.UserID {
		return false
	}
	if f.Status != nil && a.Status != *f.Status {
		return false
	}
	if f.From != nil && a.MarkedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && a.MarkedAt.After(*f.To) {
		return false
	}
	return true
}

type pairKey struct {
	userID  uuid.UUID
	eventID uuid.UUID
}

// InMemory keeps attendance records under a mutex with the same pair
// uniqueness the postgres store gets from its unique index.
type InMemory struct {
	mu      sync.RWMutex
	records map[pairKey]*models.Attendance
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[pairKey]*models.Attendance)}
}

// CreateOnly inserts the record and fails with ErrConflict when the pair is
// already marked. The QR path uses this so a re-scan never touches the
// existing record.
func (s *InMemory) CreateOnly(ctx context.Context, a *models.Attendance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{a.UserID, a.EventID}
	if _, exists := s.records[key]; exists {
		return sentinel.ErrConflict
	}
	s.records[key] = clone(a)
	return nil
}

// Upsert creates the record or overwrites status, notes, and marker on the
// existing one. The faculty path uses this; re-marking is idempotent.
func (s *InMemory) Upsert(ctx context.Context, a *models.Attendance) (*models.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{a.UserID, a.EventID}
	if existing, ok := s.records[key]; ok {
		existing.Status = a.Status
		existing.Notes = a.Notes
		existing.MarkedByID = a.MarkedByID
		existing.UpdatedAt = a.UpdatedAt
		return clone(existing), nil
	}
	s.records[key] = clone(a)
	return clone(a), nil
}

// Update overwrites status, notes, and marker on an existing record only.
func (s *InMemory) Update(ctx context.Context, userID, eventID uuid.UUID, status models.Status, notes string, markedByID uuid.UUID, now time.Time) (*models.Attendance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.records[pairKey{userID, eventID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	existing.Status = status
	existing.Notes = notes
	existing.MarkedByID = markedByID
	existing.UpdatedAt = now
	return clone(existing), nil
}

func (s *InMemory) Find(ctx context.Context, userID, eventID uuid.UUID) (*models.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.records[pairKey{userID, eventID}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// List returns matching records newest first with the total before paging.
func (s *InMemory) List(ctx context.Context, filter Filter, offset, limit int) ([]*models.Attendance, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*models.Attendance
	for _, a := range s.records {
		if filter.matches(a) {
			all = append(all, clone(a))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].MarkedAt.After(all[j].MarkedAt)
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

// CountByStatus tallies matching records per status.
func (s *InMemory) CountByStatus(ctx context.Context, filter Filter) (map[models.Status]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[models.Status]int)
	for _, a := range s.records {
		if filter.matches(a) {
			counts[a.Status]++
		}
	}
	return counts, nil
}

func clone(a *models.Attendance) *models.Attendance {
	out := *a
	return &out
}
