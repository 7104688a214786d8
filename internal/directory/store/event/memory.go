package event

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"clubhub/internal/directory/models"
	"clubhub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded event store for tests and single-node runs.
type InMemory struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*models.Event
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[uuid.UUID]*models.Event)}
}

func (s *InMemory) Create(ctx context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[e.ID]; exists {
		return sentinel.ErrConflict
	}
	s.events[e.ID] = cloneEvent(e)
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneEvent(e), nil
}

func (s *InMemory) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.events[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.Active = active
	return nil
}

// ListByClub returns the club's events, newest first by start time.
func (s *InMemory) ListByClub(ctx context.Context, clubID uuid.UUID) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Event
	for _, e := range s.events {
		if e.ClubID == clubID {
			out = append(out, cloneEvent(e))
		}
	}
	sortEventsByStart(out)
	return out, nil
}

func sortEventsByStart(events []*models.Event) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j].StartAt.After(events[j-1].StartAt); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func cloneEvent(e *models.Event) *models.Event {
	out := *e
	if e.MaxCapacity != nil {
		capacity := *e.MaxCapacity
		out.MaxCapacity = &capacity
	}
	return &out
}
