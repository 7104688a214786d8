package qrsession

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/attendance/models"
	"clubhub/pkg/platform/sentinel"
)

// InMemory holds at most one session per event. Save overwrites, so
// regenerating a QR code invalidates the previous token immediately.
type InMemory struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.QRSession
	clock    func() time.Time
}

type Option func(s *InMemory)

func WithClock(clock func() time.Time) Option {
	return func(s *InMemory) {
		s.clock = clock
	}
}

func NewInMemory(opts ...Option) *InMemory {
	s := &InMemory{
		sessions: make(map[uuid.UUID]*models.QRSession),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemory) Save(ctx context.Context, session *models.QRSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *session
	s.sessions[session.EventID] = &copied
	return nil
}

// Find returns the event's current session. Expired sessions are treated as
// absent and dropped, mirroring the redis store's TTL.
func (s *InMemory) Find(ctx context.Context, eventID uuid.UUID) (*models.QRSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !s.clock().Before(session.ExpiresAt) {
		delete(s.sessions, eventID)
		return nil, sentinel.ErrNotFound
	}
	copied := *session
	return &copied, nil
}
