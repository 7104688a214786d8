package club

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"clubhub/internal/directory/models"
	"clubhub/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded club store for tests and single-node runs.
type InMemory struct {
	mu     sync.RWMutex
	clubs  map[uuid.UUID]*models.Club
	byName map[string]uuid.UUID
}

func NewInMemory() *InMemory {
	return &InMemory{
		clubs:  make(map[uuid.UUID]*models.Club),
		byName: make(map[string]uuid.UUID),
	}
}

// CreateIfNameAvailable stores the club unless another club already holds the
// name (case-insensitive).
func (s *InMemory) CreateIfNameAvailable(ctx context.Context, c *models.Club) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(c.Name)
	if _, exists := s.byName[key]; exists {
		return sentinel.ErrConflict
	}
	s.clubs[c.ID] = cloneClub(c)
	s.byName[key] = c.ID
	return nil
}

func (s *InMemory) FindByID(ctx context.Context, id uuid.UUID) (*models.Club, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.clubs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return cloneClub(c), nil
}

// AddMember adds userID to the club's member set. Adding an existing member
// is a no-op.
func (s *InMemory) AddMember(ctx context.Context, clubID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clubs[clubID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !c.HasMember(userID) {
		c.MemberIDs = append(c.MemberIDs, userID)
	}
	return nil
}

// RemoveMember removes userID from the club's member set. The coordinator
// guard lives in the service, not here.
func (s *InMemory) RemoveMember(ctx context.Context, clubID, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.clubs[clubID]
	if !ok {
		return sentinel.ErrNotFound
	}
	for i, id := range c.MemberIDs {
		if id == userID {
			c.MemberIDs = append(c.MemberIDs[:i], c.MemberIDs[i+1:]...)
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func cloneClub(c *models.Club) *models.Club {
	out := *c
	out.MemberIDs = append([]uuid.UUID(nil), c.MemberIDs...)
	return &out
}
