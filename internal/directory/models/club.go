package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "clubhub/pkg/domain-errors"
)

// Club is the aggregate root for a student club.
//
// Invariants:
//   - Name is non-empty and at most 128 characters
//   - CoordinatorID is always set and always present in MemberIDs
//   - MemberIDs has set semantics (no duplicates)
//
// The coordinator is the single faculty user with mutation authority over the
// club's events' attendance records. Member-removal operations must never
// remove the coordinator; the service layer enforces this before touching the
// store.
type Club struct {
	ID            uuid.UUID   `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	CoordinatorID uuid.UUID   `json:"facultyCoordinatorId"`
	MemberIDs     []uuid.UUID `json:"members"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// IsCoordinator reports whether userID is this club's faculty coordinator.
func (c *Club) IsCoordinator(userID uuid.UUID) bool {
	return c.CoordinatorID == userID
}

// HasMember reports whether userID belongs to the club.
func (c *Club) HasMember(userID uuid.UUID) bool {
	for _, id := range c.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// MemberCount returns the number of club members, coordinator included.
func (c *Club) MemberCount() int {
	return len(c.MemberIDs)
}

func NewClub(clubID uuid.UUID, name, description string, coordinatorID uuid.UUID, now time.Time) (*Club, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "club name cannot be empty")
	}
	if len(name) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "club name must be 128 characters or less")
	}
	if coordinatorID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "club requires a faculty coordinator")
	}
	return &Club{
		ID:            clubID,
		Name:          name,
		Description:   description,
		CoordinatorID: coordinatorID,
		MemberIDs:     []uuid.UUID{coordinatorID},
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
