package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "clubhub/pkg/domain-errors"
)

// Event is a club event that students register for.
//
// Invariants:
//   - Title is non-empty
//   - StartAt is strictly before EndAt
//   - MaxCapacity, when set, is positive; nil means unlimited
//
// The registration count limit against MaxCapacity is enforced by the
// registration store at write time, not here.
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	StartAt     time.Time `json:"startDate"`
	EndAt       time.Time `json:"endDate"`
	MaxCapacity *int      `json:"maxCapacity"`
	ClubID      uuid.UUID `json:"clubId"`
	OrganizerID uuid.UUID `json:"organizerId"`
	Active      bool      `json:"isActive"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsUpcoming reports whether the event has not started yet.
func (e *Event) IsUpcoming(now time.Time) bool {
	return e.StartAt.After(now)
}

// IsOngoing reports whether now falls inside the event window.
func (e *Event) IsOngoing(now time.Time) bool {
	return !e.StartAt.After(now) && !e.EndAt.Before(now)
}

func NewEvent(eventID uuid.UUID, title, description, location string, startAt, endAt time.Time, maxCapacity *int, clubID, organizerID uuid.UUID, now time.Time) (*Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event title cannot be empty")
	}
	if !startAt.Before(endAt) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event must start before it ends")
	}
	if maxCapacity != nil && *maxCapacity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event capacity must be positive when set")
	}
	if clubID == uuid.Nil {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event must belong to a club")
	}
	return &Event{
		ID:          eventID,
		Title:       title,
		Description: description,
		Location:    location,
		StartAt:     startAt,
		EndAt:       endAt,
		MaxCapacity: maxCapacity,
		ClubID:      clubID,
		OrganizerID: organizerID,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
