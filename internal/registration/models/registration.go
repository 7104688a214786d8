package models

import (
	"time"

	"github.com/google/uuid"
)

// Status tracks a registration through its lifecycle:
// registered -> attended (happy path, set by the attendance recorder),
// registered -> cancelled (unregistration),
// registered -> no-show (faculty override).
type Status string

const (
	StatusRegistered Status = "registered"
	StatusCancelled  Status = "cancelled"
	StatusAttended   Status = "attended"
	StatusNoShow     Status = "no-show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusRegistered, StatusCancelled, StatusAttended, StatusNoShow:
		return true
	}
	return false
}

// ParticipantType is the role a registrant declares for an event,
// orthogonal to attendance.
type ParticipantType string

const (
	ParticipantClubMember ParticipantType = "club_member"
	ParticipantVolunteer  ParticipantType = "volunteer"
)

func (p ParticipantType) Valid() bool {
	return p == ParticipantClubMember || p == ParticipantVolunteer
}

// Registration records a user's intent to attend an event. At most one
// exists per (user, event) pair; the stores enforce that with a unique index.
type Registration struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"userId"`
	EventID         uuid.UUID       `json:"eventId"`
	ParticipantType ParticipantType `json:"participantType"`
	Status          Status          `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	RegisteredAt    time.Time       `json:"registrationDate"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func NewRegistration(userID, eventID uuid.UUID, participantType ParticipantType, notes string, now time.Time) *Registration {
	return &Registration{
		ID:              uuid.New(),
		UserID:          userID,
		EventID:         eventID,
		ParticipantType: participantType,
		Status:          StatusRegistered,
		Notes:           notes,
		RegisteredAt:    now,
		UpdatedAt:       now,
	}
}
