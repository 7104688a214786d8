package models

import (
	"time"

	"github.com/google/uuid"

	regmodels "clubhub/internal/registration/models"
)

// Status is the recorded outcome for one attendee at one event.
type Status string

const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusLate    Status = "late"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusLate:
		return true
	}
	return false
}

// RegistrationStatus returns the registration status implied by an attendance
// outcome. The mapping is fixed: present and late count as attended, absent
// as a no-show.
func (s Status) RegistrationStatus() regmodels.Status {
	if s == StatusAbsent {
		return regmodels.StatusNoShow
	}
	return regmodels.StatusAttended
}

// Attendance is one user's recorded presence at one event. At most one row
// exists per (user, event) pair.
type Attendance struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"userId"`
	EventID    uuid.UUID `json:"eventId"`
	Status     Status    `json:"status"`
	MarkedByID uuid.UUID `json:"markedBy"`
	MarkedAt   time.Time `json:"markedAt"`
	UpdatedAt  time.Time `json:"updated_at"`
	Notes      string    `json:"notes,omitempty"`
}

func NewAttendance(userID, eventID, markedByID uuid.UUID, status Status, notes string, now time.Time) *Attendance {
	return &Attendance{
		ID:         uuid.New(),
		UserID:     userID,
		EventID:    eventID,
		Status:     status,
		MarkedByID: markedByID,
		MarkedAt:   now,
		UpdatedAt:  now,
		Notes:      notes,
	}
}
