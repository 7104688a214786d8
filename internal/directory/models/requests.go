package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "clubhub/pkg/domain-errors"
)

// CreateClubRequest is the payload for club creation.
type CreateClubRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r *CreateClubRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

func (r *CreateClubRequest) Validate() error {
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	return nil
}

// CreateEventRequest is the payload for event creation.
type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartAt     time.Time `json:"startDate"`
	EndAt       time.Time `json:"endDate"`
	MaxCapacity *int      `json:"maxCapacity"`
	ClubID      uuid.UUID `json:"clubId"`
}

func (r *CreateEventRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
}

func (r *CreateEventRequest) Validate() error {
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.ClubID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "clubId is required")
	}
	if r.StartAt.IsZero() || r.EndAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "startDate and endDate are required")
	}
	if !r.StartAt.Before(r.EndAt) {
		return dErrors.New(dErrors.CodeValidation, "startDate must be before endDate")
	}
	if r.MaxCapacity != nil && *r.MaxCapacity <= 0 {
		return dErrors.New(dErrors.CodeValidation, "maxCapacity must be positive when set")
	}
	return nil
}
