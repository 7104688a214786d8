package models

import (
	"time"

	"github.com/google/uuid"
)

// QRSession is the single active proof-of-presence token for an event.
// Generating a new session replaces the previous one, which immediately stops
// validating even if its own expiry has not passed.
type QRSession struct {
	EventID     uuid.UUID
	Token       string
	ExpiresAt   time.Time
	CreatedByID uuid.UUID
}

// Valid reports whether the given token matches this session and the session
// has not expired at the given instant.
func (s *QRSession) Valid(token string, now time.Time) bool {
	return s != nil && s.Token == token && now.Before(s.ExpiresAt)
}

// QRPayload is the JSON document encoded into the QR image. Scanners post it
// back verbatim.
type QRPayload struct {
	EventID   uuid.UUID `json:"eventId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Type      string    `json:"type"`
}

// PayloadTypeAttendance is the only accepted payload type.
const PayloadTypeAttendance = "attendance"
