// Package notification delivers best-effort messages (registration
// confirmations, event reminders). Senders must treat every failure as
// non-fatal: a dropped notification never rolls back the operation that
// triggered it.
package notification

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification for downstream consumers.
type Kind string

const (
	KindRegistrationConfirmed Kind = "registration_confirmed"
	KindEventReminder         Kind = "event_reminder"
)

// Notification is the transport-agnostic payload handed to a Notifier.
type Notification struct {
	Kind      Kind      `json:"kind"`
	UserID    uuid.UUID `json:"user_id"`
	EventID   uuid.UUID `json:"event_id"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Notifier sends a notification. Implementations decide the channel.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}
