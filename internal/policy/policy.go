// Package policy is the single authorization choke point for attendance and
// QR mutations. Every privileged entry point routes through it instead of
// re-implementing the coordinator comparison per handler.
package policy

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"clubhub/internal/directory/models"
	"clubhub/internal/identity"
	dErrors "clubhub/pkg/domain-errors"
	"clubhub/pkg/platform/sentinel"
)

// CanMutateAttendance is the strict check: the caller must be faculty AND the
// coordinator of the club that owns the event. Pure so it can be unit-tested
// in isolation.
func CanMutateAttendance(caller identity.Principal, club *models.Club) bool {
	return caller.IsFaculty() && club != nil && club.IsCoordinator(caller.ID)
}

// CanViewReports is the loose check gating read-only report operations:
// faculty may view records outside their own clubs.
func CanViewReports(caller identity.Principal) bool {
	return caller.IsFaculty()
}

type EventSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type ClubSource interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Club, error)
}

// Service resolves ownership facts and applies the checks above. It re-reads
// the event's club on every call; a cached coordinator id could authorize a
// caller who has since been replaced.
type Service struct {
	events EventSource
	clubs  ClubSource
}

func New(events EventSource, clubs ClubSource) *Service {
	return &Service{events: events, clubs: clubs}
}

// AuthorizeAttendanceMutation resolves the event and its club fresh, then
// applies the strict check. On success it returns both so callers do not
// repeat the lookups within the same request.
func (s *Service) AuthorizeAttendanceMutation(ctx context.Context, caller identity.Principal, eventID uuid.UUID) (*models.Event, *models.Club, error) {
	event, club, err := s.Resolve(ctx, eventID)
	if err != nil {
		return nil, nil, err
	}
	if !CanMutateAttendance(caller, club) {
		return nil, nil, dErrors.New(dErrors.CodeForbidden, "only the faculty coordinator of the event's club can do this")
	}
	return event, club, nil
}

// Resolve loads the event and its owning club without applying any check.
func (s *Service) Resolve(ctx context.Context, eventID uuid.UUID) (*models.Event, *models.Club, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	club, err := s.clubs.FindByID(ctx, event.ClubID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil, dErrors.New(dErrors.CodeNotFound, "club not found")
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load club")
	}
	return event, club, nil
}
