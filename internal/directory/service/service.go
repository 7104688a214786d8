package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clubhub/internal/directory/models"
	"clubhub/internal/identity"
	dErrors "clubhub/pkg/domain-errors"
	"clubhub/pkg/platform/sentinel"
)

type ClubStore interface {
	CreateIfNameAvailable(ctx context.Context, c *models.Club) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Club, error)
	AddMember(ctx context.Context, clubID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, clubID, userID uuid.UUID) error
}

type EventStore interface {
	Create(ctx context.Context, e *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	ListByClub(ctx context.Context, clubID uuid.UUID) ([]*models.Event, error)
}

// Service orchestrates club and event management. It exists so the
// registration/attendance core has real ownership facts to resolve against;
// directory features beyond that (search, imagery, dashboards) are out of
// scope.
type Service struct {
	clubs  ClubStore
	events EventStore
	logger *slog.Logger
	clock  func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// New constructs a Service.
func New(clubs ClubStore, events EventStore, opts ...Option) *Service {
	s := &Service{clubs: clubs, events: events, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateClub registers a club with the calling faculty member as coordinator.
func (s *Service) CreateClub(ctx context.Context, caller identity.Principal, req *models.CreateClubRequest) (*models.Club, error) {
	if !caller.IsFaculty() {
		return nil, dErrors.New(dErrors.CodeForbidden, "only faculty can create clubs")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	club, err := models.NewClub(uuid.New(), req.Name, req.Description, caller.ID, s.clock())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.clubs.CreateIfNameAvailable(ctx, club); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "club name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create club")
	}

	s.logInfo(ctx, "club created", "club_id", club.ID, "coordinator_id", caller.ID)
	return club, nil
}

// GetClub returns a club by id.
func (s *Service) GetClub(ctx context.Context, id uuid.UUID) (*models.Club, error) {
	club, err := s.clubs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "club not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load club")
	}
	return club, nil
}

// AddMember adds a user to the club. Only the coordinator may manage members.
func (s *Service) AddMember(ctx context.Context, caller identity.Principal, clubID, userID uuid.UUID) error {
	club, err := s.GetClub(ctx, clubID)
	if err != nil {
		return err
	}
	if !club.IsCoordinator(caller.ID) {
		return dErrors.New(dErrors.CodeForbidden, "only the club coordinator can manage members")
	}

	if err := s.clubs.AddMember(ctx, clubID, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "club not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to add member")
	}
	s.logInfo(ctx, "club member added", "club_id", clubID, "user_id", userID)
	return nil
}

// RemoveMember removes a user from the club. The coordinator can never be
// removed through this operation.
func (s *Service) RemoveMember(ctx context.Context, caller identity.Principal, clubID, userID uuid.UUID) error {
	club, err := s.GetClub(ctx, clubID)
	if err != nil {
		return err
	}
	if !club.IsCoordinator(caller.ID) {
		return dErrors.New(dErrors.CodeForbidden, "only the club coordinator can manage members")
	}
	if club.IsCoordinator(userID) {
		return dErrors.New(dErrors.CodeConflict, "the faculty coordinator cannot be removed from the club")
	}

	if err := s.clubs.RemoveMember(ctx, clubID, userID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user is not a member of this club")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove member")
	}
	s.logInfo(ctx, "club member removed", "club_id", clubID, "user_id", userID)
	return nil
}

// CreateEvent creates an event under a club. Only the club's coordinator may
// create events for it.
func (s *Service) CreateEvent(ctx context.Context, caller identity.Principal, req *models.CreateEventRequest) (*models.Event, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	club, err := s.GetClub(ctx, req.ClubID)
	if err != nil {
		return nil, err
	}
	if !caller.IsFaculty() || !club.IsCoordinator(caller.ID) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only the club coordinator can create events")
	}

	event, err := models.NewEvent(uuid.New(), req.Title, req.Description, req.Location, req.StartAt, req.EndAt, req.MaxCapacity, club.ID, caller.ID, s.clock())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create event")
	}
	s.logInfo(ctx, "event created", "event_id", event.ID, "club_id", club.ID)
	return event, nil
}

// GetEvent returns an event by id.
func (s *Service) GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	return event, nil
}

// DeactivateEvent closes an event to further registration.
func (s *Service) DeactivateEvent(ctx context.Context, caller identity.Principal, eventID uuid.UUID) error {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}
	club, err := s.GetClub(ctx, event.ClubID)
	if err != nil {
		return err
	}
	if !caller.IsFaculty() || !club.IsCoordinator(caller.ID) {
		return dErrors.New(dErrors.CodeForbidden, "only the club coordinator can deactivate events")
	}

	if err := s.events.SetActive(ctx, eventID, false); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate event")
	}
	s.logInfo(ctx, "event deactivated", "event_id", eventID)
	return nil
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}
