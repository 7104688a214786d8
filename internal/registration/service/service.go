package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dirmodels "clubhub/internal/directory/models"
	"clubhub/internal/identity"
	"clubhub/internal/notification"
	"clubhub/internal/platform/metrics"
	"clubhub/internal/registration/models"
	dErrors "clubhub/pkg/domain-errors"
	"clubhub/pkg/pagination"
	"clubhub/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, reg *models.Registration, maxCapacity *int) error
	Find(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error)
	DeleteRegistered(ctx context.Context, userID, eventID uuid.UUID) error
	UpdateStatus(ctx context.Context, userID, eventID uuid.UUID, status models.Status) error
	ListByUser(ctx context.Context, userID uuid.UUID, status *models.Status, offset, limit int) ([]*models.Registration, int, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID, status *models.Status, offset, limit int) ([]*models.Registration, int, error)
}

type EventDirectory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*dirmodels.Event, error)
}

// Service is the registration ledger: it owns the one-registration-per-pair
// and capacity rules and is the only writer of registration rows besides the
// attendance recorder's status cross-update.
type Service struct {
	store    Store
	events   EventDirectory
	notifier notification.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithNotifier(n notification.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// New constructs a Service.
func New(store Store, events EventDirectory, opts ...Option) *Service {
	s := &Service{store: store, events: events, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register records the caller's intent to attend an event. Duplicate
// registrations and capacity are rejected by the store atomically; the
// confirmation notification is best-effort and never rolls back the write.
func (s *Service) Register(ctx context.Context, userID, eventID uuid.UUID, participantType models.ParticipantType, notes string) (*models.Registration, error) {
	if participantType == "" {
		participantType = models.ParticipantClubMember
	}
	if !participantType.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid participant type")
	}

	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}
	if !event.Active {
		return nil, dErrors.New(dErrors.CodeNotFound, "event is no longer active")
	}

	reg := models.NewRegistration(userID, eventID, participantType, notes, s.clock())
	if err := s.store.Create(ctx, reg, event.MaxCapacity); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "you are already registered for this event")
		case errors.Is(err, sentinel.ErrCapacityFull):
			return nil, dErrors.New(dErrors.CodeConflict, "event is at full capacity")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create registration")
		}
	}

	s.logInfo(ctx, "registration created",
		"registration_id", reg.ID,
		"user_id", userID,
		"event_id", eventID,
	)
	if s.metrics != nil {
		s.metrics.RegistrationsCreated.Inc()
	}
	s.notifyConfirmation(ctx, reg, event)

	return reg, nil
}

// Unregister deletes the caller's registration. Only registrations still in
// registered status may be removed.
func (s *Service) Unregister(ctx context.Context, userID, eventID uuid.UUID) error {
	if err := s.store.DeleteRegistered(ctx, userID, eventID); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "you are not registered for this event")
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodeConflict, "registration can no longer be cancelled")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete registration")
		}
	}

	s.logInfo(ctx, "registration cancelled", "user_id", userID, "event_id", eventID)
	if s.metrics != nil {
		s.metrics.RegistrationsCancelled.Inc()
	}
	return nil
}

// ListForUser returns the user's own registrations.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, status *models.Status, params pagination.Params) (pagination.Page[*models.Registration], error) {
	docs, total, err := s.store.ListByUser(ctx, userID, status, params.Offset(), params.Limit)
	if err != nil {
		return pagination.Page[*models.Registration]{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return pagination.NewPage(docs, total, params), nil
}

// ListForEvent returns an event's registrations. Faculty only.
func (s *Service) ListForEvent(ctx context.Context, caller identity.Principal, eventID uuid.UUID, status *models.Status, params pagination.Params) (pagination.Page[*models.Registration], error) {
	var zero pagination.Page[*models.Registration]
	if !caller.IsFaculty() {
		return zero, dErrors.New(dErrors.CodeForbidden, "only faculty can view event registrations")
	}
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return zero, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	docs, total, err := s.store.ListByEvent(ctx, eventID, status, params.Offset(), params.Limit)
	if err != nil {
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	return pagination.NewPage(docs, total, params), nil
}

// Status reports whether the user is registered for the event.
func (s *Service) Status(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error) {
	reg, err := s.store.Find(ctx, userID, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}
	return reg, nil
}

func (s *Service) notifyConfirmation(ctx context.Context, reg *models.Registration, event *dirmodels.Event) {
	if s.notifier == nil {
		return
	}
	n := notification.Notification{
		Kind:      notification.KindRegistrationConfirmed,
		UserID:    reg.UserID,
		EventID:   reg.EventID,
		Subject:   fmt.Sprintf("Registration Confirmed: %s", event.Title),
		Message:   fmt.Sprintf("You have successfully registered for %s.", event.Title),
		Timestamp: s.clock(),
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		// Best-effort: the registration stands even when delivery fails.
		s.logWarn(ctx, "confirmation notification failed",
			"error", err,
			"user_id", reg.UserID,
			"event_id", reg.EventID,
		)
		if s.metrics != nil {
			s.metrics.NotificationsDropped.Inc()
		}
	}
}

func (s *Service) logInfo(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, msg, args...)
	}
}

func (s *Service) logWarn(ctx context.Context, msg string, args ...any) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, args...)
	}
}
