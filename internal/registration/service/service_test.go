package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	dirmodels "clubhub/internal/directory/models"
	"clubhub/internal/identity"
	"clubhub/internal/notification"
	"clubhub/internal/registration/models"
	"clubhub/internal/registration/store"
	dErrors "clubhub/pkg/domain-errors"
	"clubhub/pkg/pagination"
	"clubhub/pkg/platform/sentinel"
)

type fakeEventDirectory struct {
	events map[uuid.UUID]*dirmodels.Event
}

func (f *fakeEventDirectory) FindByID(ctx context.Context, id uuid.UUID) (*dirmodels.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return event, nil
}

type recordingNotifier struct {
	sent []notification.Notification
	err  error
}

func (n *recordingNotifier) Send(ctx context.Context, notif notification.Notification) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, notif)
	return nil
}

type RegistrationServiceSuite struct {
	suite.Suite
	ctx      context.Context
	events   *fakeEventDirectory
	notifier *recordingNotifier
	service  *Service
}

func TestRegistrationServiceSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceSuite))
}

func (s *RegistrationServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.events = &fakeEventDirectory{events: make(map[uuid.UUID]*dirmodels.Event)}
	s.notifier = &recordingNotifier{}
	s.service = New(store.NewInMemory(), s.events, WithNotifier(s.notifier))
}

func (s *RegistrationServiceSuite) addEvent(capacity *int, active bool) *dirmodels.Event {
	event := &dirmodels.Event{
		ID:          uuid.New(),
		Title:       "Tech Talk",
		StartAt:     time.Now().Add(time.Hour),
		EndAt:       time.Now().Add(3 * time.Hour),
		MaxCapacity: capacity,
		ClubID:      uuid.New(),
		OrganizerID: uuid.New(),
		Active:      active,
	}
	s.events.events[event.ID] = event
	return event
}

func capacityOf(n int) *int { return &n }

// TestRegister covers the happy path, duplicates, capacity, and inactive events.
func (s *RegistrationServiceSuite) TestRegister() {
	s.Run("registers and sends confirmation", func() {
		event := s.addEvent(nil, true)
		userID := uuid.New()

		reg, err := s.service.Register(s.ctx, userID, event.ID, models.ParticipantClubMember, "")
		s.Require().NoError(err)
		s.Equal(models.StatusRegistered, reg.Status)
		s.Require().Len(s.notifier.sent, 1)
		s.Equal(notification.KindRegistrationConfirmed, s.notifier.sent[0].Kind)
		s.Equal(userID, s.notifier.sent[0].UserID)
	})

	s.Run("defaults participant type to club_member", func() {
		event := s.addEvent(nil, true)

		reg, err := s.service.Register(s.ctx, uuid.New(), event.ID, "", "")
		s.Require().NoError(err)
		s.Equal(models.ParticipantClubMember, reg.ParticipantType)
	})

	s.Run("rejects unknown participant type", func() {
		event := s.addEvent(nil, true)

		_, err := s.service.Register(s.ctx, uuid.New(), event.ID, "spectator", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects duplicate registration with conflict", func() {
		event := s.addEvent(nil, true)
		userID := uuid.New()

		_, err := s.service.Register(s.ctx, userID, event.ID, models.ParticipantClubMember, "")
		s.Require().NoError(err)

		_, err = s.service.Register(s.ctx, userID, event.ID, models.ParticipantClubMember, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects registration beyond capacity", func() {
		event := s.addEvent(capacityOf(1), true)

		_, err := s.service.Register(s.ctx, uuid.New(), event.ID, models.ParticipantClubMember, "")
		s.Require().NoError(err)

		_, err = s.service.Register(s.ctx, uuid.New(), event.ID, models.ParticipantClubMember, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects unknown event", func() {
		_, err := s.service.Register(s.ctx, uuid.New(), uuid.New(), models.ParticipantClubMember, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("rejects inactive event", func() {
		event := s.addEvent(nil, false)

		_, err := s.service.Register(s.ctx, uuid.New(), event.ID, models.ParticipantClubMember, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("notification failure does not undo the registration", func() {
		event := s.addEvent(nil, true)
		userID := uuid.New()
		s.notifier.err = errors.New("broker unavailable")

		reg, err := s.service.Register(s.ctx, userID, event.ID, models.ParticipantClubMember, "")
		s.Require().NoError(err)
		s.NotNil(reg)

		found, err := s.service.Status(s.ctx, userID, event.ID)
		s.Require().NoError(err)
		s.Require().NotNil(found)
		s.Equal(models.StatusRegistered, found.Status)
	})
}

// TestUnregister covers deletion and its status guard.
func (s *RegistrationServiceSuite) TestUnregister() {
	s.Run("removes an existing registration", func() {
		event := s.addEvent(nil, true)
		userID := uuid.New()
		_, err := s.service.Register(s.ctx, userID, event.ID, models.ParticipantClubMember, "")
		s.Require().NoError(err)

		s.Require().NoError(s.service.Unregister(s.ctx, userID, event.ID))

		found, err := s.service.Status(s.ctx, userID, event.ID)
		s.Require().NoError(err)
		s.Nil(found)
	})

	s.Run("frees a capacity slot", func() {
		event := s.addEvent(capacityOf(1), true)
		first := uuid.New()
		_, err := s.service.Register(s.ctx, first, event.ID, models.ParticipantClubMember, "")
		s.Require().NoError(err)
		s.Require().NoError(s.service.Unregister(s.ctx, first, event.ID))

		_, err = s.service.Register(s.ctx, uuid.New(), event.ID, models.ParticipantClubMember, "")
		s.Require().NoError(err)
	})

	s.Run("returns not found when never registered", func() {
		err := s.service.Unregister(s.ctx, uuid.New(), uuid.New())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestListing covers the user and event list operations.
func (s *RegistrationServiceSuite) TestListing() {
	s.Run("lists own registrations", func() {
		userID := uuid.New()
		for range 3 {
			event := s.addEvent(nil, true)
			_, err := s.service.Register(s.ctx, userID, event.ID, models.ParticipantClubMember, "")
			s.Require().NoError(err)
		}

		page, err := s.service.ListForUser(s.ctx, userID, nil, pagination.Params{Page: 1, Limit: 2})
		s.Require().NoError(err)
		s.Equal(3, page.TotalDocs)
		s.Equal(2, page.TotalPages)
		s.Len(page.Docs, 2)
	})

	s.Run("faculty lists event registrations", func() {
		event := s.addEvent(nil, true)
		_, err := s.service.Register(s.ctx, uuid.New(), event.ID, models.ParticipantClubMember, "")
		s.Require().NoError(err)

		faculty := identity.Principal{ID: uuid.New(), Role: identity.RoleFaculty}
		page, err := s.service.ListForEvent(s.ctx, faculty, event.ID, nil, pagination.Params{Page: 1, Limit: 10})
		s.Require().NoError(err)
		s.Equal(1, page.TotalDocs)
	})

	s.Run("students cannot list event registrations", func() {
		event := s.addEvent(nil, true)
		student := identity.Principal{ID: uuid.New(), Role: identity.RoleStudent}

		_, err := s.service.ListForEvent(s.ctx, student, event.ID, nil, pagination.Params{Page: 1, Limit: 10})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("event listing rejects unknown event", func() {
		faculty := identity.Principal{ID: uuid.New(), Role: identity.RoleFaculty}

		_, err := s.service.ListForEvent(s.ctx, faculty, uuid.New(), nil, pagination.Params{Page: 1, Limit: 10})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
