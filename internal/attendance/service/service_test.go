package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"clubhub/internal/attendance/models"
	attstore "clubhub/internal/attendance/store/attendance"
	"clubhub/internal/attendance/store/qrsession"
	dirmodels "clubhub/internal/directory/models"
	clubstore "clubhub/internal/directory/store/club"
	eventstore "clubhub/internal/directory/store/event"
	"clubhub/internal/identity"
	"clubhub/internal/policy"
	regmodels "clubhub/internal/registration/models"
	regstore "clubhub/internal/registration/store"
	dErrors "clubhub/pkg/domain-errors"
	"clubhub/pkg/pagination"
)

type AttendanceServiceSuite struct {
	suite.Suite
	ctx         context.Context
	now         time.Time
	attendance  *attstore.InMemory
	sessions    *qrsession.InMemory
	ledger      *regstore.InMemory
	clubs       *clubstore.InMemory
	events      *eventstore.InMemory
	service     *Service
	coordinator identity.Principal
	event       *dirmodels.Event
}

func TestAttendanceServiceSuite(t *testing.T) {
	suite.Run(t, new(AttendanceServiceSuite))
}

func (s *AttendanceServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	s.attendance = attstore.NewInMemory()
	s.sessions = qrsession.NewInMemory(qrsession.WithClock(func() time.Time { return s.now }))
	s.ledger = regstore.NewInMemory()
	s.clubs = clubstore.NewInMemory()
	s.events = eventstore.NewInMemory()

	s.coordinator = identity.Principal{ID: uuid.New(), Role: identity.RoleFaculty}
	club, err := dirmodels.NewClub(uuid.New(), "Robotics Club", "", s.coordinator.ID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.clubs.CreateIfNameAvailable(s.ctx, club))

	s.event, err = dirmodels.NewEvent(uuid.New(), "Demo Day", "", "Lab 3",
		s.now.Add(time.Hour), s.now.Add(4*time.Hour), nil, club.ID, s.coordinator.ID, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.events.Create(s.ctx, s.event))

	s.service = New(s.attendance, s.sessions, s.ledger, policy.New(s.events, s.clubs),
		WithClock(func() time.Time { return s.now }))
}

func (s *AttendanceServiceSuite) registerUser() uuid.UUID {
	userID := uuid.New()
	reg := regmodels.NewRegistration(userID, s.event.ID, regmodels.ParticipantClubMember, "", s.now)
	s.Require().NoError(s.ledger.Create(s.ctx, reg, nil))
	return userID
}

func (s *AttendanceServiceSuite) generatePayload() models.QRPayload {
	qr, err := s.service.GenerateQR(s.ctx, s.coordinator, s.event.ID)
	s.Require().NoError(err)
	s.Require().NotNil(qr)

	session, err := s.sessions.Find(s.ctx, s.event.ID)
	s.Require().NoError(err)
	return models.QRPayload{
		EventID:   s.event.ID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Type:      models.PayloadTypeAttendance,
	}
}

// TestGenerateQR covers authorization and the rendered artifact.
func (s *AttendanceServiceSuite) TestGenerateQR() {
	s.Run("coordinator gets a data URL and expiry", func() {
		qr, err := s.service.GenerateQR(s.ctx, s.coordinator, s.event.ID)
		s.Require().NoError(err)
		s.True(strings.HasPrefix(qr.QRCodeURL, "data:image/png;base64,"))
		s.Equal(s.now.Add(30*time.Minute), qr.ExpiresAt)
	})

	s.Run("non-coordinator faculty is forbidden", func() {
		other := identity.Principal{ID: uuid.New(), Role: identity.RoleFaculty}
		_, err := s.service.GenerateQR(s.ctx, other, s.event.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("student is forbidden", func() {
		student := identity.Principal{ID: uuid.New(), Role: identity.RoleStudent}
		_, err := s.service.GenerateQR(s.ctx, student, s.event.ID)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown event is not found", func() {
		_, err := s.service.GenerateQR(s.ctx, s.coordinator, uuid.New())
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestTokenLifetime covers the 30 minute window and regeneration.
func (s *AttendanceServiceSuite) TestTokenLifetime() {
	s.Run("scan at 29 minutes succeeds", func() {
		userID := s.registerUser()
		payload := s.generatePayload()

		s.now = s.now.Add(29 * time.Minute)
		att, err := s.service.MarkByQR(s.ctx, userID, payload)
		s.Require().NoError(err)
		s.Equal(models.StatusPresent, att.Status)
	})

	s.Run("scan at 31 minutes conflicts as expired", func() {
		userID := s.registerUser()
		payload := s.generatePayload()

		s.now = s.now.Add(31 * time.Minute)
		_, err := s.service.MarkByQR(s.ctx, userID, payload)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Contains(err.Error(), "expired")
	})

	s.Run("regeneration invalidates the previous token", func() {
		userID := s.registerUser()
		oldPayload := s.generatePayload()
		s.generatePayload() // replaces the session

		_, err := s.service.MarkByQR(s.ctx, userID, oldPayload)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestMarkByQR covers the scan path and its conflicts.
func (s *AttendanceServiceSuite) TestMarkByQR() {
	s.Run("scan marks present and updates the registration", func() {
		userID := s.registerUser()
		payload := s.generatePayload()

		att, err := s.service.MarkByQR(s.ctx, userID, payload)
		s.Require().NoError(err)
		s.Equal(models.StatusPresent, att.Status)
		s.Equal(userID, att.MarkedByID)
		s.Equal("Marked via QR code", att.Notes)

		reg, err := s.ledger.Find(s.ctx, userID, s.event.ID)
		s.Require().NoError(err)
		s.Equal(regmodels.StatusAttended, reg.Status)
	})

	s.Run("second scan conflicts and leaves the record unchanged", func() {
		userID := s.registerUser()
		payload := s.generatePayload()

		first, err := s.service.MarkByQR(s.ctx, userID, payload)
		s.Require().NoError(err)

		_, err = s.service.MarkByQR(s.ctx, userID, payload)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		found, err := s.attendance.Find(s.ctx, userID, s.event.ID)
		s.Require().NoError(err)
		s.Equal(first.ID, found.ID)
		s.Equal(first.MarkedAt, found.MarkedAt)
	})

	s.Run("unregistered scan creates nothing", func() {
		stranger := uuid.New()
		payload := s.generatePayload()

		_, err := s.service.MarkByQR(s.ctx, stranger, payload)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))

		_, err = s.attendance.Find(s.ctx, stranger, s.event.ID)
		s.Require().Error(err)
	})

	s.Run("wrong payload type is a bad request", func() {
		userID := s.registerUser()
		payload := s.generatePayload()
		payload.Type = "checkin"

		_, err := s.service.MarkByQR(s.ctx, userID, payload)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("tampered token conflicts", func() {
		userID := s.registerUser()
		payload := s.generatePayload()
		payload.Token = "deadbeef"

		_, err := s.service.MarkByQR(s.ctx, userID, payload)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestMarkForOthers covers the faculty path, the status mapping, and
// idempotency.
func (s *AttendanceServiceSuite) TestMarkForOthers() {
	s.Run("marks and maps absent to no-show", func() {
		userID := s.registerUser()

		att, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, userID, models.StatusAbsent, "missed it")
		s.Require().NoError(err)
		s.Equal(models.StatusAbsent, att.Status)
		s.Equal(s.coordinator.ID, att.MarkedByID)

		reg, err := s.ledger.Find(s.ctx, userID, s.event.ID)
		s.Require().NoError(err)
		s.Equal(regmodels.StatusNoShow, reg.Status)
	})

	s.Run("late maps to attended", func() {
		userID := s.registerUser()

		_, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, userID, models.StatusLate, "")
		s.Require().NoError(err)

		reg, err := s.ledger.Find(s.ctx, userID, s.event.ID)
		s.Require().NoError(err)
		s.Equal(regmodels.StatusAttended, reg.Status)
	})

	s.Run("re-marking overwrites the record", func() {
		userID := s.registerUser()

		_, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, userID, models.StatusAbsent, "")
		s.Require().NoError(err)
		att, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, userID, models.StatusPresent, "arrived after all")
		s.Require().NoError(err)
		s.Equal(models.StatusPresent, att.Status)

		reg, err := s.ledger.Find(s.ctx, userID, s.event.ID)
		s.Require().NoError(err)
		s.Equal(regmodels.StatusAttended, reg.Status)
	})

	s.Run("unregistered target conflicts", func() {
		_, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, uuid.New(), models.StatusPresent, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("non-coordinator is forbidden", func() {
		userID := s.registerUser()
		other := identity.Principal{ID: uuid.New(), Role: identity.RoleFaculty}

		_, err := s.service.MarkForOthers(s.ctx, other, s.event.ID, userID, models.StatusPresent, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("invalid status is a bad request", func() {
		userID := s.registerUser()

		_, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, userID, "asleep", "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

// TestMarkBatch covers partial failure collection.
func (s *AttendanceServiceSuite) TestMarkBatch() {
	s.Run("collects successes and failures per entry", func() {
		registered := s.registerUser()
		stranger := uuid.New()

		result, err := s.service.MarkBatch(s.ctx, s.coordinator, s.event.ID, []BatchEntry{
			{UserID: registered, Status: models.StatusPresent},
			{UserID: stranger, Status: models.StatusPresent},
		})
		s.Require().NoError(err)
		s.Require().Len(result.Results, 1)
		s.Require().Len(result.Errors, 1)
		s.Equal(registered, result.Results[0].UserID)
		s.Equal(stranger, result.Errors[0].UserID)
	})

	s.Run("empty batch is a validation error", func() {
		_, err := s.service.MarkBatch(s.ctx, s.coordinator, s.event.ID, nil)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("policy failure rejects the whole batch", func() {
		student := identity.Principal{ID: uuid.New(), Role: identity.RoleStudent}
		_, err := s.service.MarkBatch(s.ctx, student, s.event.ID, []BatchEntry{
			{UserID: uuid.New(), Status: models.StatusPresent},
		})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// TestEdit covers corrections to existing records.
func (s *AttendanceServiceSuite) TestEdit() {
	s.Run("edits an existing record and re-maps the registration", func() {
		userID := s.registerUser()
		_, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, userID, models.StatusPresent, "")
		s.Require().NoError(err)

		att, err := s.service.Edit(s.ctx, s.coordinator, s.event.ID, userID, models.StatusAbsent, "left early")
		s.Require().NoError(err)
		s.Equal(models.StatusAbsent, att.Status)
		s.Equal("left early", att.Notes)

		reg, err := s.ledger.Find(s.ctx, userID, s.event.ID)
		s.Require().NoError(err)
		s.Equal(regmodels.StatusNoShow, reg.Status)
	})

	s.Run("editing twice with the same status is stable", func() {
		userID := s.registerUser()
		_, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, userID, models.StatusPresent, "")
		s.Require().NoError(err)

		first, err := s.service.Edit(s.ctx, s.coordinator, s.event.ID, userID, models.StatusLate, "")
		s.Require().NoError(err)
		second, err := s.service.Edit(s.ctx, s.coordinator, s.event.ID, userID, models.StatusLate, "")
		s.Require().NoError(err)
		s.Equal(first.Status, second.Status)
		s.Equal(first.ID, second.ID)
	})

	s.Run("missing record is not found", func() {
		userID := s.registerUser()
		_, err := s.service.Edit(s.ctx, s.coordinator, s.event.ID, userID, models.StatusPresent, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestReports covers the event report, own summary, and global listing.
func (s *AttendanceServiceSuite) TestReports() {
	s.Run("event report includes statistics and canEdit", func() {
		present := s.registerUser()
		absent := s.registerUser()
		s.registerUser() // never marked

		_, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, present, models.StatusPresent, "")
		s.Require().NoError(err)
		_, err = s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, absent, models.StatusAbsent, "")
		s.Require().NoError(err)

		report, err := s.service.EventReport(s.ctx, s.coordinator, s.event.ID, pagination.Params{Page: 1, Limit: 10})
		s.Require().NoError(err)
		s.Equal(3, report.Statistics.TotalRegistered)
		s.Equal(1, report.Statistics.Present)
		s.Equal(1, report.Statistics.Absent)
		s.InDelta(1.0/3.0, report.Statistics.AttendanceRate, 1e-9)
		s.True(report.CanEdit)
		s.Equal(2, report.TotalDocs)
	})

	s.Run("non-coordinator faculty can view but not edit", func() {
		other := identity.Principal{ID: uuid.New(), Role: identity.RoleFaculty}
		report, err := s.service.EventReport(s.ctx, other, s.event.ID, pagination.Params{Page: 1, Limit: 10})
		s.Require().NoError(err)
		s.False(report.CanEdit)
	})

	s.Run("student cannot view reports", func() {
		student := identity.Principal{ID: uuid.New(), Role: identity.RoleStudent}
		_, err := s.service.EventReport(s.ctx, student, s.event.ID, pagination.Params{Page: 1, Limit: 10})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		_, err = s.service.AllReports(s.ctx, student, attstore.Filter{}, pagination.Params{Page: 1, Limit: 10})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("own summary tallies statuses", func() {
		userID := s.registerUser()
		_, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, userID, models.StatusLate, "")
		s.Require().NoError(err)

		summary, err := s.service.OwnSummary(s.ctx, userID)
		s.Require().NoError(err)
		s.Equal(1, summary.TotalRegistrations)
		s.Equal(1, summary.Late)
		s.InDelta(1.0, summary.AttendanceRate, 1e-9)
	})

	s.Run("all reports filters by status", func() {
		userID := s.registerUser()
		_, err := s.service.MarkForOthers(s.ctx, s.coordinator, s.event.ID, userID, models.StatusAbsent, "")
		s.Require().NoError(err)

		status := models.StatusAbsent
		page, err := s.service.AllReports(s.ctx, s.coordinator, attstore.Filter{Status: &status}, pagination.Params{Page: 1, Limit: 10})
		s.Require().NoError(err)
		s.Equal(1, page.TotalDocs)
	})
}

// TestPayloadRoundTrip verifies the wire document the QR image encodes.
func TestPayloadRoundTrip(t *testing.T) {
	payload := models.QRPayload{
		EventID:   uuid.New(),
		Token:     "abc123",
		ExpiresAt: time.Now().Add(30 * time.Minute).UTC(),
		Type:      models.PayloadTypeAttendance,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	for _, field := range []string{"eventId", "token", "expiresAt", `"type":"attendance"`} {
		if !strings.Contains(string(raw), field) {
			t.Fatalf("payload %s missing %q", raw, field)
		}
	}
}
