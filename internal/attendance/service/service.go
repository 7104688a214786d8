package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"clubhub/internal/attendance/models"
	attstore "clubhub/internal/attendance/store/attendance"
	dirmodels "clubhub/internal/directory/models"
	"clubhub/internal/identity"
	"clubhub/internal/platform/metrics"
	"clubhub/internal/policy"
	regmodels "clubhub/internal/registration/models"
	dErrors "clubhub/pkg/domain-errors"
	"clubhub/pkg/pagination"
	"clubhub/pkg/platform/sentinel"
)

const (
	defaultSessionTTL = 30 * time.Minute
	qrImageSize       = 256
	qrScanNotes       = "Marked via QR code"
)

type AttendanceStore interface {
	CreateOnly(ctx context.Context, a *models.Attendance) error
	Upsert(ctx context.Context, a *models.Attendance) (*models.Attendance, error)
	Update(ctx context.Context, userID, eventID uuid.UUID, status models.Status, notes string, markedByID uuid.UUID, now time.Time) (*models.Attendance, error)
	Find(ctx context.Context, userID, eventID uuid.UUID) (*models.Attendance, error)
	List(ctx context.Context, filter attstore.Filter, offset, limit int) ([]*models.Attendance, int, error)
	CountByStatus(ctx context.Context, filter attstore.Filter) (map[models.Status]int, error)
}

type QRSessionStore interface {
	Save(ctx context.Context, session *models.QRSession) error
	Find(ctx context.Context, eventID uuid.UUID) (*models.QRSession, error)
}

// RegistrationLedger is the slice of the registration store the recorder
// needs: presence checks and the status cross-update that keeps the ledger in
// step with recorded attendance.
type RegistrationLedger interface {
	Find(ctx context.Context, userID, eventID uuid.UUID) (*regmodels.Registration, error)
	UpdateStatus(ctx context.Context, userID, eventID uuid.UUID, status regmodels.Status) error
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type Authorizer interface {
	AuthorizeAttendanceMutation(ctx context.Context, caller identity.Principal, eventID uuid.UUID) (*dirmodels.Event, *dirmodels.Club, error)
	Resolve(ctx context.Context, eventID uuid.UUID) (*dirmodels.Event, *dirmodels.Club, error)
}

// Service is the attendance recorder and QR session manager.
type Service struct {
	attendance AttendanceStore
	sessions   QRSessionStore
	ledger     RegistrationLedger
	authorizer Authorizer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	clock      func() time.Time
	sessionTTL time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
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

func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		s.sessionTTL = ttl
	}
}

// New constructs a Service.
func New(attendance AttendanceStore, sessions QRSessionStore, ledger RegistrationLedger, authorizer Authorizer, opts ...Option) *Service {
	s := &Service{
		attendance: attendance,
		sessions:   sessions,
		ledger:     ledger,
		authorizer: authorizer,
		clock:      time.Now,
		sessionTTL: defaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QRCode is the generated proof-of-presence artifact handed to the
// coordinator for display.
type QRCode struct {
	QRCodeURL string    `json:"qrCodeUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// GenerateQR mints a fresh session token for the event and renders it as a QR
// image. The new session replaces any previous one, so an old displayed code
// stops validating the moment a new one is generated.
func (s *Service) GenerateQR(ctx context.Context, caller identity.Principal, eventID uuid.UUID) (*QRCode, error) {
	if _, _, err := s.authorizer.AuthorizeAttendanceMutation(ctx, caller, eventID); err != nil {
		return nil, err
	}

	token, err := newToken()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token")
	}
	now := s.clock()
	session := &models.QRSession{
		EventID:     eventID,
		Token:       token,
		ExpiresAt:   now.Add(s.sessionTTL),
		CreatedByID: caller.ID,
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save session")
	}

	payload, err := json.Marshal(models.QRPayload{
		EventID:   eventID,
		Token:     token,
		ExpiresAt: session.ExpiresAt,
		Type:      models.PayloadTypeAttendance,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode payload")
	}
	png, err := qrcode.Encode(string(payload), qrcode.Medium, qrImageSize)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render QR code")
	}

	s.logInfo(ctx, "qr session generated",
		"event_id", eventID,
		"created_by", caller.ID,
		"expires_at", session.ExpiresAt,
	)
	if s.metrics != nil {
		s.metrics.QRSessionsIssued.Inc()
	}

	return &QRCode{
		QRCodeURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// MarkByQR records the caller as present based on a scanned payload. Not
// idempotent: a second scan conflicts and leaves the first record untouched.
func (s *Service) MarkByQR(ctx context.Context, callerID uuid.UUID, payload models.QRPayload) (*models.Attendance, error) {
	if payload.Type != models.PayloadTypeAttendance || payload.EventID == uuid.Nil || payload.Token == "" || payload.ExpiresAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid QR payload")
	}

	now := s.clock()
	if !now.Before(payload.ExpiresAt) {
		return nil, dErrors.New(dErrors.CodeConflict, "QR code has expired")
	}

	session, err := s.sessions.Find(ctx, payload.EventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConflict, "QR code is no longer valid")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load session")
	}
	if !session.Valid(payload.Token, now) {
		return nil, dErrors.New(dErrors.CodeConflict, "QR code is no longer valid")
	}

	if _, err := s.ledger.Find(ctx, callerID, payload.EventID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConflict, "you are not registered for this event")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}

	attendance := models.NewAttendance(callerID, payload.EventID, callerID, models.StatusPresent, qrScanNotes, now)
	if err := s.attendance.CreateOnly(ctx, attendance); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "attendance already marked")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attendance")
	}
	s.syncLedger(ctx, callerID, payload.EventID, models.StatusPresent)

	s.logInfo(ctx, "attendance marked via qr", "user_id", callerID, "event_id", payload.EventID)
	if s.metrics != nil {
		s.metrics.AttendanceMarked.WithLabelValues("qr").Inc()
	}
	return attendance, nil
}

// MarkForOthers lets the event's coordinator record or correct a single
// attendee. Idempotent: re-marking overwrites the existing record.
func (s *Service) MarkForOthers(ctx context.Context, caller identity.Principal, eventID, userID uuid.UUID, status models.Status, notes string) (*models.Attendance, error) {
	if _, _, err := s.authorizer.AuthorizeAttendanceMutation(ctx, caller, eventID); err != nil {
		return nil, err
	}
	return s.mark(ctx, caller.ID, eventID, userID, status, notes)
}

// mark applies the per-attendee semantics shared by MarkForOthers and
// MarkBatch; the caller has already passed the policy check.
func (s *Service) mark(ctx context.Context, markerID, eventID, userID uuid.UUID, status models.Status, notes string) (*models.Attendance, error) {
	if !status.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid attendance status")
	}
	if _, err := s.ledger.Find(ctx, userID, eventID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConflict, "user is not registered for this event")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
	}

	attendance := models.NewAttendance(userID, eventID, markerID, status, notes, s.clock())
	result, err := s.attendance.Upsert(ctx, attendance)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record attendance")
	}
	s.syncLedger(ctx, userID, eventID, status)

	if s.metrics != nil {
		s.metrics.AttendanceMarked.WithLabelValues("manual").Inc()
	}
	return result, nil
}

// Status aliases the models type so handler payloads decode directly.
type Status = models.Status

// BatchEntry is one attendee in a batch mark request.
type BatchEntry struct {
	UserID uuid.UUID `json:"userId"`
	Status Status    `json:"status"`
	Notes  string    `json:"notes,omitempty"`
}

// BatchError reports a single failed entry.
type BatchError struct {
	UserID uuid.UUID `json:"userId"`
	Error  string    `json:"error"`
}

// BatchResult carries the per-entry outcomes of a batch mark.
type BatchResult struct {
	Results []*models.Attendance `json:"results"`
	Errors  []BatchError         `json:"errors"`
}

// MarkBatch records many attendees in one call. The policy check runs once
// for the event; each entry succeeds or fails independently.
func (s *Service) MarkBatch(ctx context.Context, caller identity.Principal, eventID uuid.UUID, entries []BatchEntry) (*BatchResult, error) {
	if _, _, err := s.authorizer.AuthorizeAttendanceMutation(ctx, caller, eventID); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "entries are required")
	}

	result := &BatchResult{Results: []*models.Attendance{}, Errors: []BatchError{}}
	for _, entry := range entries {
		marked, err := s.mark(ctx, caller.ID, eventID, entry.UserID, entry.Status, entry.Notes)
		if err != nil {
			result.Errors = append(result.Errors, BatchError{UserID: entry.UserID, Error: errorMessage(err)})
			continue
		}
		result.Results = append(result.Results, marked)
	}

	s.logInfo(ctx, "batch attendance marked",
		"event_id", eventID,
		"marked_by", caller.ID,
		"succeeded", len(result.Results),
		"failed", len(result.Errors),
	)
	return result, nil
}

// Edit corrects an existing attendance record. Unlike MarkForOthers it
// refuses to create one.
func (s *Service) Edit(ctx context.Context, caller identity.Principal, eventID, userID uuid.UUID, status models.Status, notes string) (*models.Attendance, error) {
	if _, _, err := s.authorizer.AuthorizeAttendanceMutation(ctx, caller, eventID); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid attendance status")
	}

	result, err := s.attendance.Update(ctx, userID, eventID, status, notes, caller.ID, s.clock())
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "attendance record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update attendance")
	}
	s.syncLedger(ctx, userID, eventID, status)

	if s.metrics != nil {
		s.metrics.AttendanceMarked.WithLabelValues("edit").Inc()
	}
	return result, nil
}

// Statistics summarizes an event's attendance against its registrations.
type Statistics struct {
	TotalRegistered int     `json:"totalRegistered"`
	Present         int     `json:"present"`
	Absent          int     `json:"absent"`
	Late            int     `json:"late"`
	AttendanceRate  float64 `json:"attendanceRate"`
}

// Report is the event attendance report.
type Report struct {
	pagination.Page[*models.Attendance]
	Statistics Statistics `json:"statistics"`
	CanEdit    bool       `json:"canEdit"`
}

// EventReport returns an event's attendance records and statistics. Any
// faculty member may view it; canEdit reflects the stricter coordinator
// check.
func (s *Service) EventReport(ctx context.Context, caller identity.Principal, eventID uuid.UUID, params pagination.Params) (*Report, error) {
	if !policy.CanViewReports(caller) {
		return nil, dErrors.New(dErrors.CodeForbidden, "only faculty can view attendance reports")
	}
	_, club, err := s.authorizer.Resolve(ctx, eventID)
	if err != nil {
		return nil, err
	}

	filter := attstore.Filter{EventID: &eventID}
	docs, total, err := s.attendance.List(ctx, filter, params.Offset(), params.Limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance")
	}
	counts, err := s.attendance.CountByStatus(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count attendance")
	}
	registered, err := s.ledger.CountByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count registrations")
	}

	return &Report{
		Page:       pagination.NewPage(docs, total, params),
		Statistics: buildStatistics(registered, counts),
		CanEdit:    policy.CanMutateAttendance(caller, club),
	}, nil
}

// Summary is a user's own attendance totals across events.
type Summary struct {
	TotalRegistrations int     `json:"totalRegistrations"`
	Present            int     `json:"present"`
	Absent             int     `json:"absent"`
	Late               int     `json:"late"`
	AttendanceRate     float64 `json:"attendanceRate"`
}

// OwnSummary returns the caller's attendance totals.
func (s *Service) OwnSummary(ctx context.Context, userID uuid.UUID) (*Summary, error) {
	counts, err := s.attendance.CountByStatus(ctx, attstore.Filter{UserID: &userID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count attendance")
	}
	registrations, err := s.ledger.CountByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count registrations")
	}

	stats := buildStatistics(registrations, counts)
	return &Summary{
		TotalRegistrations: registrations,
		Present:            stats.Present,
		Absent:             stats.Absent,
		Late:               stats.Late,
		AttendanceRate:     stats.AttendanceRate,
	}, nil
}

// AllReports lists attendance records across events with optional filters.
// Faculty only.
func (s *Service) AllReports(ctx context.Context, caller identity.Principal, filter attstore.Filter, params pagination.Params) (pagination.Page[*models.Attendance], error) {
	var zero pagination.Page[*models.Attendance]
	if !policy.CanViewReports(caller) {
		return zero, dErrors.New(dErrors.CodeForbidden, "only faculty can view attendance reports")
	}
	docs, total, err := s.attendance.List(ctx, filter, params.Offset(), params.Limit)
	if err != nil {
		return zero, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendance")
	}
	return pagination.NewPage(docs, total, params), nil
}

// syncLedger applies the fixed attendance-to-registration status mapping. A
// missing registration row is logged, not fatal: the attendance record is the
// source of truth once written.
func (s *Service) syncLedger(ctx context.Context, userID, eventID uuid.UUID, status models.Status) {
	if err := s.ledger.UpdateStatus(ctx, userID, eventID, status.RegistrationStatus()); err != nil {
		s.logWarn(ctx, "registration status sync failed",
			"user_id", userID,
			"event_id", eventID,
			"error", err,
		)
	}
}

func buildStatistics(registered int, counts map[models.Status]int) Statistics {
	stats := Statistics{
		TotalRegistered: registered,
		Present:         counts[models.StatusPresent],
		Absent:          counts[models.StatusAbsent],
		Late:            counts[models.StatusLate],
	}
	if registered > 0 {
		stats.AttendanceRate = float64(stats.Present+stats.Late) / float64(registered)
	}
	return stats
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func errorMessage(err error) string {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de.Message()
	}
	return err.Error()
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
