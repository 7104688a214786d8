package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	attmodels "clubhub/internal/attendance/models"
	"clubhub/internal/attendance/service"
	attstore "clubhub/internal/attendance/store/attendance"
	"clubhub/internal/attendance/store/qrsession"
	dirmodels "clubhub/internal/directory/models"
	clubstore "clubhub/internal/directory/store/club"
	eventstore "clubhub/internal/directory/store/event"
	"clubhub/internal/identity"
	"clubhub/internal/platform/middleware"
	"clubhub/internal/policy"
	regmodels "clubhub/internal/registration/models"
	regstore "clubhub/internal/registration/store"
)

const signingKey = "attendance-handler-test-key"

type testEnv struct {
	router      http.Handler
	jwt         *identity.JWTService
	sessions    *qrsession.InMemory
	ledger      *regstore.InMemory
	coordinator identity.Principal
	event       *dirmodels.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := t.Context()

	attendance := attstore.NewInMemory()
	sessions := qrsession.NewInMemory()
	ledger := regstore.NewInMemory()
	clubs := clubstore.NewInMemory()
	events := eventstore.NewInMemory()

	coordinator := identity.Principal{ID: uuid.New(), Role: identity.RoleFaculty}
	now := time.Now()
	club, err := dirmodels.NewClub(uuid.New(), "Chess Club", "", coordinator.ID, now)
	if err != nil {
		t.Fatalf("failed to build club: %v", err)
	}
	if err := clubs.CreateIfNameAvailable(ctx, club); err != nil {
		t.Fatalf("failed to seed club: %v", err)
	}
	event, err := dirmodels.NewEvent(uuid.New(), "Blitz Tournament", "", "Hall B",
		now.Add(time.Hour), now.Add(5*time.Hour), nil, club.ID, coordinator.ID, now)
	if err != nil {
		t.Fatalf("failed to build event: %v", err)
	}
	if err := events.Create(ctx, event); err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}

	svc := service.New(attendance, sessions, ledger, policy.New(events, clubs))
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	jwtSvc := identity.NewJWTService(signingKey, "clubhub", "clubhub-api")

	h := New(svc, logger)
	r := chi.NewRouter()
	r.Use(middleware.RequireAuth(jwtSvc, logger))
	h.Register(r)

	return &testEnv{
		router:      r,
		jwt:         jwtSvc,
		sessions:    sessions,
		ledger:      ledger,
		coordinator: coordinator,
		event:       event,
	}
}

func (e *testEnv) token(t *testing.T, principal identity.Principal) string {
	t.Helper()
	token, err := e.jwt.IssueToken(principal, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func (e *testEnv) register(t *testing.T, userID uuid.UUID) {
	t.Helper()
	reg := regmodels.NewRegistration(userID, e.event.ID, regmodels.ParticipantClubMember, "", time.Now())
	if err := e.ledger.Create(t.Context(), reg, nil); err != nil {
		t.Fatalf("failed to seed registration: %v", err)
	}
}

func (e *testEnv) qrData(t *testing.T) string {
	t.Helper()
	session, err := e.sessions.Find(t.Context(), e.event.ID)
	if err != nil {
		t.Fatalf("failed to load session: %v", err)
	}
	raw, err := json.Marshal(attmodels.QRPayload{
		EventID:   e.event.ID,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		Type:      attmodels.PayloadTypeAttendance,
	})
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	return string(raw)
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestGenerateQRViaHandlers(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/attendance/qr/generate/"+env.event.ID.String(), env.token(t, env.coordinator), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 generating QR, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		QRCodeURL string    `json:"qrCodeUrl"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.QRCodeURL) == 0 || resp.ExpiresAt.IsZero() {
		t.Fatalf("expected qrCodeUrl and expiresAt in response")
	}

	// Another faculty member is not the coordinator.
	other := identity.Principal{ID: uuid.New(), Role: identity.RoleFaculty}
	rec = env.do(t, http.MethodPost, "/attendance/qr/generate/"+env.event.ID.String(), env.token(t, other), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-coordinator, got %d", rec.Code)
	}
}

func TestMarkByQRViaHandlers(t *testing.T) {
	env := newTestEnv(t)
	student := identity.Principal{ID: uuid.New(), Role: identity.RoleStudent}
	env.register(t, student.ID)

	rec := env.do(t, http.MethodPost, "/attendance/qr/generate/"+env.event.ID.String(), env.token(t, env.coordinator), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 generating QR, got %d", rec.Code)
	}
	qrData := env.qrData(t)

	rec = env.do(t, http.MethodPost, "/attendance/qr/mark", env.token(t, student), map[string]string{"qrData": qrData})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 marking via QR, got %d: %s", rec.Code, rec.Body.String())
	}
	var att attmodels.Attendance
	if err := json.NewDecoder(rec.Body).Decode(&att); err != nil {
		t.Fatalf("failed to decode attendance: %v", err)
	}
	if att.Status != attmodels.StatusPresent {
		t.Fatalf("expected present status, got %s", att.Status)
	}

	// Second scan conflicts.
	rec = env.do(t, http.MethodPost, "/attendance/qr/mark", env.token(t, student), map[string]string{"qrData": qrData})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for second scan, got %d", rec.Code)
	}

	// Garbage payload is a bad request.
	rec = env.do(t, http.MethodPost, "/attendance/qr/mark", env.token(t, student), map[string]string{"qrData": "not json"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed qrData, got %d", rec.Code)
	}
}

func TestMarkForOthersAndEditViaHandlers(t *testing.T) {
	env := newTestEnv(t)
	student := identity.Principal{ID: uuid.New(), Role: identity.RoleStudent}
	env.register(t, student.ID)
	coordToken := env.token(t, env.coordinator)

	rec := env.do(t, http.MethodPost, "/attendance/mark-for-others", coordToken, map[string]any{
		"eventId": env.event.ID,
		"userId":  student.ID,
		"status":  "absent",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 marking for others, got %d: %s", rec.Code, rec.Body.String())
	}

	reg, err := env.ledger.Find(t.Context(), student.ID, env.event.ID)
	if err != nil {
		t.Fatalf("failed to load registration: %v", err)
	}
	if reg.Status != regmodels.StatusNoShow {
		t.Fatalf("expected no-show registration after absent mark, got %s", reg.Status)
	}

	rec = env.do(t, http.MethodPut, "/attendance/edit/"+env.event.ID.String()+"/"+student.ID.String(), coordToken, map[string]any{
		"status": "present",
		"notes":  "was in the back row",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 editing attendance, got %d: %s", rec.Code, rec.Body.String())
	}

	reg, err = env.ledger.Find(t.Context(), student.ID, env.event.ID)
	if err != nil {
		t.Fatalf("failed to load registration: %v", err)
	}
	if reg.Status != regmodels.StatusAttended {
		t.Fatalf("expected attended registration after edit, got %s", reg.Status)
	}

	// Students cannot reach the faculty surface.
	rec = env.do(t, http.MethodPost, "/attendance/mark-for-others", env.token(t, student), map[string]any{
		"eventId": env.event.ID,
		"userId":  student.ID,
		"status":  "present",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student marking others, got %d", rec.Code)
	}
}

func TestMarkBatchViaHandlers(t *testing.T) {
	env := newTestEnv(t)
	registered := identity.Principal{ID: uuid.New(), Role: identity.RoleStudent}
	env.register(t, registered.ID)
	stranger := uuid.New()

	rec := env.do(t, http.MethodPost, "/attendance/event/"+env.event.ID.String()+"/batch", env.token(t, env.coordinator), map[string]any{
		"entries": []map[string]any{
			{"userId": registered.ID, "status": "present"},
			{"userId": stranger, "status": "present"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for batch, got %d: %s", rec.Code, rec.Body.String())
	}
	var result struct {
		Results []attmodels.Attendance `json:"results"`
		Errors  []struct {
			UserID uuid.UUID `json:"userId"`
			Error  string    `json:"error"`
		} `json:"errors"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode batch result: %v", err)
	}
	if len(result.Results) != 1 || len(result.Errors) != 1 {
		t.Fatalf("expected 1 result and 1 error, got %d and %d", len(result.Results), len(result.Errors))
	}
	if result.Errors[0].UserID != stranger {
		t.Fatalf("expected the stranger in errors, got %s", result.Errors[0].UserID)
	}
}

func TestReportsViaHandlers(t *testing.T) {
	env := newTestEnv(t)
	student := identity.Principal{ID: uuid.New(), Role: identity.RoleStudent}
	env.register(t, student.ID)

	rec := env.do(t, http.MethodPost, "/attendance/mark-for-others", env.token(t, env.coordinator), map[string]any{
		"eventId": env.event.ID,
		"userId":  student.ID,
		"status":  "late",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 marking, got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/attendance/event/"+env.event.ID.String(), env.token(t, env.coordinator), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for event report, got %d", rec.Code)
	}
	var report struct {
		TotalDocs  int `json:"totalDocs"`
		Statistics struct {
			TotalRegistered int     `json:"totalRegistered"`
			Late            int     `json:"late"`
			AttendanceRate  float64 `json:"attendanceRate"`
		} `json:"statistics"`
		CanEdit bool `json:"canEdit"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode report: %v", err)
	}
	if report.TotalDocs != 1 || report.Statistics.Late != 1 || !report.CanEdit {
		t.Fatalf("unexpected report %+v", report)
	}

	// Own summary for the student.
	rec = env.do(t, http.MethodGet, "/attendance/me", env.token(t, student), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for own summary, got %d", rec.Code)
	}
	var summary struct {
		TotalRegistrations int `json:"totalRegistrations"`
		Late               int `json:"late"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.TotalRegistrations != 1 || summary.Late != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	// Global reports are faculty-only and filterable.
	rec = env.do(t, http.MethodGet, "/attendance/reports?status=late", env.token(t, student), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for student reports, got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/attendance/reports?status=late", env.token(t, env.coordinator), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for faculty reports, got %d", rec.Code)
	}
	var page struct {
		TotalDocs int `json:"totalDocs"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&page); err != nil {
		t.Fatalf("failed to decode page: %v", err)
	}
	if page.TotalDocs != 1 {
		t.Fatalf("expected totalDocs 1, got %d", page.TotalDocs)
	}
}
