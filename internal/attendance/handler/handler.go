package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clubhub/internal/attendance/models"
	"clubhub/internal/attendance/service"
	attstore "clubhub/internal/attendance/store/attendance"
	"clubhub/internal/identity"
	"clubhub/internal/platform/middleware"
	dErrors "clubhub/pkg/domain-errors"
	"clubhub/pkg/pagination"
	"clubhub/pkg/platform/httputil"
)

// Service defines the attendance operations the handler exposes.
type Service interface {
	GenerateQR(ctx context.Context, caller identity.Principal, eventID uuid.UUID) (*service.QRCode, error)
	MarkByQR(ctx context.Context, callerID uuid.UUID, payload models.QRPayload) (*models.Attendance, error)
	MarkForOthers(ctx context.Context, caller identity.Principal, eventID, userID uuid.UUID, status models.Status, notes string) (*models.Attendance, error)
	MarkBatch(ctx context.Context, caller identity.Principal, eventID uuid.UUID, entries []service.BatchEntry) (*service.BatchResult, error)
	Edit(ctx context.Context, caller identity.Principal, eventID, userID uuid.UUID, status models.Status, notes string) (*models.Attendance, error)
	EventReport(ctx context.Context, caller identity.Principal, eventID uuid.UUID, params pagination.Params) (*service.Report, error)
	OwnSummary(ctx context.Context, userID uuid.UUID) (*service.Summary, error)
	AllReports(ctx context.Context, caller identity.Principal, filter attstore.Filter, params pagination.Params) (pagination.Page[*models.Attendance], error)
}

// Handler wires attendance endpoints to the attendance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs an attendance handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts attendance endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/attendance/qr/generate/{eventID}", h.HandleGenerateQR)
	r.Post("/attendance/qr/mark", h.HandleMarkByQR)
	r.Post("/attendance/mark-for-others", h.HandleMarkForOthers)
	r.Post("/attendance/event/{eventID}/batch", h.HandleMarkBatch)
	r.Put("/attendance/edit/{eventID}/{userID}", h.HandleEdit)
	r.Get("/attendance/event/{eventID}", h.HandleEventReport)
	r.Get("/attendance/me", h.HandleOwnSummary)
	r.Get("/attendance/reports", h.HandleAllReports)
}

// HandleGenerateQR handles POST /attendance/qr/generate/{eventID} requests.
func (h *Handler) HandleGenerateQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid event id"))
		return
	}

	qr, err := h.service.GenerateQR(ctx, principal, eventID)
	if err != nil {
		h.logger.WarnContext(ctx, "qr generation failed",
			"request_id", middleware.GetRequestID(ctx),
			"event_id", eventID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, qr)
}

type markByQRRequest struct {
	QRData string `json:"qrData"`
}

// HandleMarkByQR handles POST /attendance/qr/mark requests. The body carries
// the scanned QR content verbatim in qrData.
func (h *Handler) HandleMarkByQR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req markByQRRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	var payload models.QRPayload
	if err := json.Unmarshal([]byte(req.QRData), &payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid QR payload"))
		return
	}

	attendance, err := h.service.MarkByQR(ctx, principal.ID, payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, attendance)
}

type markForOthersRequest struct {
	EventID uuid.UUID `json:"eventId"`
	UserID  uuid.UUID `json:"userId"`
	Status  string    `json:"status"`
	Notes   string    `json:"notes"`
}

// HandleMarkForOthers handles POST /attendance/mark-for-others requests.
func (h *Handler) HandleMarkForOthers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req markForOthersRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.EventID == uuid.Nil || req.UserID == uuid.Nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "eventId and userId are required"))
		return
	}

	attendance, err := h.service.MarkForOthers(ctx, principal, req.EventID, req.UserID, models.Status(req.Status), req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, attendance)
}

type batchRequest struct {
	Entries []service.BatchEntry `json:"entries"`
}

// HandleMarkBatch handles POST /attendance/event/{eventID}/batch requests.
func (h *Handler) HandleMarkBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid event id"))
		return
	}

	var req batchRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.service.MarkBatch(ctx, principal, eventID, req.Entries)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

type editRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// HandleEdit handles PUT /attendance/edit/{eventID}/{userID} requests.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid event id"))
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid user id"))
		return
	}

	var req editRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	attendance, err := h.service.Edit(ctx, principal, eventID, userID, models.Status(req.Status), req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, attendance)
}

// HandleEventReport handles GET /attendance/event/{eventID} requests.
func (h *Handler) HandleEventReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid event id"))
		return
	}

	report, err := h.service.EventReport(ctx, principal, eventID, pagination.FromQuery(r.URL.Query()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleOwnSummary handles GET /attendance/me requests.
func (h *Handler) HandleOwnSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	summary, err := h.service.OwnSummary(ctx, principal.ID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, summary)
}

// HandleAllReports handles GET /attendance/reports requests. Filters come
// from query parameters: eventId, userId, status, from, to.
func (h *Handler) HandleAllReports(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.AllReports(ctx, principal, filter, pagination.FromQuery(r.URL.Query()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

func filterFromQuery(r *http.Request) (attstore.Filter, error) {
	var filter attstore.Filter
	q := r.URL.Query()

	if raw := q.Get("eventId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid eventId filter")
		}
		filter.EventID = &id
	}
	if raw := q.Get("userId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid userId filter")
		}
		filter.UserID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := models.Status(raw)
		if !status.Valid() {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid status filter")
		}
		filter.Status = &status
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid from filter")
		}
		filter.From = &from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, dErrors.New(dErrors.CodeValidation, "invalid to filter")
		}
		filter.To = &to
	}
	return filter, nil
}
