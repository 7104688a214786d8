package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clubhub/internal/identity"
	"clubhub/internal/platform/middleware"
	"clubhub/internal/registration/models"
	dErrors "clubhub/pkg/domain-errors"
	"clubhub/pkg/pagination"
	"clubhub/pkg/platform/httputil"
)

// Service defines the registration operations the handler exposes.
type Service interface {
	Register(ctx context.Context, userID, eventID uuid.UUID, participantType models.ParticipantType, notes string) (*models.Registration, error)
	Unregister(ctx context.Context, userID, eventID uuid.UUID) error
	ListForUser(ctx context.Context, userID uuid.UUID, status *models.Status, params pagination.Params) (pagination.Page[*models.Registration], error)
	ListForEvent(ctx context.Context, caller identity.Principal, eventID uuid.UUID, status *models.Status, params pagination.Params) (pagination.Page[*models.Registration], error)
	Status(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error)
}

// Handler wires registration endpoints to the registration service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a registration handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts registration endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/registrations/register", h.HandleRegister)
	r.Post("/registrations/unregister", h.HandleUnregister)
	r.Get("/registrations/me", h.HandleListMine)
	r.Get("/registrations/event/{eventID}", h.HandleListForEvent)
	r.Get("/registrations/status/{eventID}", h.HandleStatus)
}

type registerRequest struct {
	EventID         uuid.UUID `json:"eventId"`
	ParticipantType string    `json:"participantType"`
	Notes           string    `json:"notes"`
}

type unregisterRequest struct {
	EventID uuid.UUID `json:"eventId"`
}

// HandleRegister handles POST /registrations/register requests.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req registerRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.EventID == uuid.Nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "eventId is required"))
		return
	}

	reg, err := h.service.Register(ctx, principal.ID, req.EventID, models.ParticipantType(req.ParticipantType), req.Notes)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", principal.ID,
			"event_id", req.EventID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, reg)
}

// HandleUnregister handles POST /registrations/unregister requests.
func (h *Handler) HandleUnregister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req unregisterRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.EventID == uuid.Nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "eventId is required"))
		return
	}

	if err := h.service.Unregister(ctx, principal.ID, req.EventID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, struct{}{})
}

// HandleListMine handles GET /registrations/me requests.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	status, err := statusFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.ListForUser(ctx, principal.ID, status, pagination.FromQuery(r.URL.Query()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

// HandleListForEvent handles GET /registrations/event/{eventID} requests.
func (h *Handler) HandleListForEvent(w http.ResponseWriter, r *http.Request) {
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

	status, err := statusFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page, err := h.service.ListForEvent(ctx, principal, eventID, status, pagination.FromQuery(r.URL.Query()))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, page)
}

type statusResponse struct {
	IsRegistered bool                 `json:"isRegistered"`
	Registration *models.Registration `json:"registration,omitempty"`
}

// HandleStatus handles GET /registrations/status/{eventID} requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
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

	reg, err := h.service.Status(ctx, principal.ID, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, statusResponse{IsRegistered: reg != nil, Registration: reg})
}

func statusFilter(r *http.Request) (*models.Status, error) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, nil
	}
	status := models.Status(raw)
	if !status.Valid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid status filter")
	}
	return &status, nil
}
