package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clubhub/internal/directory/models"
	"clubhub/internal/identity"
	"clubhub/internal/platform/middleware"
	dErrors "clubhub/pkg/domain-errors"
	"clubhub/pkg/platform/httputil"
)

// Service defines the directory operations the handler exposes.
type Service interface {
	CreateClub(ctx context.Context, caller identity.Principal, req *models.CreateClubRequest) (*models.Club, error)
	GetClub(ctx context.Context, id uuid.UUID) (*models.Club, error)
	AddMember(ctx context.Context, caller identity.Principal, clubID, userID uuid.UUID) error
	RemoveMember(ctx context.Context, caller identity.Principal, clubID, userID uuid.UUID) error
	CreateEvent(ctx context.Context, caller identity.Principal, req *models.CreateEventRequest) (*models.Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*models.Event, error)
	DeactivateEvent(ctx context.Context, caller identity.Principal, eventID uuid.UUID) error
}

// Handler wires club and event endpoints to the directory service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a directory handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts directory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/clubs", h.HandleCreateClub)
	r.Get("/clubs/{clubID}", h.HandleGetClub)
	r.Post("/clubs/{clubID}/members", h.HandleAddMember)
	r.Delete("/clubs/{clubID}/members/{userID}", h.HandleRemoveMember)
	r.Post("/events", h.HandleCreateEvent)
	r.Get("/events/{eventID}", h.HandleGetEvent)
	r.Delete("/events/{eventID}", h.HandleDeactivateEvent)
}

// HandleCreateClub handles POST /clubs requests.
func (h *Handler) HandleCreateClub(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req models.CreateClubRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	club, err := h.service.CreateClub(ctx, principal, &req)
	if err != nil {
		h.logger.WarnContext(ctx, "club creation failed",
			"request_id", middleware.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, club)
}

// HandleGetClub handles GET /clubs/{clubID} requests.
func (h *Handler) HandleGetClub(w http.ResponseWriter, r *http.Request) {
	clubID, err := uuid.Parse(chi.URLParam(r, "clubID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid club id"))
		return
	}

	club, err := h.service.GetClub(r.Context(), clubID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, club)
}

type memberRequest struct {
	UserID uuid.UUID `json:"userId"`
}

// HandleAddMember handles POST /clubs/{clubID}/members requests.
func (h *Handler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	clubID, err := uuid.Parse(chi.URLParam(r, "clubID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid club id"))
		return
	}

	var req memberRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.UserID == uuid.Nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "userId is required"))
		return
	}

	if err := h.service.AddMember(ctx, principal, clubID, req.UserID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, struct{}{})
}

// HandleRemoveMember handles DELETE /clubs/{clubID}/members/{userID} requests.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	clubID, err := uuid.Parse(chi.URLParam(r, "clubID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid club id"))
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid user id"))
		return
	}

	if err := h.service.RemoveMember(ctx, principal, clubID, userID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, struct{}{})
}

// HandleCreateEvent handles POST /events requests.
func (h *Handler) HandleCreateEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := middleware.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	var req models.CreateEventRequest
	if err := httputil.Decode(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.service.CreateEvent(ctx, principal, &req)
	if err != nil {
		h.logger.WarnContext(ctx, "event creation failed",
			"request_id", middleware.GetRequestID(ctx),
			"club_id", req.ClubID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, event)
}

// HandleGetEvent handles GET /events/{eventID} requests.
func (h *Handler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := uuid.Parse(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid event id"))
		return
	}

	event, err := h.service.GetEvent(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, event)
}

// HandleDeactivateEvent handles DELETE /events/{eventID} requests.
func (h *Handler) HandleDeactivateEvent(w http.ResponseWriter, r *http.Request) {
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

	if err := h.service.DeactivateEvent(ctx, principal, eventID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, struct{}{})
}
