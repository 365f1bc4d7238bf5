// Package handler exposes the event catalog over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"conexus/internal/event/models"
	"conexus/internal/platform/middleware"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/httputil"
)

// Service defines the catalog operations the handler needs.
type Service interface {
	Create(ctx context.Context, req *models.CreateEventRequest) (*models.Event, error)
	List(ctx context.Context) ([]*models.Event, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Event, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register attaches the catalog routes. Listing is public so the signup
// page can render the schedule; mutation is admin-only.
func (h *Handler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/api/events", h.handleList)
	r.Get("/api/events/{id}", h.handleGet)

	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Post("/api/events", h.handleCreate)
		g.Delete("/api/events/{id}", h.handleDelete)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create event request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	event, err := h.svc.Create(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.List(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, events)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	event, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to load event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(r.Context(), w, "failed to delete event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid event id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	switch {
	case dErrors.Is(err, dErrors.CodeValidation),
		dErrors.Is(err, dErrors.CodeBadRequest),
		dErrors.Is(err, dErrors.CodeNotFound):
		h.logger.WarnContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
	default:
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, msg))
	}
}
