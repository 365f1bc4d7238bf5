// Package handler exposes accommodation administration over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"conexus/internal/accommodation/models"
	"conexus/internal/platform/middleware"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/httputil"
)

// Service defines the allocator operations the handler needs.
type Service interface {
	CreatePlace(ctx context.Context, req *models.CreatePlaceRequest) (*models.Place, error)
	ListPlaces(ctx context.Context) ([]*models.Place, error)
	DeletePlace(ctx context.Context, placeID uuid.UUID) error
	CreateRoom(ctx context.Context, req *models.CreateRoomRequest) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)
	DeleteRoom(ctx context.Context, roomID uuid.UUID) error
	Occupancy(ctx context.Context, roomID uuid.UUID) (int, error)
}

type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register attaches the place and room routes. Mutating routes are expected
// to sit behind the admin middleware supplied by the caller.
func (h *Handler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Get("/api/places", h.handleListPlaces)
	r.Get("/api/rooms", h.handleListRooms)

	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Post("/api/places", h.handleCreatePlace)
		g.Delete("/api/places/{id}", h.handleDeletePlace)
		g.Post("/api/rooms", h.handleCreateRoom)
		g.Delete("/api/rooms/{id}", h.handleDeleteRoom)
	})
}

func (h *Handler) handleCreatePlace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.CreatePlaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create place request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	place, err := h.svc.CreatePlace(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create place", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, place)
}

func (h *Handler) handleListPlaces(w http.ResponseWriter, r *http.Request) {
	places, err := h.svc.ListPlaces(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list places", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, places)
}

func (h *Handler) handleDeletePlace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid place id"))
		return
	}
	if err := h.svc.DeletePlace(ctx, id); err != nil {
		h.writeServiceError(ctx, w, "failed to delete place", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create room request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	room, err := h.svc.CreateRoom(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create room", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, room)
}

// handleListRooms returns every room with its derived occupancy, which is
// what the admin dashboard renders next to the bed count.
func (h *Handler) handleListRooms(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rooms, err := h.svc.ListRooms(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to list rooms", err)
		return
	}

	type roomView struct {
		*models.Room
		Occupancy int `json:"occupancy"`
	}
	out := make([]roomView, 0, len(rooms))
	for _, room := range rooms {
		occ, err := h.svc.Occupancy(ctx, room.ID)
		if err != nil {
			h.writeServiceError(ctx, w, "failed to derive occupancy", err)
			return
		}
		out = append(out, roomView{Room: room, Occupancy: occ})
	}

	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid room id"))
		return
	}
	if err := h.svc.DeleteRoom(ctx, id); err != nil {
		h.writeServiceError(ctx, w, "failed to delete room", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	switch {
	case dErrors.Is(err, dErrors.CodeValidation),
		dErrors.Is(err, dErrors.CodeBadRequest),
		dErrors.Is(err, dErrors.CodeNotFound),
		dErrors.Is(err, dErrors.CodeConflict),
		dErrors.Is(err, dErrors.CodeCapacityExceeded),
		dErrors.Is(err, dErrors.CodeInvariantViolation):
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
