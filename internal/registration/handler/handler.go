// Package handler exposes the registration ledger over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"conexus/internal/identity"
	"conexus/internal/platform/middleware"
	"conexus/internal/registration/models"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/httputil"
)

// Service defines the ledger operations the handler needs.
type Service interface {
	Submit(ctx context.Context, req *models.SubmitRequest) (*models.Registration, error)
	SetStatus(ctx context.Context, id uuid.UUID, req *models.UpdateStatusRequest) (*models.Registration, error)
	BindCard(ctx context.Context, id uuid.UUID, req *models.BindCardRequest) error
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	List(ctx context.Context) ([]*models.Registration, error)
}

type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register attaches the ledger routes. Submission is public; lifecycle
// commands sit behind the admin middleware supplied by the caller.
func (h *Handler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Post("/api/registrations", h.handleSubmit)

	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Get("/api/registrations", h.handleList)
		g.Get("/api/registrations/{id}", h.handleGet)
		g.Put("/api/registrations/{id}/status", h.handleSetStatus)
		g.Put("/api/registrations/{id}/card", h.handleBindCard)
		g.Delete("/api/registrations/{id}", h.handleDelete)
	})
}

type registrationView struct {
	ID         uuid.UUID          `json:"id"`
	EventID    uuid.UUID          `json:"event_id"`
	OwnerName  string             `json:"owner_name"`
	OwnerEmail string             `json:"owner_email"`
	University string             `json:"university,omitempty"`
	Companions []models.Companion `json:"companions,omitempty"`
	Status     models.Status      `json:"status"`
	RoomID     *uuid.UUID         `json:"room_id,omitempty"`
	BoundCard  string             `json:"bound_card,omitempty"`
	AdminNote  string             `json:"admin_note,omitempty"`
	CreatedAt  string             `json:"created_at"`
}

func toView(r *models.Registration) registrationView {
	return registrationView{
		ID:         r.ID,
		EventID:    r.EventID,
		OwnerName:  r.OwnerName,
		OwnerEmail: r.OwnerEmail,
		University: r.University,
		Companions: r.Companions,
		Status:     r.Status,
		RoomID:     r.RoomID,
		BoundCard:  r.BoundCard,
		AdminNote:  r.AdminNote,
		CreatedAt:  r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req models.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid submit request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.svc.Submit(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to submit registration", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"id": reg.ID})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.List(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list registrations", err)
		return
	}
	out := make([]registrationView, 0, len(regs))
	for _, reg := range regs {
		out = append(out, toView(reg))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	reg, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to load registration", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toView(reg))
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid status request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	reg, err := h.svc.SetStatus(ctx, id, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to change status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toView(reg))
}

func (h *Handler) handleBindCard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	var req models.BindCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid bind request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	if err := h.svc.BindCard(ctx, id, &req); err != nil {
		var conflict *identity.ConflictError
		if errors.As(err, &conflict) {
			httputil.WriteJSON(w, http.StatusConflict, map[string]any{
				"error":   string(dErrors.CodeConflict),
				"held_by": conflict.HeldBy,
			})
			return
		}
		h.writeServiceError(ctx, w, "failed to bind card", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeServiceError(r.Context(), w, "failed to delete registration", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid registration id"))
		return uuid.Nil, false
	}
	return id, true
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
