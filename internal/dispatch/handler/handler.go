// Package handler exposes batch dispatch triggering and progress polling.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"conexus/internal/dispatch/models"
	"conexus/internal/platform/middleware"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/httputil"
	pstrings "conexus/pkg/platform/strings"
)

// Service defines the dispatcher operations the handler needs.
type Service interface {
	DispatchBatch(ctx context.Context, ids []uuid.UUID) (*models.Run, error)
	Run(runID uuid.UUID) (models.View, error)
}

type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register attaches the dispatch routes behind the admin middleware.
func (h *Handler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Post("/api/dispatch", h.handleDispatch)
		g.Get("/api/dispatch/{run_id}", h.handleRunStatus)
	})
}

type dispatchRequest struct {
	RegistrationIDs []string `json:"registration_ids"`
}

func (h *Handler) handleDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid dispatch request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	// A target listed twice is still dispatched once.
	rawIDs := pstrings.DedupeAndTrim(req.RegistrationIDs)
	ids := make([]uuid.UUID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeBadRequest, "invalid registration id %q", raw))
			return
		}
		ids = append(ids, id)
	}

	run, err := h.svc.DispatchBatch(ctx, ids)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to start dispatch batch", err)
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"run_id": run.ID})
}

func (h *Handler) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	runID, err := uuid.Parse(chi.URLParam(r, "run_id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid run id"))
		return
	}

	view, err := h.svc.Run(runID)
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to load dispatch run", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
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
