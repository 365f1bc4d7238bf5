// Package handler exposes the scan endpoint and the attendance log.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"conexus/internal/attendance/models"
	"conexus/internal/platform/middleware"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/httputil"
)

// Service defines the recorder operations the handler needs.
type Service interface {
	RecordScan(ctx context.Context, req *models.ScanRequest) (*models.ScanResult, error)
	CreatePortal(ctx context.Context, req *models.CreatePortalRequest) (*models.Portal, error)
	ListPortals(ctx context.Context) ([]*models.Portal, error)
	DeletePortal(ctx context.Context, id uuid.UUID) error
	ListLogs(ctx context.Context) ([]*models.Record, error)
}

type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register attaches the attendance routes. The scan endpoint and the portal
// list are public; the station serves them to unattended kiosks.
func (h *Handler) Register(r chi.Router, admin func(http.Handler) http.Handler) {
	r.Post("/api/attendance/scan", h.handleScan)
	r.Get("/api/portals", h.handleListPortals)

	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Get("/api/attendance/logs", h.handleListLogs)
		g.Post("/api/portals", h.handleCreatePortal)
		g.Delete("/api/portals/{id}", h.handleDeletePortal)
	})
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid scan request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	result, err := h.svc.RecordScan(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to record scan", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListLogs(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.ListLogs(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list attendance records", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleCreatePortal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreatePortalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid create portal request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	portal, err := h.svc.CreatePortal(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to create portal", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, portal)
}

func (h *Handler) handleListPortals(w http.ResponseWriter, r *http.Request) {
	portals, err := h.svc.ListPortals(r.Context())
	if err != nil {
		h.writeServiceError(r.Context(), w, "failed to list portals", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, portals)
}

func (h *Handler) handleDeletePortal(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid portal id"))
		return
	}
	if err := h.svc.DeletePortal(r.Context(), id); err != nil {
		h.writeServiceError(r.Context(), w, "failed to delete portal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
