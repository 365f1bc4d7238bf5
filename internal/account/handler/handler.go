// Package handler exposes account registration and login.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"conexus/internal/account/models"
	"conexus/internal/platform/middleware"
	dErrors "conexus/pkg/domain-errors"
	"conexus/pkg/platform/httputil"
	"conexus/pkg/requestcontext"
)

// Service defines the account operations the handler needs.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error)
	Login(ctx context.Context, req *models.LoginRequest) (string, *models.Account, error)
	Profile(ctx context.Context, email string) (*models.Account, error)
}

type Handler struct {
	logger *slog.Logger
	svc    Service
}

func New(svc Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, svc: svc}
}

// Register attaches the account routes. Account creation is admin-gated so
// the public signup page cannot mint approver logins; the profile route
// requires the bearer token issued at login.
func (h *Handler) Register(r chi.Router, admin, authed func(http.Handler) http.Handler) {
	r.Post("/api/accounts/login", h.handleLogin)

	r.Group(func(g chi.Router) {
		g.Use(admin)
		g.Post("/api/accounts/register", h.handleRegister)
	})

	r.Group(func(g chi.Router) {
		g.Use(authed)
		g.Get("/api/accounts/me", h.handleProfile)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid register request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	account, err := h.svc.Register(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "failed to register account", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, account)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid login request",
			"request_id", middleware.GetRequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, account, err := h.svc.Login(ctx, &req)
	if err != nil {
		h.writeServiceError(ctx, w, "login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"account":      account,
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	account, err := h.svc.Profile(ctx, requestcontext.ActorEmail(ctx))
	if err != nil {
		h.writeServiceError(ctx, w, "failed to load profile", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, account)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := middleware.GetRequestID(ctx)
	switch {
	case dErrors.Is(err, dErrors.CodeValidation),
		dErrors.Is(err, dErrors.CodeBadRequest),
		dErrors.Is(err, dErrors.CodeConflict),
		dErrors.Is(err, dErrors.CodeNotFound),
		dErrors.Is(err, dErrors.CodeUnauthorized):
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
