package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conexus/internal/account/models"
	"conexus/internal/account/service"
	"conexus/internal/account/store"
	"conexus/internal/jwttoken"
	"conexus/internal/platform/middleware"
)

const testAdminToken = "test-admin-token"

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tokens := jwttoken.New("test-secret", "conexus")
	svc := service.New(store.NewInMemory(), tokens, service.WithLogger(logger))

	router := chi.NewRouter()
	admin := middleware.RequireAdminAccess(testAdminToken, tokens, logger)
	authed := middleware.RequireAuth(tokens, logger)
	New(svc, logger).Register(router, admin, authed)
	return router
}

func do(t *testing.T, router *chi.Mux, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func registerAccount(t *testing.T, router *chi.Mux, email string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/accounts/register", map[string]any{
		"email":    email,
		"name":     "Ada Reyes",
		"password": "correct-horse",
		"role":     "approver",
	}, map[string]string{"X-Admin-Token": testAdminToken})
	require.Equal(t, http.StatusCreated, rec.Code)
}

func login(t *testing.T, router *chi.Mux, email string) string {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/accounts/login", map[string]any{
		"email":    email,
		"password": "correct-horse",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.NotEmpty(t, out.AccessToken)
	return out.AccessToken
}

func TestRegisterRequiresAdmin(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodPost, "/api/accounts/register", map[string]any{
		"email":    "ada@example.edu",
		"name":     "Ada Reyes",
		"password": "correct-horse",
	}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	router := newRouter(t)
	registerAccount(t, router, "ada@example.edu")

	rec := do(t, router, http.MethodPost, "/api/accounts/login", map[string]any{
		"email":    "ada@example.edu",
		"password": "wrong-password",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileWithBearerToken(t *testing.T) {
	router := newRouter(t)
	registerAccount(t, router, "ada@example.edu")
	token := login(t, router, "ada@example.edu")

	rec := do(t, router, http.MethodGet, "/api/accounts/me", nil,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, rec.Code)

	var account models.Account
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &account))
	assert.Equal(t, "ada@example.edu", account.Email)
	assert.Equal(t, models.RoleApprover, account.Role)
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestProfileRequiresToken(t *testing.T) {
	router := newRouter(t)

	rec := do(t, router, http.MethodGet, "/api/accounts/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBearerTokenUnlocksAdminRoutes(t *testing.T) {
	router := newRouter(t)
	registerAccount(t, router, "ada@example.edu")
	token := login(t, router, "ada@example.edu")

	rec := do(t, router, http.MethodPost, "/api/accounts/register", map[string]any{
		"email":    "colleague@example.edu",
		"name":     "Grace Okoye",
		"password": "correct-horse",
	}, map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(t, http.StatusCreated, rec.Code)
}
