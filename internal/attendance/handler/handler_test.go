package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"conexus/internal/attendance/models"
	attservice "conexus/internal/attendance/service"
	attstore "conexus/internal/attendance/store"
	"conexus/internal/jwttoken"
	"conexus/internal/platform/middleware"
	regmodels "conexus/internal/registration/models"
	regstore "conexus/internal/registration/store"
)

const testAdminToken = "test-admin-token"

type env struct {
	router *chi.Mux
	ledger regstore.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	logs := attstore.NewInMemory()
	ledger := regstore.NewInMemory()
	recorder := attservice.New(logs, logs, ledger, attservice.WithLogger(logger))

	router := chi.NewRouter()
	router.Use(middleware.RequestTime)
	admin := middleware.RequireAdminAccess(testAdminToken, jwttoken.New("test-secret", "conexus"), logger)
	New(recorder, logger).Register(router, admin)
	return &env{router: router, ledger: ledger}
}

func (e *env) do(t *testing.T, method, path string, body any, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if admin {
		req.Header.Set("X-Admin-Token", testAdminToken)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) seedApproved(t *testing.T, card string) *regmodels.Registration {
	t.Helper()
	reg := &regmodels.Registration{
		ID:         uuid.New(),
		EventID:    uuid.New(),
		OwnerName:  "Ada Reyes",
		OwnerEmail: uuid.NewString() + "@example.edu",
		Status:     regmodels.StatusApproved,
		BoundCard:  card,
	}
	require.NoError(t, e.ledger.Create(context.Background(), reg))
	return reg
}

func scanBody(code string) map[string]any {
	return map[string]any{"portal_id": "", "code": code}
}

func TestScanSuccess(t *testing.T) {
	e := newEnv(t)
	e.seedApproved(t, "X1")

	rec := e.do(t, http.MethodPost, "/api/attendance/scan", scanBody("X1"), false)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.OutcomeSuccess, result.Outcome)
	assert.Equal(t, "Ada Reyes", result.DisplayName)
}

func TestScanDuplicateWithinWindow(t *testing.T) {
	e := newEnv(t)
	e.seedApproved(t, "X1")

	first := e.do(t, http.MethodPost, "/api/attendance/scan", scanBody("X1"), false)
	require.Equal(t, http.StatusOK, first.Code)

	second := e.do(t, http.MethodPost, "/api/attendance/scan", scanBody("X1"), false)
	require.Equal(t, http.StatusOK, second.Code)

	var result models.ScanResult
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &result))
	assert.Equal(t, models.OutcomeDuplicateScan, result.Outcome)
}

func TestScanUnknownCode(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/attendance/scan", scanBody("no-such-code"), false)
	require.Equal(t, http.StatusOK, rec.Code)

	var result models.ScanResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, models.OutcomeNotFound, result.Outcome)
	assert.Empty(t, result.DisplayName)
}

func TestScanMissingCode(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/api/attendance/scan", scanBody("   "), false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogsRequireAdmin(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/attendance/logs", nil, false).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/attendance/logs", nil, true).Code)
}

func TestPortalLifecycleOverHTTP(t *testing.T) {
	e := newEnv(t)

	created := e.do(t, http.MethodPost, "/api/portals", map[string]any{"name": "Main Hall"}, true)
	require.Equal(t, http.StatusCreated, created.Code)

	var portal models.Portal
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &portal))

	list := e.do(t, http.MethodGet, "/api/portals", nil, false)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), "Main Hall")

	deleted := e.do(t, http.MethodDelete, "/api/portals/"+portal.ID.String(), nil, true)
	assert.Equal(t, http.StatusNoContent, deleted.Code)

	missing := e.do(t, http.MethodDelete, "/api/portals/"+portal.ID.String(), nil, true)
	assert.Equal(t, http.StatusNotFound, missing.Code)
}
