package httpx_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gymflow/internal/apperr"
	"gymflow/internal/httpx"
)

func body(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func ok(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"path": r.URL.Path})
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{apperr.Validation("bad %s", "month"), http.StatusBadRequest, "bad month"},
		{apperr.NotFound("Member not found."), http.StatusNotFound, "Member not found."},
		{apperr.Conflict("dup"), http.StatusConflict, "dup"},
		{apperr.RateLimited("slow down"), http.StatusTooManyRequests, "slow down"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "Internal Server Error"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		httpx.Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), zap.NewNop(), tt.err)
		assert.Equal(t, tt.status, rec.Code)
		out := body(t, rec)
		assert.Equal(t, false, out["success"])
		assert.Equal(t, tt.message, out["message"])
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Nimal"}`))
	require.NoError(t, httpx.Decode(rec, req, &dst))
	assert.Equal(t, "Nimal", dst.Name)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	err := httpx.Decode(rec, req, &dst)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"Kamal","memberNumber":7}`))
	require.NoError(t, httpx.Decode(rec, req, &dst))
	assert.Equal(t, "Kamal", dst.Name)

	huge := `{"name":"` + strings.Repeat("x", httpx.MaxBodyBytes) + `"}`
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge))
	err = httpx.Decode(rec, req, &dst)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestPage(t *testing.T) {
	tests := []struct {
		query       string
		page, limit int
	}{
		{"", 1, 20},
		{"page=3&limit=50", 3, 50},
		{"page=0&limit=0", 1, 20},
		{"page=-2&limit=500", 1, 100},
		{"page=abc&limit=xyz", 1, 20},
	}
	for _, tt := range tests {
		page, limit := httpx.Page(httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil))
		assert.Equal(t, tt.page, page, tt.query)
		assert.Equal(t, tt.limit, limit, tt.query)
	}
}

type authStub map[string]*httpx.Principal

func (a authStub) Authenticate(_ context.Context, token string) (*httpx.Principal, error) {
	if p, ok := a[token]; ok {
		return p, nil
	}
	return nil, apperr.Unauthorized("Invalid token.")
}

func TestAuthenticateAndRequireRole(t *testing.T) {
	owner := &httpx.Principal{ID: uuid.New(), Name: "Owner", Role: httpx.RoleOwner}
	trainer := &httpx.Principal{ID: uuid.New(), Name: "Trainer", Role: httpx.RoleTrainer}
	auth := authStub{"owner": owner, "trainer": trainer}

	r := chi.NewRouter()
	r.Use(httpx.Authenticate(auth, zap.NewNop()))
	r.Get("/any", func(w http.ResponseWriter, r *http.Request) {
		p, _ := httpx.PrincipalFrom(r.Context())
		httpx.JSON(w, http.StatusOK, map[string]any{"name": p.Name})
	})
	r.With(httpx.RequireRole(zap.NewNop(), httpx.RoleOwner)).Get("/owner", ok)

	do := func(path, header string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := do("/any", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Authentication required. Please provide a valid token.", body(t, rec)["message"])

	assert.Equal(t, http.StatusUnauthorized, do("/any", "Token owner").Code)
	assert.Equal(t, http.StatusUnauthorized, do("/any", "Bearer nope").Code)

	rec = do("/any", "Bearer trainer")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Trainer", body(t, rec)["name"])

	assert.Equal(t, http.StatusForbidden, do("/owner", "Bearer trainer").Code)
	assert.Equal(t, http.StatusOK, do("/owner", "Bearer owner").Code)
}

func TestSharedSecret(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	guarded := httpx.SharedSecret("X-Cron-Secret", "s3cret", zap.New(core))(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodPost, "/cron", nil)
	req.Header.Set("X-Cron-Secret", "wrong")
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("Unauthorized shared-secret request").Len())

	req.Header.Set("X-Cron-Secret", "s3cret")
	rec = httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	unset := httpx.SharedSecret("X-Cron-Secret", "", zap.NewNop())(http.HandlerFunc(ok))
	rec = httptest.NewRecorder()
	unset.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDeviceKey(t *testing.T) {
	tests := []struct {
		name, key, header string
		status            int
	}{
		{"match", "door-1", "door-1", http.StatusOK},
		{"mismatch", "door-1", "door-2", http.StatusUnauthorized},
		{"missing header", "door-1", "", http.StatusUnauthorized},
		{"unset key", "", "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := httpx.DeviceKey(tt.key, zap.NewNop())(http.HandlerFunc(ok))
			req := httptest.NewRequest(http.MethodGet, "/entry", nil)
			if tt.header != "" {
				req.Header.Set("X-Device-Key", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Valid device key required.", body(t, rec)["message"])
			}
		})
	}
}

func TestCORS(t *testing.T) {
	h := httpx.CORS([]string{"https://app.example.lk"})(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodOptions, "/api/members", nil)
	req.Header.Set("Origin", "https://app.example.lk")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.lk", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/members", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := chi.NewRouter()
	r.Use(middleware.RequestID, httpx.RequestLogger(zap.New(core)))
	r.Get("/health", ok)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	entries := logs.FilterMessage("HTTP request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/health", fields["path"])
	assert.Equal(t, int64(http.StatusOK), fields["status"])
	assert.NotEmpty(t, fields["request_id"])
}
