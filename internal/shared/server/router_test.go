package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resumaid/internal/resumes"
	"resumaid/internal/services/health"
	"resumaid/internal/shared/auth"
	"resumaid/internal/shared/config"
	"resumaid/internal/shared/storage/kv"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("down") }

func TestAddr(t *testing.T) {
	assert.Equal(t, ":8080", Addr(""))
	assert.Equal(t, ":9000", Addr("9000"))
	assert.Equal(t, ":9000", Addr(":9000"))
}

func TestHealthReportsDependencies(t *testing.T) {
	r := NewRouter(RouterDeps{
		Config: config.Config{SignInURL: "/auth"},
		Health: health.NewService(map[string]health.Pinger{"kv": kv.NewMemoryGateway()}),
	})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"ok":true,"checks":{"kv":"ok"}}`, resp.Body.String())

	r = NewRouter(RouterDeps{
		Config: config.Config{SignInURL: "/auth"},
		Health: health.NewService(map[string]health.Pinger{"kv": failingPinger{}}),
	})
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestMeAnonymousAndSignedIn(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	r := NewRouter(RouterDeps{Config: config.Config{SignInURL: "/auth"}})

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/me", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"isAuthenticated":false}`, resp.Body.String())

	token, err := auth.SignJWT(auth.Claims{
		Email:            "ada@example.com",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "google:1"},
	})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, true, body["isAuthenticated"])
	assert.Equal(t, "google:1", body["userId"])
	assert.Equal(t, "ada@example.com", body["email"])
}

func TestResumesRequireSignIn(t *testing.T) {
	r := NewRouter(RouterDeps{
		Config:         config.Config{SignInURL: "/auth"},
		ResumesHandler: resumes.NewHandler(&resumes.Service{KV: kv.NewMemoryGateway()}),
	})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/resumes", nil))
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	assert.Contains(t, resp.Body.String(), "/auth?next=%2Fapi%2Fv1%2Fresumes")
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	r := NewRouter(RouterDeps{Config: config.Config{SignInURL: "/auth"}})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "intake_started_total")
}
