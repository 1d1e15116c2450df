package server_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "flowboard/docs"
	"flowboard/internal/auth"
	"flowboard/internal/board"
	"flowboard/internal/config"
	"flowboard/internal/model"
	"flowboard/internal/realtime"
	"flowboard/internal/remote/remotetest"
	"flowboard/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noUsers struct{}

func (noUsers) Create(ctx context.Context, user *model.User) error { return nil }

func (noUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		JWTExpiry:          time.Hour,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
	}
}

func newHandler(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := testConfig()
	r := server.NewRouter(cfg, server.Deps{
		Users:    noUsers{},
		Sessions: board.NewSessions(remotetest.NewMemory()),
		Hub:      realtime.NewHub(cfg.CORSAllowedOrigins),
	})
	return server.WithCORS(cfg, r)
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	h := newHandler(t)

	req, _ := http.NewRequest("GET", "/workflows", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	token, err := auth.GenerateToken("test-secret", uuid.New().String(), time.Hour)
	require.NoError(t, err)
	req, _ = http.NewRequest("GET", "/workflows", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), board.DefaultWorkflowTitle)
}

func TestRouter_CORSPreflight(t *testing.T) {
	h := newHandler(t)

	req, _ := http.NewRequest(http.MethodOptions, "/board/gestures", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	assert.Equal(t, "http://localhost:3000", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_SwaggerDoc(t *testing.T) {
	h := newHandler(t)

	req := httptest.NewRequest("GET", "/swagger/doc.json", nil)
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "/board/gestures")

	req = httptest.NewRequest("GET", "/swagger/index.html", nil)
	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusOK, resp.Code)
}
