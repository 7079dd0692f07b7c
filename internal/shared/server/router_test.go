package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/analyses"
	"policylens-backend/internal/llm"
	"policylens-backend/internal/llm/llmtest"
	"policylens-backend/internal/services/health"
	"policylens-backend/internal/sessions"
	"policylens-backend/internal/shared/config"
	"policylens-backend/internal/shared/server"
	"policylens-backend/internal/shared/server/middleware"
)

func newRouter(t *testing.T, cfg config.Config, checks map[string]health.Check) (*gin.Engine, *llmtest.Client) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := sessions.NewMemoryRepo(time.Hour)
	fake := llmtest.New()
	return server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Health:          health.NewService(checks),
		Sessions:        repo,
		SessionHandler:  sessions.NewHandler(repo),
		AnalysisHandler: analyses.NewHandler(analyses.NewService(fake, llm.MustLoadContracts()), repo, nil),
	}), fake
}

func serve(r *gin.Engine, method, path, sessionID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if sessionID != "" {
		req.Header.Set(middleware.SessionHeader, sessionID)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestHealthReportsComponents(t *testing.T) {
	r, _ := newRouter(t, config.Config{}, map[string]health.Check{
		"postgres": func(context.Context) error { return errors.New("dial tcp: connection refused") },
	})

	resp := serve(r, http.MethodGet, "/api/v1/health", "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	var body struct {
		OK         bool              `json:"ok"`
		Components map[string]string `json:"components"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.OK || !strings.Contains(body.Components["postgres"], "refused") {
		t.Fatalf("unexpected body %+v", body)
	}
	if resp.Header().Get(middleware.SessionHeader) != "" {
		t.Fatalf("health must not create sessions")
	}
}

func TestSessionsAreCreatedAndEchoed(t *testing.T) {
	r, _ := newRouter(t, config.Config{}, nil)

	resp := serve(r, http.MethodPost, "/api/v1/sessions", "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil || created.SessionID == "" {
		t.Fatalf("decode: %v %s", err, resp.Body.String())
	}

	resp = serve(r, http.MethodGet, "/api/v1/session", created.SessionID)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := resp.Header().Get(middleware.SessionHeader); got != created.SessionID {
		t.Fatalf("expected session header %q, got %q", created.SessionID, got)
	}

	resp = serve(r, http.MethodGet, "/api/v1/session", "not-a-uuid")
	if got := resp.Header().Get(middleware.SessionHeader); got == "" || got == "not-a-uuid" {
		t.Fatalf("malformed id must be replaced, got %q", got)
	}
}

func TestLLMRoutesHaveTheirOwnBucket(t *testing.T) {
	cfg := config.Config{
		RateLimitDefault: config.RateLimit{RPS: 100, Burst: 100},
		RateLimitLLM:     config.RateLimit{RPS: 0.001, Burst: 1},
	}
	r, fake := newRouter(t, cfg, nil)

	resp := serve(r, http.MethodPost, "/api/v1/sessions", "")
	var created struct {
		SessionID string `json:"sessionId"`
	}
	_ = json.Unmarshal(resp.Body.Bytes(), &created)

	// No policy text yet, so the first call fails validation without a completion.
	if resp := serve(r, http.MethodPost, "/api/v1/analyze", created.SessionID); resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	resp = serve(r, http.MethodPost, "/api/v1/analyze", created.SessionID)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp.Code)
	}
	if resp.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
	if resp := serve(r, http.MethodGet, "/api/v1/session", created.SessionID); resp.Code != http.StatusOK {
		t.Fatalf("non-LLM routes must stay available, got %d", resp.Code)
	}
	if fake.Calls() != 0 {
		t.Fatalf("no completion expected")
	}
}

func TestAddr(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ":8080"},
		{"9000", ":9000"},
		{":7000", ":7000"},
	}
	for _, tt := range tests {
		if got := server.Addr(tt.in); got != tt.want {
			t.Fatalf("Addr(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
