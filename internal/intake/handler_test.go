package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/llm/llmtest"
	"policylens-backend/internal/policy"
	"policylens-backend/internal/sessions"
	"policylens-backend/internal/shared/server/middleware"
)

const testSessionID = "0c9b1f5e-3d2a-4b7c-8e6f-a1b2c3d4e5f6"

func newTestRouter(t *testing.T, fake *llmtest.Client) (*gin.Engine, *sessions.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	repo := sessions.NewMemoryRepo(time.Hour)
	if err := repo.Create(context.Background(), sessions.New(testSessionID, time.Now())); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	h := NewHandler(newAgent(fake), repo)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.SessionID(), sessions.Middleware(repo))
	h.RegisterRoutes(api)
	h.RegisterLLMRoutes(api)
	return r, repo
}

func do(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.SessionHeader, testSessionID)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeConversation(t *testing.T, resp *httptest.ResponseRecorder) conversationResponse {
	t.Helper()
	var out conversationResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestChatLifecycle(t *testing.T) {
	fake := llmtest.New("Nice to meet you! How old are you?")
	r, repo := newTestRouter(t, fake)

	resp := do(r, http.MethodGet, "/api/v1/chat", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if got := decodeConversation(t, resp); got.State != policy.ChatNotStarted || len(got.Transcript) != 0 {
		t.Fatalf("unexpected initial chat %+v", got)
	}

	resp = do(r, http.MethodPost, "/api/v1/chat/start", nil)
	if got := decodeConversation(t, resp); got.State != policy.ChatCollecting || len(got.Transcript) != 1 {
		t.Fatalf("unexpected started chat %+v", got)
	}

	resp = do(r, http.MethodPost, "/api/v1/chat/messages", gin.H{"message": "I'm Asha"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "How old are you?") {
		t.Fatalf("reply missing: %s", resp.Body.String())
	}

	s, err := repo.Get(context.Background(), testSessionID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(s.Chat.Transcript) != 3 {
		t.Fatalf("expected 3 persisted entries, got %d", len(s.Chat.Transcript))
	}

	resp = do(r, http.MethodDelete, "/api/v1/chat", nil)
	if got := decodeConversation(t, resp); got.State != policy.ChatNotStarted || len(got.Transcript) != 0 {
		t.Fatalf("unexpected reset chat %+v", got)
	}
}

func TestChatMessageBeforeStart(t *testing.T) {
	fake := llmtest.New()
	r, _ := newTestRouter(t, fake)

	resp := do(r, http.MethodPost, "/api/v1/chat/messages", gin.H{"message": "hello"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if fake.Calls() != 0 {
		t.Fatalf("no completion expected")
	}
}

func TestChatRecommendationsRequireProfile(t *testing.T) {
	r, _ := newTestRouter(t, llmtest.New())
	do(r, http.MethodPost, "/api/v1/chat/start", nil)

	resp := do(r, http.MethodPost, "/api/v1/chat/recommendations", nil)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatRecommendationsMalformed(t *testing.T) {
	r, _ := newTestRouter(t, llmtest.New(ashaReply, "Star Health is best for you."))
	do(r, http.MethodPost, "/api/v1/chat/start", nil)
	if resp := do(r, http.MethodPost, "/api/v1/chat/messages", gin.H{"message": "done"}); resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp := do(r, http.MethodPost, "/api/v1/chat/recommendations", nil)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "llm_malformed_output") {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}
}
