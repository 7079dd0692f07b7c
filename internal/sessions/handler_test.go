package sessions

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/shared/server/middleware"
)

func newSessionRouter(repo Repo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	h := NewHandler(repo)
	h.RegisterPublicRoutes(api)
	scoped := api.Group("")
	scoped.Use(middleware.SessionID(), Middleware(repo))
	h.RegisterRoutes(scoped)
	return r
}

func TestMiddlewareCreatesSessionWithoutHeader(t *testing.T) {
	repo := NewMemoryRepo(time.Hour)
	r := newSessionRouter(repo)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	id := resp.Header().Get(middleware.SessionHeader)
	if id == "" {
		t.Fatalf("expected session header")
	}
	if _, err := repo.Get(context.Background(), id); err != nil {
		t.Fatalf("session not persisted: %v", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.SessionID != id || snap.ChatState != "not_started" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestMiddlewareReusesKnownSession(t *testing.T) {
	repo := NewMemoryRepo(time.Hour)
	r := newSessionRouter(repo)

	create := httptest.NewRecorder()
	r.ServeHTTP(create, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	if create.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", create.Code)
	}
	var body struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(create.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set(middleware.SessionHeader, body.SessionID)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if got := resp.Header().Get(middleware.SessionHeader); got != body.SessionID {
		t.Fatalf("expected session %s to be reused, got %s", body.SessionID, got)
	}
	if repo.Len() != 1 {
		t.Fatalf("expected one session, have %d", repo.Len())
	}
}

func TestMiddlewareReplacesUnknownSession(t *testing.T) {
	repo := NewMemoryRepo(time.Hour)
	r := newSessionRouter(repo)

	const unknown = "0f8fad5b-d9cb-469f-a165-70867728950e"
	req := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	req.Header.Set(middleware.SessionHeader, unknown)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	got := resp.Header().Get(middleware.SessionHeader)
	if got == "" || got == unknown {
		t.Fatalf("expected a fresh session id, got %q", got)
	}
}

func TestDeleteSession(t *testing.T) {
	repo := NewMemoryRepo(time.Hour)
	r := newSessionRouter(repo)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	id := resp.Header().Get(middleware.SessionHeader)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/session", nil)
	req.Header.Set(middleware.SessionHeader, id)
	del := httptest.NewRecorder()
	r.ServeHTTP(del, req)
	if del.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", del.Code)
	}
	if repo.Len() != 0 {
		t.Fatalf("expected session to be deleted")
	}
}
