package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"policylens-backend/internal/shared/telemetry"
)

func TestLoggingIncludesRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)

	core, logs := observer.New(zap.InfoLevel)
	prev := telemetry.L()
	telemetry.SetLogger(zap.New(core))
	defer telemetry.SetLogger(prev)

	sessionID := "6f1c2d8e-93a4-4b8e-a0a5-0d3c6f7e9b21"
	router := gin.New()
	router.Use(RequestID(), SessionID(), Logging())
	router.POST("/chat/messages", func(c *gin.Context) {
		c.Set("chatState", "collecting")
		c.Set("promptContract", "chat")
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/chat/messages", nil)
	req.Header.Set(SessionHeader, sessionID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	entries := logs.FilterMessage("request.complete").All()
	if len(entries) != 1 {
		t.Fatalf("expected one request.complete entry, got %d", len(entries))
	}
	payload := entries[0].ContextMap()

	required := []string{"request_id", "session_id", "duration_ms", "status", "chat_state", "prompt_contract"}
	for _, key := range required {
		if _, ok := payload[key]; !ok {
			t.Fatalf("missing log field: %s", key)
		}
	}
	if payload["session_id"] != sessionID {
		t.Fatalf("unexpected session_id: %v", payload["session_id"])
	}
	if payload["chat_state"] != "collecting" {
		t.Fatalf("unexpected chat_state: %v", payload["chat_state"])
	}
	if payload["prompt_contract"] != "chat" {
		t.Fatalf("unexpected prompt_contract: %v", payload["prompt_contract"])
	}
	if payload["request_id"] == "" || payload["request_id"] != resp.Header().Get("X-Request-Id") {
		t.Fatalf("request_id mismatch: %v vs %q", payload["request_id"], resp.Header().Get("X-Request-Id"))
	}
}

func TestSessionIDIgnoresMalformedHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(SessionID())
	var got string
	router.GET("/", func(c *gin.Context) {
		got = SessionIDFromContext(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(SessionHeader, "../../etc/passwd")
	router.ServeHTTP(httptest.NewRecorder(), req)
	if got != "" {
		t.Fatalf("expected malformed session id to be dropped, got %q", got)
	}
}
