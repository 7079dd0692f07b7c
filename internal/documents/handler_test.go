package documents_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/bootstrap"
	"policylens-backend/internal/llm/llmtest"
	"policylens-backend/internal/shared/config"
	"policylens-backend/internal/shared/server/middleware"
)

func newRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		SessionStore:    "memory",
		SessionTTL:      time.Hour,
		SMTPHost:        "smtp.example.com",
		SMTPPort:        465,
	}
	app, err := bootstrap.Build(cfg, bootstrap.WithLLM(llmtest.New()))
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app.Router
}

func uploadRequest(t *testing.T, fileName string, content []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func TestDocumentsUploadThenSnapshot(t *testing.T) {
	router := newRouter(t)

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, uploadRequest(t, "policy.txt", []byte("Policy schedule: sum insured ₹5,00,000")))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}
	sessionID := resp.Header().Get(middleware.SessionHeader)
	if sessionID == "" {
		t.Fatalf("expected a session id header")
	}

	var created struct {
		Chars    int    `json:"chars"`
		MimeType string `json:"mimeType"`
		FileName string `json:"fileName"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Chars != 38 || created.MimeType != "text/plain" || created.FileName != "policy.txt" {
		t.Fatalf("unexpected response %+v", created)
	}

	reqGet := httptest.NewRequest(http.MethodGet, "/api/v1/session", nil)
	reqGet.Header.Set(middleware.SessionHeader, sessionID)
	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, reqGet)
	if respGet.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respGet.Code)
	}
	var snap struct {
		SessionID     string `json:"sessionId"`
		HasPolicyText bool   `json:"hasPolicyText"`
		PolicyChars   int    `json:"policyChars"`
	}
	if err := json.NewDecoder(respGet.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.SessionID != sessionID || !snap.HasPolicyText || snap.PolicyChars != 38 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}

func TestDocumentsUploadRejects(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	tests := []struct {
		name     string
		fileName string
		content  []byte
	}{
		{name: "image", fileName: "scan.png", content: png},
		{name: "blank text", fileName: "empty.txt", content: []byte("   \n\t")},
		{name: "broken pdf", fileName: "policy.pdf", content: []byte("%PDF-1.4 not really")},
	}
	router := newRouter(t)
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, uploadRequest(t, tt.fileName, tt.content))
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
			}
			if !strings.Contains(resp.Body.String(), "validation_error") {
				t.Fatalf("unexpected body %s", resp.Body.String())
			}
		})
	}
}

func TestDocumentsUploadRequiresFile(t *testing.T) {
	router := newRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestDocumentsPasteText(t *testing.T) {
	router := newRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents/text", strings.NewReader(`{"text": "Family floater health policy"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `"chars":28`) {
		t.Fatalf("unexpected body %s", resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodPost, "/api/v1/documents/text", strings.NewReader(`{"text": "  "}`))
	req.Header.Set("Content-Type", "application/json")
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}
