// Package documents ingests policy text into the current session, either
// from an uploaded file or from pasted text.
package documents

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/extract"
	"policylens-backend/internal/sessions"
	"policylens-backend/internal/shared/server/respond"
	"policylens-backend/internal/shared/telemetry"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the session store.
type Handler struct {
	Sessions sessions.Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo sessions.Repo) *Handler {
	return &Handler{Sessions: repo}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.POST("/documents/text", h.paste)
}

type ingestResponse struct {
	Chars    int    `json:"chars"`
	Pages    int    `json:"pages,omitempty"`
	MimeType string `json:"mimeType"`
	FileName string `json:"fileName,omitempty"`
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds the 10MB limit", nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	res, err := extract.ExtractTextFromBytes(c.Request.Context(), data, fileHeader.Header.Get("Content-Type"), fileHeader.Filename)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrUnsupported):
			respond.Error(c, http.StatusBadRequest, "validation_error", "upload a PDF or plain-text policy", []map[string]string{
				{"field": "file", "issue": "unsupported_type"},
			})
		case errors.Is(err, extract.ErrEmpty):
			respond.Error(c, http.StatusBadRequest, "validation_error", "no text could be read from the file", []map[string]string{
				{"field": "file", "issue": "empty"},
			})
		default:
			respond.Error(c, http.StatusBadRequest, "validation_error", "the file could not be read as a PDF", err.Error())
		}
		return
	}

	h.store(c, res.Text, ingestResponse{
		Pages:    res.Pages,
		MimeType: res.MimeType,
		FileName: fileHeader.Filename,
	})
}

type pasteRequest struct {
	Text string `json:"text"`
}

func (h *Handler) paste(c *gin.Context) {
	var req pasteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "text is required", []map[string]string{
			{"field": "text", "issue": "required"},
		})
		return
	}
	h.store(c, req.Text, ingestResponse{MimeType: "text/plain"})
}

// store replaces the session's policy text, which drops every artifact
// derived from the previous text.
func (h *Handler) store(c *gin.Context, text string, resp ingestResponse) {
	s := sessions.Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	s.SetPolicyText(text)
	if !sessions.Save(c, h.Sessions, s) {
		return
	}
	resp.Chars = utf8.RuneCountInString(text)
	telemetry.Info("documents.ingested", map[string]any{
		"session_id": s.ID,
		"request_id": c.GetString("requestId"),
		"mime_type":  resp.MimeType,
		"chars":      resp.Chars,
		"pages":      resp.Pages,
	})
	respond.JSON(c, http.StatusCreated, resp)
}
