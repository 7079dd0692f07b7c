package analyses

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/export"
	"policylens-backend/internal/llm"
	"policylens-backend/internal/mail"
	"policylens-backend/internal/render"
	"policylens-backend/internal/sessions"
	"policylens-backend/internal/shared/metrics"
	"policylens-backend/internal/shared/server/respond"
	"policylens-backend/internal/shared/telemetry"
)

// Mailer delivers a summary with its PDF.
type Mailer interface {
	SendSummary(ctx context.Context, to, summary string, pdf []byte) error
}

// Handler wires HTTP handlers to the analyses service.
type Handler struct {
	Svc      *Service
	Sessions sessions.Repo
	Mailer   Mailer
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, repo sessions.Repo, mailer Mailer) *Handler {
	return &Handler{Svc: svc, Sessions: repo, Mailer: mailer}
}

// RegisterRoutes attaches non-LLM analysis routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/summary", h.summary)
	rg.GET("/summary/pdf", h.summaryPDF)
	rg.POST("/summary/email", h.emailSummary)
}

// RegisterLLMRoutes attaches routes that call the completion endpoint.
func (h *Handler) RegisterLLMRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
}

func (h *Handler) analyze(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	c.Set("promptContract", llm.ContractValidate)

	res, err := h.Svc.Analyze(c.Request.Context(), s.PolicyText)
	if err != nil {
		switch {
		case errors.Is(err, ErrEmptyText):
			respond.Error(c, http.StatusBadRequest, "validation_error", "upload a PDF or paste policy text first", nil)
		default:
			respond.Error(c, http.StatusBadGateway, "llm_unavailable", "the language model could not be reached", err.Error())
		}
		return
	}

	verdict := res.Validation
	s.Validation = &verdict
	if !verdict.Valid {
		s.ClearDerived()
		if !sessions.Save(c, h.Sessions, s) {
			return
		}
		respond.OK(c, gin.H{"valid": false, "reason": verdict.Reason})
		return
	}

	c.Set("promptContract", llm.ContractSummarize)
	pdf, err := export.RenderPDF(export.DefaultTitle, res.Summary)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render summary PDF", err.Error())
		return
	}
	metrics.IncPDF("summary")
	s.Summary = res.Summary
	s.SummaryPDF = pdf
	if !sessions.Save(c, h.Sessions, s) {
		return
	}

	respond.OK(c, gin.H{
		"valid":       true,
		"reason":      verdict.Reason,
		"summary":     res.Summary,
		"summaryHtml": render.Markdown(res.Summary),
	})
}

func (h *Handler) summary(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil || s.Summary == "" {
		respond.Error(c, http.StatusNotFound, "not_found", ErrNoSummary.Error(), nil)
		return
	}
	respond.OK(c, gin.H{
		"summary":     s.Summary,
		"summaryHtml": render.Markdown(s.Summary),
		"validation":  s.Validation,
	})
}

func (h *Handler) summaryPDF(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil || s.Summary == "" {
		respond.Error(c, http.StatusNotFound, "not_found", ErrNoSummary.Error(), nil)
		return
	}
	pdf, ok := h.ensurePDF(c, s)
	if !ok {
		return
	}
	respond.PDF(c, export.SummaryFileName, pdf)
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) emailSummary(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	s := sessions.Current(c)
	if s == nil || s.Summary == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", ErrNoSummary.Error(), nil)
		return
	}
	if h.Mailer == nil {
		respond.Error(c, http.StatusServiceUnavailable, "email_not_configured", mail.ErrNotConfigured.Error(), nil)
		return
	}
	pdf, ok := h.ensurePDF(c, s)
	if !ok {
		return
	}

	to := strings.TrimSpace(req.Email)
	err := h.Mailer.SendSummary(c.Request.Context(), to, s.Summary, pdf)
	if !errors.Is(err, mail.ErrInvalidAddress) {
		metrics.IncEmail(err)
	}
	if err != nil {
		switch {
		case errors.Is(err, mail.ErrInvalidAddress):
			respond.Error(c, http.StatusBadRequest, "validation_error", "a valid email address is required", nil)
		case errors.Is(err, mail.ErrNotConfigured):
			respond.Error(c, http.StatusServiceUnavailable, "email_not_configured", err.Error(), nil)
		default:
			respond.Error(c, http.StatusBadGateway, "email_failed", "the summary email could not be sent", err.Error())
		}
		return
	}
	telemetry.Info("summary.emailed", map[string]any{
		"session_id": s.ID,
		"pdf_bytes":  len(pdf),
	})
	respond.OK(c, gin.H{"sent": true, "email": to})
}

// ensurePDF returns the stored summary PDF, rendering it if it was never stored.
func (h *Handler) ensurePDF(c *gin.Context, s *sessions.Session) ([]byte, bool) {
	if len(s.SummaryPDF) > 0 {
		return s.SummaryPDF, true
	}
	pdf, err := export.RenderPDF(export.DefaultTitle, s.Summary)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render summary PDF", err.Error())
		return nil, false
	}
	metrics.IncPDF("summary")
	s.SummaryPDF = pdf
	if !sessions.Save(c, h.Sessions, s) {
		return nil, false
	}
	return pdf, true
}
