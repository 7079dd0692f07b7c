package recommendations

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/export"
	"policylens-backend/internal/llm"
	"policylens-backend/internal/policy"
	"policylens-backend/internal/render"
	"policylens-backend/internal/sessions"
	"policylens-backend/internal/shared/metrics"
	"policylens-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the recommendations service.
type Handler struct {
	Svc      *Service
	Sessions sessions.Repo
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, repo sessions.Repo) *Handler {
	return &Handler{Svc: svc, Sessions: repo}
}

// RegisterRoutes attaches read-only routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/alternatives", h.current)
	rg.GET("/quotes/pdf", h.quotePDF)
}

// RegisterLLMRoutes attaches routes that call the completion endpoint.
func (h *Handler) RegisterLLMRoutes(rg *gin.RouterGroup) {
	rg.POST("/alternatives", h.recommend)
	rg.POST("/quotes", h.quote)
}

type alternativesResponse struct {
	Extracted     policy.Extracted      `json:"extracted"`
	Alternatives  []policy.Alternative  `json:"alternatives"`
	CurrentPolicy []render.PolicyMetric `json:"currentPolicy"`
	CardsHTML     string                `json:"cardsHtml"`
}

func toAlternativesResponse(set policy.RecommendationSet) (alternativesResponse, error) {
	cards, err := render.AlternativeCards(set.Alternatives, "", false)
	if err != nil {
		return alternativesResponse{}, err
	}
	return alternativesResponse{
		Extracted:     set.Extracted,
		Alternatives:  set.Alternatives,
		CurrentPolicy: render.CurrentPolicyMetrics(set.Extracted),
		CardsHTML:     cards,
	}, nil
}

func (h *Handler) recommend(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	c.Set("promptContract", llm.ContractRecommend)

	set, err := h.Svc.FromPolicy(c.Request.Context(), s.PolicyText)
	if err != nil {
		WriteError(c, err)
		return
	}
	resp, err := toAlternativesResponse(set)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render alternatives", err.Error())
		return
	}
	s.Recommendations = &set
	if !sessions.Save(c, h.Sessions, s) {
		return
	}
	respond.OK(c, resp)
}

func (h *Handler) current(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil || s.Recommendations == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "no alternatives yet", nil)
		return
	}
	resp, err := toAlternativesResponse(*s.Recommendations)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render alternatives", err.Error())
		return
	}
	respond.OK(c, resp)
}

type quoteRequest struct {
	Insurer string `json:"insurer"`
}

func (h *Handler) quote(c *gin.Context) {
	var req quoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	s := sessions.Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	insurer, err := QuotableInsurer(req.Insurer, s.Recommendations)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
			{"field": "insurer", "issue": "not_offered"},
		})
		return
	}
	c.Set("promptContract", llm.ContractQuote)

	var extracted policy.Extracted
	if s.Recommendations != nil {
		extracted = s.Recommendations.Extracted
	}
	q, err := h.Svc.Quote(c.Request.Context(), insurer, extracted)
	if err != nil {
		WriteError(c, err)
		return
	}
	s.Quote = &q
	if !sessions.Save(c, h.Sessions, s) {
		return
	}
	respond.OK(c, gin.H{
		"insurer":   q.Insurer,
		"quote":     q.Text,
		"quoteHtml": render.Markdown(q.Text),
		"fileName":  export.QuoteFileName(q.Insurer),
	})
}

func (h *Handler) quotePDF(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil || s.Quote == nil {
		respond.Error(c, http.StatusNotFound, "not_found", "no quote yet", nil)
		return
	}
	pdf, err := export.RenderPDF(export.QuoteTitle(s.Quote.Insurer), s.Quote.Text)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render quote PDF", err.Error())
		return
	}
	metrics.IncPDF("quote")
	respond.PDF(c, export.QuoteFileName(s.Quote.Insurer), pdf)
}

// WriteError maps service failures onto the error envelope.
func WriteError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrEmptyText):
		respond.Error(c, http.StatusBadRequest, "validation_error", "upload a PDF or paste policy text first", nil)
	case errors.Is(err, ErrInsurerRequired), errors.Is(err, ErrUnknownInsurer):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrMalformedOutput):
		respond.Error(c, http.StatusBadGateway, "llm_malformed_output", "the model reply could not be understood, please try again", err.Error())
	default:
		respond.Error(c, http.StatusBadGateway, "llm_unavailable", "the language model could not be reached", err.Error())
	}
}
