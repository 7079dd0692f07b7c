package intake

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/llm"
	"policylens-backend/internal/policy"
	"policylens-backend/internal/recommendations"
	"policylens-backend/internal/render"
	"policylens-backend/internal/sessions"
	"policylens-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the intake agent.
type Handler struct {
	Agent    *Agent
	Sessions sessions.Repo
}

// NewHandler constructs a Handler.
func NewHandler(agent *Agent, repo sessions.Repo) *Handler {
	return &Handler{Agent: agent, Sessions: repo}
}

// RegisterRoutes attaches chat routes that do not call the model.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/chat", h.get)
	rg.POST("/chat/start", h.start)
	rg.DELETE("/chat", h.reset)
}

// RegisterLLMRoutes attaches chat routes that call the model.
func (h *Handler) RegisterLLMRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat/messages", h.message)
	rg.POST("/chat/recommendations", h.recommend)
}

type conversationResponse struct {
	State           policy.ChatState                 `json:"state"`
	Transcript      []policy.Message                 `json:"transcript"`
	Profile         *policy.Profile                  `json:"profile,omitempty"`
	Recommendations *policy.ProfileRecommendationSet `json:"recommendations,omitempty"`
	CardsHTML       string                           `json:"cardsHtml,omitempty"`
}

func toConversationResponse(conv policy.Conversation) (conversationResponse, error) {
	resp := conversationResponse{
		State:           conv.State,
		Transcript:      conv.Transcript,
		Profile:         conv.Profile,
		Recommendations: conv.Recommendations,
	}
	if resp.Transcript == nil {
		resp.Transcript = []policy.Message{}
	}
	if conv.Recommendations != nil {
		cards, err := render.AlternativeCards(conv.Recommendations.Alternatives, conv.Recommendations.CustomerName.Or("You"), true)
		if err != nil {
			return conversationResponse{}, err
		}
		resp.CardsHTML = cards
	}
	return resp, nil
}

func (h *Handler) respondConversation(c *gin.Context, status int, conv policy.Conversation) {
	resp, err := toConversationResponse(conv)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to render recommendations", err.Error())
		return
	}
	respond.JSON(c, status, resp)
}

func (h *Handler) get(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	h.respondConversation(c, http.StatusOK, s.Chat)
}

func (h *Handler) start(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	if h.Agent.Start(&s.Chat) {
		if !sessions.Save(c, h.Sessions, s) {
			return
		}
	}
	h.respondConversation(c, http.StatusOK, s.Chat)
}

type messageRequest struct {
	Message string `json:"message"`
}

func (h *Handler) message(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	s := sessions.Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	c.Set("promptContract", llm.ContractChat)

	turn, err := h.Agent.Reply(c.Request.Context(), &s.Chat, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotCollecting), errors.Is(err, ErrEmptyMessage):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
				{"field": "chatState", "issue": string(s.Chat.State)},
			})
		default:
			respond.Error(c, http.StatusBadGateway, "llm_unavailable", "the language model could not be reached", err.Error())
		}
		return
	}
	if !sessions.Save(c, h.Sessions, s) {
		return
	}
	respond.OK(c, gin.H{
		"reply":         turn.Reply,
		"state":         s.Chat.State,
		"profileReady":  turn.ProfileReady,
		"profileFailed": turn.ProfileFailed,
		"profile":       s.Chat.Profile,
	})
}

func (h *Handler) recommend(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	c.Set("promptContract", llm.ContractChatRecommend)

	if _, err := h.Agent.Recommend(c.Request.Context(), &s.Chat); err != nil {
		if errors.Is(err, ErrProfileNotReady) {
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), []map[string]string{
				{"field": "chatState", "issue": string(s.Chat.State)},
			})
			return
		}
		recommendations.WriteError(c, err)
		return
	}
	if !sessions.Save(c, h.Sessions, s) {
		return
	}
	h.respondConversation(c, http.StatusOK, s.Chat)
}

func (h *Handler) reset(c *gin.Context) {
	s := sessions.Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	h.Agent.Reset(&s.Chat)
	if !sessions.Save(c, h.Sessions, s) {
		return
	}
	h.respondConversation(c, http.StatusOK, s.Chat)
}
