package sessions

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"policylens-backend/internal/shared/server/middleware"
	"policylens-backend/internal/shared/server/respond"
	"policylens-backend/internal/shared/telemetry"
)

const sessionKey = "session"

// Middleware resolves the request's session, creating one when the
// X-Session-Id header is missing or names an unknown session.
func Middleware(repo Repo) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id := middleware.SessionIDFromContext(c)
		if id != "" {
			s, err := repo.Get(ctx, id)
			switch {
			case err == nil:
				middleware.SetSessionID(c, s.ID)
				c.Set(sessionKey, &s)
				c.Set("chatState", string(s.Chat.State))
				c.Next()
				return
			case !errors.Is(err, ErrNotFound):
				respond.Error(c, http.StatusInternalServerError, "session_unavailable", "failed to load session", err.Error())
				return
			}
		}

		s := New(uuid.NewString(), time.Now())
		if err := repo.Create(ctx, s); err != nil {
			respond.Error(c, http.StatusInternalServerError, "session_unavailable", "failed to create session", err.Error())
			return
		}
		telemetry.Info("session.created", map[string]any{
			"session_id":   s.ID,
			"replaced_id":  id,
			"request_id":   c.GetString("requestId"),
			"request_path": c.Request.URL.Path,
		})
		middleware.SetSessionID(c, s.ID)
		c.Set(sessionKey, &s)
		c.Set("chatState", string(s.Chat.State))
		c.Next()
	}
}

// Current returns the session resolved by Middleware.
func Current(c *gin.Context) *Session {
	val, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := val.(*Session)
	return s
}

// Handler exposes session lifecycle routes.
type Handler struct {
	Repo Repo
}

// NewHandler constructs a Handler.
func NewHandler(repo Repo) *Handler {
	return &Handler{Repo: repo}
}

// RegisterPublicRoutes attaches routes that run before session resolution.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions", h.create)
}

// RegisterRoutes attaches routes that need the current session.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/session", h.get)
	rg.DELETE("/session", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	s := New(uuid.NewString(), time.Now())
	if err := h.Repo.Create(c.Request.Context(), s); err != nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "failed to create session", err.Error())
		return
	}
	middleware.SetSessionID(c, s.ID)
	respond.JSON(c, http.StatusCreated, gin.H{"sessionId": s.ID})
}

func (h *Handler) get(c *gin.Context) {
	s := Current(c)
	if s == nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "session not resolved", nil)
		return
	}
	respond.OK(c, s.Snapshot())
}

func (h *Handler) delete(c *gin.Context) {
	s := Current(c)
	if s == nil {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.Repo.Delete(c.Request.Context(), s.ID); err != nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "failed to delete session", err.Error())
		return
	}
	c.Header(middleware.SessionHeader, "")
	c.Status(http.StatusNoContent)
}

// Save persists s and maps failures onto the error envelope. It reports
// whether the caller may continue writing its response.
func Save(c *gin.Context, repo Repo, s *Session) bool {
	if err := repo.Save(c.Request.Context(), *s); err != nil {
		respond.Error(c, http.StatusInternalServerError, "session_unavailable", "failed to save session", err.Error())
		return false
	}
	c.Set("chatState", string(s.Chat.State))
	return true
}
