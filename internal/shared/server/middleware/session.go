package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// SessionHeader carries the caller's session identifier in both directions.
	SessionHeader = "X-Session-Id"
	sessionIDKey  = "sessionId"
)

// SessionID copies a well-formed X-Session-Id header into the context.
// Malformed ids are dropped so a fresh session gets created downstream.
func SessionID() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(SessionHeader))
		if raw != "" {
			if _, err := uuid.Parse(raw); err == nil {
				c.Set(sessionIDKey, raw)
			}
		}
		c.Next()
	}
}

// SetSessionID records the resolved session id on the context and response.
func SetSessionID(c *gin.Context, id string) {
	c.Set(sessionIDKey, id)
	c.Writer.Header().Set(SessionHeader, id)
}

// SessionIDFromContext returns the session id resolved for this request.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
