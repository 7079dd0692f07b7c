package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		chatState := ""
		if raw, ok := c.Get("chatState"); ok {
			if s, ok := raw.(string); ok {
				chatState = s
			}
		}
		contract, _ := c.Get("promptContract")

		telemetry.Info("request.complete", map[string]any{
			"request_id":      RequestIDFromContext(c),
			"session_id":      SessionIDFromContext(c),
			"method":          c.Request.Method,
			"path":            c.Request.URL.Path,
			"route":           c.FullPath(),
			"status":          status,
			"chat_state":      chatState,
			"prompt_contract": contract,
			"duration_ms":     float64(latency.Microseconds()) / 1000.0,
			"client_ip":       c.ClientIP(),
			"user_agent":      c.Request.UserAgent(),
		})
	}
}
