package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/shared/server/respond"
	"policylens-backend/internal/shared/telemetry"
)

// Recovery turns a panicking handler into a 500 envelope. The session is
// not saved, so a request that panics leaves it as it was.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			contract, _ := c.Get("promptContract")
			telemetry.Error("http.panic", map[string]any{
				"request_id":      RequestIDFromContext(c),
				"session_id":      SessionIDFromContext(c),
				"prompt_contract": contract,
				"error":           rec,
				"stack":           string(debug.Stack()),
				"path":            c.Request.URL.Path,
				"method":          c.Request.Method,
			})
			if c.Writer.Written() {
				c.Abort()
				return
			}
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Unexpected server error", nil)
		}()
		c.Next()
	}
}
