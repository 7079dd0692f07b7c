package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"policylens-backend/internal/analyses"
	"policylens-backend/internal/documents"
	"policylens-backend/internal/intake"
	"policylens-backend/internal/recommendations"
	"policylens-backend/internal/services/health"
	"policylens-backend/internal/sessions"
	"policylens-backend/internal/shared/config"
	"policylens-backend/internal/shared/metrics"
	"policylens-backend/internal/shared/server/middleware"
	"policylens-backend/internal/shared/server/respond"
)

const (
	rateLimitDefaultGroup = "DEFAULT"
	rateLimitLLMGroup     = "LLM"
)

// RouterDeps holds handlers needed for routing.
type RouterDeps struct {
	Config                 config.Config
	Health                 *health.Service
	Sessions               sessions.Repo
	SessionHandler         *sessions.Handler
	DocumentHandler        *documents.Handler
	AnalysisHandler        *analyses.Handler
	RecommendationsHandler *recommendations.Handler
	IntakeHandler          *intake.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = 10 << 20

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health == nil {
			respond.JSON(c, http.StatusOK, gin.H{"ok": true})
			return
		}
		ok, components := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, gin.H{"ok": ok, "components": components})
	})
	api.GET("/metrics", metrics.Handler())
	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterPublicRoutes(api)
	}

	limiter := middleware.NewRateLimiter(nil)
	rules := map[string]middleware.RateLimitRule{
		rateLimitDefaultGroup: {Rate: deps.Config.RateLimitDefault.RPS, Burst: deps.Config.RateLimitDefault.Burst},
		rateLimitLLMGroup:     {Rate: deps.Config.RateLimitLLM.RPS, Burst: deps.Config.RateLimitLLM.Burst},
	}

	scoped := api.Group("")
	scoped.Use(
		middleware.SessionID(),
		sessions.Middleware(deps.Sessions),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules:        rules,
			DefaultGroup: rateLimitDefaultGroup,
			Limiter:      limiter,
		}),
	)

	// Routes that call the completion endpoint draw from a second, smaller bucket.
	llmRoutes := scoped.Group("")
	llmRoutes.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules:        rules,
		DefaultGroup: rateLimitLLMGroup,
		Limiter:      limiter,
	}))

	if deps.SessionHandler != nil {
		deps.SessionHandler.RegisterRoutes(scoped)
	}
	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(scoped)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(scoped)
		deps.AnalysisHandler.RegisterLLMRoutes(llmRoutes)
	}
	if deps.RecommendationsHandler != nil {
		deps.RecommendationsHandler.RegisterRoutes(scoped)
		deps.RecommendationsHandler.RegisterLLMRoutes(llmRoutes)
	}
	if deps.IntakeHandler != nil {
		deps.IntakeHandler.RegisterRoutes(scoped)
		deps.IntakeHandler.RegisterLLMRoutes(llmRoutes)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
