package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"policylens-backend/internal/analyses"
	"policylens-backend/internal/documents"
	"policylens-backend/internal/intake"
	"policylens-backend/internal/llm"
	anthropicllm "policylens-backend/internal/llm/anthropic"
	openaillm "policylens-backend/internal/llm/openai"
	"policylens-backend/internal/mail"
	"policylens-backend/internal/recommendations"
	"policylens-backend/internal/services/health"
	"policylens-backend/internal/sessions"
	"policylens-backend/internal/shared/config"
	"policylens-backend/internal/shared/server"
	"policylens-backend/internal/shared/storage/db"
	"policylens-backend/internal/shared/telemetry"
)

// App holds shared dependencies.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Redis     *redis.Client
	Sessions  sessions.Repo
	LLM       llm.Client
	Contracts *llm.Contracts
	Mailer    *mail.Sender
	Health    *health.Service

	AnalysesService        *analyses.Service
	RecommendationsService *recommendations.Service
	IntakeAgent            *intake.Agent

	SessionHandler         *sessions.Handler
	DocumentsHandler       *documents.Handler
	AnalysisHandler        *analyses.Handler
	RecommendationsHandler *recommendations.Handler
	IntakeHandler          *intake.Handler
}

// Option adjusts how Build assembles the App.
type Option func(*App)

// WithLLM replaces the configured completion client, typically with a fake.
func WithLLM(client llm.Client) Option {
	return func(a *App) { a.LLM = client }
}

// WithSessions replaces the configured session store.
func WithSessions(repo sessions.Repo) Option {
	return func(a *App) { a.Sessions = repo }
}

// Build prepares dependencies and wires routes.
func Build(cfg config.Config, opts ...Option) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	app := &App{Config: cfg}
	for _, opt := range opts {
		opt(app)
	}

	if app.Sessions == nil {
		if err := buildSessions(ctx, app); err != nil {
			return nil, err
		}
	}
	if app.LLM == nil {
		client, err := NewLLMClient(cfg)
		if err != nil {
			return nil, err
		}
		app.LLM = client
	}

	contracts, err := llm.LoadContracts(cfg.PromptsFile)
	if err != nil {
		return nil, err
	}
	app.Contracts = contracts

	app.Mailer = mail.NewSender(mail.Options{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.GmailAddress,
		Password: cfg.GmailAppPassword,
	})
	if !app.Mailer.Configured() {
		telemetry.Warn("bootstrap.mail_not_configured", map[string]any{
			"smtp_host": cfg.SMTPHost,
		})
	}

	buildServices(app)
	app.Health = health.NewService(healthChecks(app))

	app.Router = server.NewRouter(server.RouterDeps{
		Config:                 app.Config,
		Health:                 app.Health,
		Sessions:               app.Sessions,
		SessionHandler:         app.SessionHandler,
		DocumentHandler:        app.DocumentsHandler,
		AnalysisHandler:        app.AnalysisHandler,
		RecommendationsHandler: app.RecommendationsHandler,
		IntakeHandler:          app.IntakeHandler,
	})

	return app, nil
}

// Close releases database and cache connections.
func (a *App) Close() error {
	var firstErr error
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func healthChecks(app *App) map[string]health.Check {
	checks := map[string]health.Check{}
	if app.DB != nil {
		checks["postgres"] = app.DB.PingContext
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

func buildSessions(ctx context.Context, app *App) error {
	cfg := app.Config
	switch cfg.SessionStore {
	case "postgres":
		sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			if cfg.IsDevLike() {
				telemetry.Warn("bootstrap.database_unavailable", map[string]any{"error": err})
				app.Sessions = sessions.NewMemoryRepo(cfg.SessionTTL)
				return nil
			}
			return err
		}
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return fmt.Errorf("run migrations: %w", err)
		}
		app.DB = sqlDB
		app.Sessions = &sessions.PGRepo{DB: sqlDB, TTL: cfg.SessionTTL}
	case "redis":
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(redisOpts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			if cfg.IsDevLike() {
				telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"error": err})
				app.Sessions = sessions.NewMemoryRepo(cfg.SessionTTL)
				return nil
			}
			return fmt.Errorf("ping redis: %w", err)
		}
		app.Redis = client
		app.Sessions = &sessions.RedisRepo{Client: client, TTL: cfg.SessionTTL}
	default:
		app.Sessions = sessions.NewMemoryRepo(cfg.SessionTTL)
	}
	telemetry.Info("bootstrap.sessions", map[string]any{
		"store": cfg.SessionStore,
		"ttl":   cfg.SessionTTL.String(),
	})
	return nil
}

// NewLLMClient builds the configured provider client with logging, metrics and retries.
func NewLLMClient(cfg config.Config) (llm.Client, error) {
	var base llm.Client
	switch cfg.LLMProvider {
	case config.ProviderGroq, config.ProviderOpenAI:
		if strings.TrimSpace(cfg.LLMAPIKey) == "" && cfg.IsDevLike() {
			telemetry.Warn("bootstrap.llm_placeholder", map[string]any{
				"provider": cfg.LLMProvider,
				"reason":   "missing api key",
			})
			base = llm.PlaceholderClient{}
			break
		}
		client, err := openaillm.NewClient(openaillm.Options{
			Provider: cfg.LLMProvider,
			APIKey:   cfg.LLMAPIKey,
			Model:    cfg.LLMModel,
			BaseURL:  cfg.LLMBaseURL,
			Timeout:  cfg.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
		base = client
	case config.ProviderAnthropic:
		client, err := anthropicllm.NewClient(anthropicllm.Options{
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
			BaseURL: cfg.LLMBaseURL,
			Timeout: cfg.LLMTimeout,
		})
		if err != nil {
			return nil, err
		}
		base = client
	default:
		base = llm.PlaceholderClient{}
	}

	client := llm.Instrument(base, cfg.LLMProvider, cfg.LLMModel)
	return llm.WithRetry(client, llm.RetryPolicy{MaxRetries: cfg.LLMMaxRetries}), nil
}

func buildServices(app *App) {
	app.AnalysesService = analyses.NewService(app.LLM, app.Contracts)
	app.RecommendationsService = recommendations.NewService(app.LLM, app.Contracts)
	app.IntakeAgent = intake.NewAgent(app.LLM, app.Contracts, app.RecommendationsService)

	app.SessionHandler = sessions.NewHandler(app.Sessions)
	app.DocumentsHandler = documents.NewHandler(app.Sessions)
	app.AnalysisHandler = analyses.NewHandler(app.AnalysesService, app.Sessions, app.Mailer)
	app.RecommendationsHandler = recommendations.NewHandler(app.RecommendationsService, app.Sessions)
	app.IntakeHandler = intake.NewHandler(app.IntakeAgent, app.Sessions)
}
