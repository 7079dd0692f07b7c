package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
)

const (
	ProviderGroq        = "groq"
	ProviderOpenAI      = "openai"
	ProviderAnthropic   = "anthropic"
	ProviderPlaceholder = "placeholder"

	defaultGroqModel      = "llama-3.3-70b-versatile"
	defaultGroqBaseURL    = "https://api.groq.com/openai/v1"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultAnthropicModel = "claude-3-5-haiku-latest"
)

// RateLimit is a token bucket rule expressed in requests per second.
type RateLimit struct {
	RPS   float64 `validate:"gte=0"`
	Burst int     `validate:"gte=0"`
}

// Config holds application configuration.
type Config struct {
	Port            string `validate:"required"`
	Env             string `validate:"oneof=dev local staging production"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	CORSAllowOrigin []string

	LLMProvider   string `validate:"oneof=groq openai anthropic placeholder"`
	LLMModel      string
	LLMBaseURL    string `validate:"omitempty,url"`
	LLMAPIKey     string
	LLMTimeout    time.Duration `validate:"gt=0"`
	LLMMaxRetries int           `validate:"gte=0,lte=5"`
	PromptsFile   string

	SMTPHost         string `validate:"required"`
	SMTPPort         int    `validate:"gt=0,lte=65535"`
	GmailAddress     string `validate:"omitempty,email"`
	GmailAppPassword string

	SessionStore string        `validate:"oneof=memory postgres redis"`
	SessionTTL   time.Duration `validate:"gt=0"`
	DatabaseURL  string        `validate:"required_if=SessionStore postgres"`
	RedisURL     string        `validate:"required_if=SessionStore redis"`

	RateLimitDefault RateLimit
	RateLimitLLM     RateLimit
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (Config, error) {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	provider := normalizeProvider(getEnv("LLM_PROVIDER", ProviderGroq))
	dbURL := os.Getenv("DATABASE_URL")

	store := normalizeSessionStore(getEnv("SESSION_STORE", ""), dbURL, os.Getenv("REDIS_URL"))
	if env == "production" && store == "memory" {
		log.Printf("SESSION_STORE=memory in production; sessions will not survive restarts")
	}

	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),

		LLMProvider:   provider,
		LLMModel:      getEnv("LLM_MODEL", defaultModel(provider)),
		LLMBaseURL:    getEnv("LLM_BASE_URL", defaultBaseURL(provider)),
		LLMAPIKey:     apiKeyFor(provider),
		LLMTimeout:    time.Duration(getEnvInt("LLM_TIMEOUT_SECONDS", 120)) * time.Second,
		LLMMaxRetries: getEnvInt("LLM_MAX_RETRIES", 0),
		PromptsFile:   getEnv("PROMPTS_FILE", ""),

		SMTPHost:         getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:         getEnvInt("SMTP_PORT", 465),
		GmailAddress:     os.Getenv("GMAIL_ADDRESS"),
		GmailAppPassword: os.Getenv("GMAIL_APP_PASSWORD"),

		SessionStore: store,
		SessionTTL:   getEnvDuration("SESSION_TTL", 24*time.Hour),
		DatabaseURL:  dbURL,
		RedisURL:     os.Getenv("REDIS_URL"),

		RateLimitDefault: RateLimit{
			RPS:   getEnvFloat("RATE_LIMIT_DEFAULT_RPS", 5),
			Burst: getEnvInt("RATE_LIMIT_DEFAULT_BURST", 20),
		},
		RateLimitLLM: RateLimit{
			RPS:   getEnvFloat("RATE_LIMIT_LLM_RPS", 0.5),
			Burst: getEnvInt("RATE_LIMIT_LLM_BURST", 5),
		},
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks struct-level constraints on an assembled Config.
func Validate(cfg Config) error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(cfg); err != nil {
		return oops.In("config").Wrapf(err, "invalid configuration")
	}
	return nil
}

// IsDevLike reports whether missing infrastructure may fall back to in-memory defaults.
func (c Config) IsDevLike() bool {
	switch c.Env {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// MailConfigured reports whether outbound email credentials are present.
func (c Config) MailConfigured() bool {
	return strings.TrimSpace(c.GmailAddress) != "" && strings.TrimSpace(c.GmailAppPassword) != ""
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func getEnvFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("config env %s invalid float: %v", key, err)
		return def
	}
	return val
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("config env %s invalid duration: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case ProviderOpenAI:
		return ProviderOpenAI
	case ProviderAnthropic, "claude":
		return ProviderAnthropic
	case ProviderPlaceholder, "none":
		return ProviderPlaceholder
	default:
		return ProviderGroq
	}
}

func normalizeSessionStore(raw, dbURL, redisURL string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "postgres", "pg":
		return "postgres"
	case "redis":
		return "redis"
	case "memory":
		return "memory"
	}
	// Unset: pick whichever backend has connection details.
	switch {
	case strings.TrimSpace(dbURL) != "":
		return "postgres"
	case strings.TrimSpace(redisURL) != "":
		return "redis"
	default:
		return "memory"
	}
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return defaultOpenAIModel
	case ProviderAnthropic:
		return defaultAnthropicModel
	default:
		return defaultGroqModel
	}
}

func defaultBaseURL(provider string) string {
	if provider == ProviderGroq {
		return defaultGroqBaseURL
	}
	return ""
}

func apiKeyFor(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return os.Getenv("OPENAI_API_KEY")
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderGroq:
		return getEnv("GROQ_API_KEY", os.Getenv("LLM_API_KEY"))
	default:
		return ""
	}
}
