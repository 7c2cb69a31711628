// Package config loads application configuration from environment variables.
// All variables use the QUIZ_ prefix.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	AI        AIConfig
	Quiz      QuizConfig
	Usage     UsageConfig
	Auth      AuthConfig
	Billing   BillingConfig
	RateLimit RateLimitConfig
	Log       LogConfig
	// PolicyPath points at a directory of YAML policy files. Empty means built-in defaults.
	PolicyPath string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int
	Host string
	// AllowedOrigin is echoed in CORS responses for the single-page app.
	AllowedOrigin string
}

// DatabaseConfig holds PostgreSQL (Supabase) connection settings.
type DatabaseConfig struct {
	URL      string
	MaxConns int
	MinConns int
}

// CacheConfig holds Redis connection settings.
type CacheConfig struct {
	URL string
}

// AIConfig holds configuration for the LLM providers.
type AIConfig struct {
	OpenRouter OpenRouterConfig
	OpenAI     OpenAIConfig
}

// OpenRouterConfig holds OpenRouter provider settings.
type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Referer string
	Title   string
}

// OpenAIConfig holds settings for a direct OpenAI-compatible fallback provider.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// QuizConfig holds generation pipeline settings.
type QuizConfig struct {
	MaxAttempts    int
	RequestTimeout int // seconds
}

// UsageConfig selects the backend for daily usage counters.
type UsageConfig struct {
	Backend string // "memory", "postgres" or "redis"
}

// AuthConfig holds Supabase JWT verification settings.
type AuthConfig struct {
	JWTSecret string
	Audience  string
}

// BillingConfig holds subscription webhook settings.
type BillingConfig struct {
	WebhookSecret string
	// ProductTiers maps payment product IDs to tiers, "prod_a=pro,prod_b=enterprise".
	ProductTiers map[string]string
}

// RateLimitConfig holds per-user request rate limits for the API.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level     string
	Format    string
	AddSource bool
}

// Load reads configuration from environment variables with QUIZ_ prefix.
func Load() (*Config, error) {
	productTiers, err := parsePairs(envStr("QUIZ_BILLING_PRODUCT_TIERS", ""))
	if err != nil {
		return nil, fmt.Errorf("QUIZ_BILLING_PRODUCT_TIERS: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:          envInt("QUIZ_SERVER_PORT", 8080),
			Host:          envStr("QUIZ_SERVER_HOST", "0.0.0.0"),
			AllowedOrigin: envStr("QUIZ_SERVER_ALLOWED_ORIGIN", "*"),
		},
		Database: DatabaseConfig{
			URL:      envStr("QUIZ_DATABASE_URL", ""),
			MaxConns: envInt("QUIZ_DATABASE_MAX_CONNS", 10),
			MinConns: envInt("QUIZ_DATABASE_MIN_CONNS", 2),
		},
		Cache: CacheConfig{
			URL: envStr("QUIZ_CACHE_URL", ""),
		},
		AI: AIConfig{
			OpenRouter: OpenRouterConfig{
				APIKey:  envStr("QUIZ_AI_OPENROUTER_API_KEY", ""),
				Model:   envStr("QUIZ_AI_OPENROUTER_MODEL", "openai/gpt-4o-mini"),
				BaseURL: envStr("QUIZ_AI_OPENROUTER_BASE_URL", ""),
				Referer: envStr("QUIZ_AI_OPENROUTER_REFERER", "https://quizethic.ai"),
				Title:   envStr("QUIZ_AI_OPENROUTER_TITLE", "Quizethic AI"),
			},
			OpenAI: OpenAIConfig{
				APIKey:  envStr("QUIZ_AI_OPENAI_API_KEY", ""),
				Model:   envStr("QUIZ_AI_OPENAI_MODEL", "gpt-4o-mini"),
				BaseURL: envStr("QUIZ_AI_OPENAI_BASE_URL", ""),
			},
		},
		Quiz: QuizConfig{
			MaxAttempts:    envInt("QUIZ_GENERATION_MAX_ATTEMPTS", 2),
			RequestTimeout: envInt("QUIZ_GENERATION_TIMEOUT", 90),
		},
		Usage: UsageConfig{
			Backend: envStr("QUIZ_USAGE_BACKEND", ""),
		},
		Auth: AuthConfig{
			JWTSecret: envStr("QUIZ_AUTH_JWT_SECRET", ""),
			Audience:  envStr("QUIZ_AUTH_AUDIENCE", "authenticated"),
		},
		Billing: BillingConfig{
			WebhookSecret: envStr("QUIZ_BILLING_WEBHOOK_SECRET", ""),
			ProductTiers:  productTiers,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloat("QUIZ_RATE_LIMIT_RPS", 2),
			Burst:             envInt("QUIZ_RATE_LIMIT_BURST", 5),
		},
		Log: LogConfig{
			Level:     envStr("QUIZ_LOG_LEVEL", "info"),
			Format:    envStr("QUIZ_LOG_FORMAT", "json"),
			AddSource: envBool("QUIZ_LOG_ADD_SOURCE", false),
		},
		PolicyPath: envStr("QUIZ_POLICY_PATH", ""),
	}

	if cfg.Usage.Backend == "" {
		cfg.Usage.Backend = cfg.defaultUsageBackend()
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if !c.HasAIProvider() {
		return fmt.Errorf("at least one AI provider must be configured")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("QUIZ_AUTH_JWT_SECRET is required")
	}

	switch c.Usage.Backend {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("QUIZ_USAGE_BACKEND=postgres requires QUIZ_DATABASE_URL")
		}
	case "redis":
		if c.Cache.URL == "" {
			return fmt.Errorf("QUIZ_USAGE_BACKEND=redis requires QUIZ_CACHE_URL")
		}
	default:
		return fmt.Errorf("QUIZ_USAGE_BACKEND must be 'memory', 'postgres' or 'redis', got %q", c.Usage.Backend)
	}

	if c.Quiz.MaxAttempts < 1 {
		return fmt.Errorf("QUIZ_GENERATION_MAX_ATTEMPTS must be at least 1, got %d", c.Quiz.MaxAttempts)
	}

	return nil
}

// HasAIProvider returns true if at least one AI provider is configured.
func (c *Config) HasAIProvider() bool {
	return c.AI.OpenRouter.APIKey != "" || c.AI.OpenAI.APIKey != ""
}

func (c *Config) defaultUsageBackend() string {
	switch {
	case c.Cache.URL != "":
		return "redis"
	case c.Database.URL != "":
		return "postgres"
	default:
		return "memory"
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return fallback
}

// parsePairs parses "k1=v1,k2=v2" into a map.
func parsePairs(s string) (map[string]string, error) {
	out := make(map[string]string)
	if strings.TrimSpace(s) == "" {
		return out, nil
	}
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("invalid pair %q", pair)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
