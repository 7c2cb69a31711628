// Package app wires configuration into the services shared by the binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/quizethic/quizethic-ai/internal/ai"
	"github.com/quizethic/quizethic-ai/internal/platform/cache"
	"github.com/quizethic/quizethic-ai/internal/platform/config"
	"github.com/quizethic/quizethic-ai/internal/platform/database"
	"github.com/quizethic/quizethic-ai/internal/platform/metrics"
	"github.com/quizethic/quizethic-ai/internal/policy"
	"github.com/quizethic/quizethic-ai/internal/quiz"
	"github.com/quizethic/quizethic-ai/internal/usage"
)

// App holds the long-lived dependencies. DB and Cache are nil when not configured.
type App struct {
	Config *config.Config
	DB     *database.DB
	Cache  *cache.Cache
	Policy *policy.Policy
	Tiers  usage.TierStore
	Gate   *usage.Gate
	Store  quiz.Store
	Events quiz.EventLogger

	// Set by New only.
	Router   *ai.Router
	Pipeline *quiz.Pipeline
	Quizzes  *quiz.Service
}

// Connect opens the configured database and cache and builds the stores and
// the usage gate. The AI pipeline is not built; use New for that.
func Connect(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if cfg.Database.URL != "" {
		db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.DB = db
		slog.Info("database connected", "max_conns", cfg.Database.MaxConns)
	}

	if cfg.Cache.URL != "" {
		c, err := cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.Cache = c
		slog.Info("cache connected")
	}

	if err := a.buildStores(cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// New is Connect plus the AI router, generation pipeline and quiz service.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := a.buildService(cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) buildStores(cfg *config.Config) error {
	p, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}
	a.Policy = p

	counters, err := a.counters(cfg.Usage.Backend)
	if err != nil {
		return err
	}

	a.Tiers = usage.NewMemoryTierStore()
	a.Store = quiz.NewMemoryStore()
	a.Events = quiz.NopEventLogger{}
	if a.DB != nil {
		if a.Tiers, err = usage.NewPostgresTierStore(a.DB.Pool); err != nil {
			return err
		}
		if a.Store, err = quiz.NewPostgresStore(a.DB.Pool); err != nil {
			return err
		}
		a.Events = quiz.NewPostgresEventLogger(a.DB.Pool)
	}

	a.Gate = usage.NewGate(usage.GateConfig{
		Tiers:    a.Tiers,
		Counters: counters,
		Limits:   p.Limits,
	})
	return nil
}

func (a *App) buildService(cfg *config.Config) error {
	a.Router = NewRouter(cfg.AI)
	if !a.Router.HasProvider() {
		return fmt.Errorf("no AI provider configured")
	}

	a.Pipeline = quiz.NewPipeline(quiz.PipelineConfig{
		Generator:   quiz.NewGenerator(a.Router),
		Filter:      a.Policy.Filter(),
		MaxAttempts: cfg.Quiz.MaxAttempts,
	})
	a.Quizzes = quiz.NewService(quiz.ServiceConfig{
		Pipeline: a.Pipeline,
		Store:    a.Store,
		Quota:    a.Gate,
		Events:   a.Events,
	})

	slog.Info("quiz service ready",
		"providers", a.Router.Names(),
		"usage_backend", cfg.Usage.Backend,
		"max_attempts", a.Pipeline.MaxAttempts(),
		"extra_filter_rules", len(a.Policy.Rules),
	)
	return nil
}

func (a *App) counters(backend string) (usage.CounterStore, error) {
	switch backend {
	case "", "memory":
		return usage.NewMemoryCounter(), nil
	case "postgres":
		if a.DB == nil {
			return nil, fmt.Errorf("usage backend postgres needs a database")
		}
		return usage.NewPostgresCounter(a.DB.Pool)
	case "redis":
		if a.Cache == nil {
			return nil, fmt.Errorf("usage backend redis needs a cache")
		}
		return usage.NewRedisCounter(a.Cache)
	default:
		return nil, fmt.Errorf("unknown usage backend %q", backend)
	}
}

// Close releases the database and cache connections.
func (a *App) Close() {
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			slog.Warn("failed to close cache", "error", err)
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}

// NewRouter registers OpenRouter first and a direct OpenAI-compatible
// provider as fallback, for whichever has an API key.
func NewRouter(cfg config.AIConfig) *ai.Router {
	router := ai.NewRouter(ai.WithCallObserver(func(c ai.Call) {
		metrics.ObserveProviderCall(c.Provider, c.Task.String(), c.Err)
	}))

	if orc := cfg.OpenRouter; orc.APIKey != "" {
		opts := []ai.OpenRouterOption{
			ai.WithOpenRouterModel(orc.Model),
			ai.WithOpenRouterAttribution(orc.Referer, orc.Title),
		}
		if orc.BaseURL != "" {
			opts = append(opts, ai.WithOpenRouterBaseURL(orc.BaseURL))
		}
		router.Register("openrouter", ai.NewOpenRouterProvider(orc.APIKey, opts...))
	}

	if oa := cfg.OpenAI; oa.APIKey != "" {
		opts := []ai.OpenAIOption{ai.WithDefaultModel(oa.Model)}
		if oa.BaseURL != "" {
			opts = append(opts, ai.WithBaseURL(oa.BaseURL))
		}
		router.Register("openai", ai.NewOpenAIProvider(oa.APIKey, opts...))
	}

	return router
}

// NewLogger builds the process logger from config.
func NewLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level), AddSource: cfg.AddSource}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
