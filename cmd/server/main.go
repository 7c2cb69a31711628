package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/quizethic/quizethic-ai/internal/app"
	"github.com/quizethic/quizethic-ai/internal/billing"
	"github.com/quizethic/quizethic-ai/internal/platform/config"
	"github.com/quizethic/quizethic-ai/internal/platform/database"
	"github.com/quizethic/quizethic-ai/internal/server"
)

const (
	shutdownTimeout  = 10 * time.Second
	limiterSweepTick = time.Minute
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(app.NewLogger(os.Stdout, cfg.Log))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.DB != nil {
		if _, err := database.Migrate(ctx, a.DB.Pool); err != nil {
			return err
		}
	}

	srvCfg, err := serverConfig(cfg, a)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      server.New(srvCfg).Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: time.Duration(cfg.Quiz.RequestTimeout)*time.Second + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return srvCfg.Limiter.Run(gctx, limiterSweepTick)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func serverConfig(cfg *config.Config, a *app.App) (server.Config, error) {
	sc := server.Config{
		Quizzes:         a.Quizzes,
		Usage:           a.Gate,
		Auth:            server.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Audience),
		Limiter:         server.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst),
		AllowedOrigin:   cfg.Server.AllowedOrigin,
		GenerateTimeout: time.Duration(cfg.Quiz.RequestTimeout) * time.Second,
		Checks:          map[string]server.Check{},
	}

	if a.DB != nil {
		sc.Checks["database"] = a.DB.HealthCheck
	}
	if a.Cache != nil {
		sc.Checks["cache"] = a.Cache.HealthCheck
	}

	if cfg.Billing.WebhookSecret != "" {
		v, err := billing.NewVerifier(cfg.Billing.WebhookSecret)
		if err != nil {
			return server.Config{}, err
		}
		p, err := billing.NewProcessor(a.Tiers, cfg.Billing.ProductTiers)
		if err != nil {
			return server.Config{}, err
		}
		sc.Webhooks, sc.Billing = v, p
		slog.Info("billing webhooks enabled", "products", len(cfg.Billing.ProductTiers))
	}

	return sc, nil
}
