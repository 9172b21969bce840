// Package main is the entrypoint for the BuildScope API server.
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

	"github.com/kiranshivaraju/buildscope/internal/ai"
	"github.com/kiranshivaraju/buildscope/internal/analyzer"
	"github.com/kiranshivaraju/buildscope/internal/api"
	"github.com/kiranshivaraju/buildscope/internal/api/handler"
	mw "github.com/kiranshivaraju/buildscope/internal/api/middleware"
	"github.com/kiranshivaraju/buildscope/internal/cache"
	"github.com/kiranshivaraju/buildscope/internal/config"
	"github.com/kiranshivaraju/buildscope/internal/tools"
)

const (
	shutdownTimeout = 30 * time.Second
	writeSlack      = 30 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"openai", cfg.AI.HasOpenAI(),
		"ollama", cfg.AI.HasOllama(),
		"project_dir", cfg.Tools.ProjectDir,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Optional Redis cache for rate limiting
	var rateCache cache.Cache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		rateCache = redisCache
		slog.Info("redis connected", "rate_limit_per_minute", cfg.Server.RateLimitRPM)
	} else {
		slog.Info("REDIS_URL not set, rate limiting disabled")
	}

	// 3. Build the pipeline and router
	router, writeTimeout, err := newHandler(cfg, rateCache)
	if err != nil {
		return err
	}

	// 4. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr, "write_timeout", writeTimeout.String())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// newHandler wires tools, summarizer and middleware into the router. It also
// returns a write timeout long enough for one full analysis. rateCache may be
// nil.
func newHandler(cfg *config.Config, rateCache cache.Cache) (http.Handler, time.Duration, error) {
	runners := tools.DefaultRunners(cfg.Tools)
	agg, err := tools.NewAggregator(runners, cfg.Tools.Parallelism)
	if err != nil {
		return nil, 0, fmt.Errorf("create tool aggregator: %w", err)
	}

	summarizer := ai.NewSummarizerFromConfig(cfg.AI)
	primary, secondary := summarizer.Providers()
	slog.Info("pipeline initialized",
		"tools", agg.Names(),
		"parallelism", cfg.Tools.Parallelism,
		"primary_provider", primary,
		"secondary_provider", secondary,
	)

	deps := api.Dependencies{
		Auth:      mw.NewAuth(cfg.Server.APIKeyHash),
		RateLimit: mw.NewRateLimit(rateCache, cfg.Server.RateLimitRPM),

		HealthHandler: handler.NewHealthHandler(handler.HealthInfo{
			PrimaryProvider:   primary,
			SecondaryProvider: secondary,
			Tools:             agg.Names(),
		}, rateCache),
		AnalyzeHandler: handler.NewAnalyzeHandler(analyzer.NewService(agg, summarizer), handler.AnalyzeOptions{
			MaxUploadBytes:    int64(cfg.Server.MaxUploadMB) << 20,
			DefaultProjectDir: cfg.Tools.ProjectDir,
			ProjectRoot:       cfg.Tools.ProjectRoot,
		}),
	}
	if deps.Auth == nil {
		slog.Warn("BUILDSCOPE_API_KEY_HASH not set, /analyze is unauthenticated")
	}

	return api.NewRouter(deps), writeTimeout(cfg, len(runners)), nil
}

// writeTimeout bounds one request: every tool run in sequence batches plus
// both provider attempts.
func writeTimeout(cfg *config.Config, runners int) time.Duration {
	batches := (runners + cfg.Tools.Parallelism - 1) / cfg.Tools.Parallelism
	return time.Duration(batches)*cfg.Tools.Timeout + 2*cfg.AI.InferenceTimeout + writeSlack
}
