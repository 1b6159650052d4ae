// Package main is the entry point for the quotevault sync daemon.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quotevault/quotevault/internal/adapters/cache"
	"github.com/quotevault/quotevault/internal/adapters/clients"
	"github.com/quotevault/quotevault/internal/adapters/ops"
	"github.com/quotevault/quotevault/internal/adapters/supabase"
	"github.com/quotevault/quotevault/internal/adapters/widget"
	"github.com/quotevault/quotevault/internal/app"
	"github.com/quotevault/quotevault/internal/platform/config"
	"github.com/quotevault/quotevault/internal/platform/logging"
	"github.com/quotevault/quotevault/internal/platform/telemetry"
	"github.com/quotevault/quotevault/internal/ports"
)

// Build-time variables, injected via ldflags.
// Example: go build -ldflags "-X main.Version=1.0.0 -X main.Commit=$(git rev-parse HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	// Version is the semantic version of the binary.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "unknown"

	// BuildTime is the timestamp when the binary was built.
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// 1. Determine profile from environment
	profile := os.Getenv("APP_ENVIRONMENT")
	if profile == "" {
		profile = "local"
	}

	// 2. Load and validate configuration (fail fast)
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// 3. Initialize logging
	logger := logging.New(&logging.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.App.Name,
		Version: cfg.App.Version,
		File: logging.FileConfig{
			Enabled:    cfg.Log.File.Enabled,
			Path:       cfg.Log.File.Path,
			MaxSizeMB:  cfg.Log.File.MaxSizeMB,
			MaxBackups: cfg.Log.File.MaxBackups,
			MaxAgeDays: cfg.Log.File.MaxAgeDays,
			Compress:   cfg.Log.File.Compress,
		},
	})
	slog.SetDefault(logger)

	logger.Info("starting quotevault",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
	)

	// 4. Initialize telemetry (noop if disabled)
	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      cfg.App.Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(ctx); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	// 5. Create health registry
	healthRegistry := ports.NewHealthRegistry()

	// 6. Open the local cache
	localCache, err := cache.Open(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("opening local cache: %w", err)
	}

	defer func() {
		if closeErr := localCache.Close(); closeErr != nil {
			logger.Error("closing local cache", slog.Any("error", closeErr))
		}
	}()

	if err := healthRegistry.Register(localCache); err != nil {
		return fmt.Errorf("registering cache health check: %w", err)
	}

	// 7. Create the backend HTTP client with credential injection
	tokens := supabase.NewTokenStore(cfg.Supabase.AnonKey)

	httpClient, err := clients.New(&clients.Config{
		BaseURL:     cfg.Supabase.URL,
		ServiceName: "supabase",
		Timeout:     cfg.Client.Timeout,
		Retry:       cfg.Client.Retry,
		Circuit:     cfg.Client.CircuitBreaker,
		Transport:   cfg.Client.Transport,
		AuthFunc:    tokens.Apply,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating HTTP client: %w", err)
	}

	// 8. Create the backend store and auth session
	store := supabase.NewStore(httpClient, supabase.StoreConfig{
		SearchLimit: cfg.Feed.SearchLimit,
		Logger:      logger,
	})

	if err := healthRegistry.Register(store); err != nil {
		return fmt.Errorf("registering supabase health check: %w", err)
	}

	auth := supabase.NewAuth(httpClient, tokens, localCache, supabase.AuthConfig{
		Logger: logger,
	})

	// 9. Create application services
	widgetBridge := widget.New(localCache, logger)

	qotd := app.NewQuoteOfDay(app.QuoteOfDayConfig{
		Quotes: store,
		Cache:  localCache,
		Widget: widgetBridge,
		Logger: logger,
	})

	feed := app.NewFeed(app.FeedConfig{
		Quotes:            store,
		PageSize:          cfg.Feed.PageSize,
		PrefetchThreshold: cfg.Feed.PrefetchThreshold,
		RefreshAttempts:   cfg.Feed.RefreshAttempts,
		RefreshDelay:      cfg.Feed.RefreshDelay,
		Logger:            logger,
	})

	library := app.NewLibrary(app.LibraryConfig{
		Favorites:   store,
		Collections: store,
		Quotes:      store,
		Cache:       localCache,
		Session:     auth,
		Logger:      logger,
	})
	defer library.Close()

	searcher := app.NewDebouncer(cfg.Feed.DebounceInterval, func(ctx context.Context, query string) {
		if searchErr := feed.Search(ctx, query, ports.SearchModeKeyword); searchErr != nil {
			logger.Warn("search failed", slog.Any("error", searchErr))
		}
	})
	defer searcher.Stop()

	// 10. Establish the session: silent restore first, then configured
	// credentials. Both are best-effort; the app works signed out.
	if !auth.Restore(ctx) && cfg.Supabase.Email != "" {
		if signInErr := auth.SignIn(ctx, cfg.Supabase.Email, cfg.Supabase.Password); signInErr != nil {
			logger.Warn("sign in failed, continuing signed out", slog.Any("error", signInErr))
		}
	}

	// 11. Warm the feed and today's quote
	if loadErr := feed.LoadNextPage(ctx); loadErr != nil {
		logger.Warn("initial feed load failed", slog.Any("error", loadErr))
	}

	if _, qotdErr := qotd.Current(ctx); qotdErr != nil {
		logger.Warn("quote of the day unavailable", slog.Any("error", qotdErr))
	}

	// 12. Start the ops server (non-blocking)
	buildInfo := ops.NewBuildInfo(Version, Commit, BuildTime)
	server := ops.New(&cfg.Ops, healthRegistry, buildInfo, logger)
	serverErr := server.Start()

	// 13. Wait for shutdown signal
	return waitForShutdown(ctx, logger, server, serverErr, cfg.Ops.ShutdownTimeout)
}

// waitForShutdown blocks until a shutdown signal is received or a server
// error occurs, then gracefully stops the ops server.
func waitForShutdown(
	ctx context.Context,
	logger *slog.Logger,
	server *ops.Server,
	serverErr <-chan error,
	shutdownTimeout time.Duration,
) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)

	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	logger.Info("initiating graceful shutdown",
		slog.Duration("timeout", shutdownTimeout),
	)

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("shutdown complete")

	return nil
}
