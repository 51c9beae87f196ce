package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/emojify/internal/api"
	"github.com/saturnino-fabrica-de-software/emojify/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/emojify/internal/audit"
	"github.com/saturnino-fabrica-de-software/emojify/internal/cache"
	"github.com/saturnino-fabrica-de-software/emojify/internal/config"
	"github.com/saturnino-fabrica-de-software/emojify/internal/database"
	"github.com/saturnino-fabrica-de-software/emojify/internal/emoji"
	"github.com/saturnino-fabrica-de-software/emojify/internal/face"
	"github.com/saturnino-fabrica-de-software/emojify/internal/imagecodec"
	"github.com/saturnino-fabrica-de-software/emojify/internal/repository"
	"github.com/saturnino-fabrica-de-software/emojify/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting Emojify API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.FaceProvider),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Face detection provider
	opener, err := face.NewOpener(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create face provider: %w", err)
	}
	if closer, ok := opener.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Warn("failed to close face provider", slog.String("error", err.Error()))
			}
		}()
	}

	// Emoji assets
	assets, err := loadAssets(cfg)
	if err != nil {
		return fmt.Errorf("failed to load emoji assets: %w", err)
	}
	if missing := assets.Missing(); len(missing) > 0 {
		logger.Warn("emoji assets incomplete", slog.Any("missing", missing))
	}

	outputFormat, err := imagecodec.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return fmt.Errorf("invalid output format: %w", err)
	}

	opts := []service.Option{
		service.WithAuditLogger(audit.NewSlogLogger(logger)),
		service.WithOutputFormat(outputFormat),
		service.WithDetectionTimeout(cfg.DetectionTimeout),
		service.WithCacheTTL(cfg.CacheTTL),
	}

	deps := &api.Dependencies{
		Assets:       assets,
		Provider:     opener.Name(),
		MaxImageSize: cfg.MaxImageSize,
		RateLimit: middleware.RateLimiterConfig{
			Max:    cfg.RateLimitMax,
			Window: cfg.RateLimitWindow,
		},
		JanitorInterval: cfg.CacheJanitorInterval,
	}

	// Optional persistence
	if cfg.HasDatabase() {
		if cfg.AutoMigrate {
			if err := database.Migrate(ctx, cfg.DatabaseURL); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}
			logger.Info("database migrations applied")
		}

		pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		pgCache := cache.NewPGCache(pool)
		opts = append(opts,
			service.WithRepository(repository.NewEmojificationRepository(pool)),
			service.WithCache(pgCache),
		)
		deps.DB = pool
		deps.Cache = pgCache

		logger.Info("database connected")
	} else {
		logger.Info("running without database, history and cache disabled")
	}

	deps.Service = service.NewEmojifyService(opener, assets, emoji.NewClassifier(logger), logger, opts...)

	// Setup router
	router := api.NewRouter(logger, deps)
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-shutdownCtx.Done():
		logger.Error("shutdown timed out")
	}

	logger.Info("server stopped")

	return nil
}

func loadAssets(cfg *config.Config) (*emoji.Set, error) {
	if cfg.EmojiAssetDir != "" {
		return emoji.LoadDir(cfg.EmojiAssetDir)
	}
	return emoji.LoadEmbedded()
}
