// Copyright (c) 2026 Mirava. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Mirava HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Connect to object storage (staging and public buckets).
//  6. Run database migrations (idempotent).
//  7. Wire HTTP handlers.
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/mirava/internal/api"
	"github.com/taibuivan/mirava/internal/auth"
	"github.com/taibuivan/mirava/internal/core/chapter"
	"github.com/taibuivan/mirava/internal/core/comic"
	"github.com/taibuivan/mirava/internal/platform/config"
	"github.com/taibuivan/mirava/internal/platform/constants"
	"github.com/taibuivan/mirava/internal/platform/migration"
	"github.com/taibuivan/mirava/internal/platform/objstore"
	pgstore "github.com/taibuivan/mirava/internal/platform/postgres"
	redisstore "github.com/taibuivan/mirava/internal/platform/redis"
	"github.com/taibuivan/mirava/internal/platform/sec"
	"github.com/taibuivan/mirava/internal/publish"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "mirava"))
	slog.SetDefault(log)

	log.Info("[Mirava] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "mirava"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	must(log, err, "connect to redis")
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Object Storage ─────────────────────────────────────────────────
	s3, err := objstore.Connect(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3UseSSL, log)
	must(log, err, "connect to object storage")

	stagingBucket := objstore.NewBucket(s3, cfg.S3StagingBucket)
	publicBucket := objstore.NewBucket(s3, cfg.S3PublicBucket)
	must(log, stagingBucket.Ping(startupCtx), "verify staging bucket")
	must(log, publicBucket.Ping(startupCtx), "verify public bucket")

	// ── 6. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 7. Auth Service ───────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTPrivKeyPath, cfg.JWTPubKeyPath, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 8. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
		CheckObjectStore: func() error {
			if err := stagingBucket.Ping(context.Background()); err != nil {
				return err
			}
			return publicBucket.Ping(context.Background())
		},
	}, log)

	// ── 9. Domain Wiring ──────────────────────────────────────────────────
	userRepository := auth.NewUserRepository(pool)
	sessionRepository := auth.NewSessionRepository(pool)
	authService := auth.NewService(userRepository, sessionRepository, jwtSvc)
	authHandler := auth.NewHandler(authService)

	settingsSource := publish.NewSettingsRepository(pool, publish.Settings{
		UploadQuality:       cfg.UploadQuality,
		PublishQuality:      cfg.PublishQuality,
		MaxWidth:            cfg.PublishMaxWidth,
		MaxHeight:           cfg.PublishMaxHeight,
		RecompressThreshold: cfg.RecompressThreshold,
		Effort:              cfg.PublishEffort,
	})

	comicRepository := comic.NewRepository(pool)
	comicService := comic.NewService(comicRepository, log)
	comicHandler := comic.NewHandler(comicService)

	chapterRepository := chapter.NewRepository(pool)
	chapterService := chapter.NewService(chapterRepository, stagingBucket, settingsSource, log)
	chapterHandler := chapter.NewHandler(chapterService)

	publishService := publish.NewService(
		publish.NewRepository(pool),
		settingsSource,
		stagingBucket,
		publicBucket,
		publish.NewRedisLocker(rdb),
		cfg.PublishWorkers,
		log,
	)
	publishHandler := publish.NewHandler(publishService)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Auth:      authHandler,
		Comic:     comicHandler,
		Chapter:   chapterHandler,
		Publish:   publishHandler,
	}

	// The server root context outlives startup: the rate limiter's cleanup
	// goroutine runs until process exit.
	server := api.NewServer(context.Background(), cfg, log, jwtSvc, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
