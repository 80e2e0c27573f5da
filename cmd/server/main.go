package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/felipeoc/macrotiming-go/internal/api"
	"github.com/felipeoc/macrotiming-go/internal/api/handlers"
	"github.com/felipeoc/macrotiming-go/internal/cache"
	"github.com/felipeoc/macrotiming-go/internal/config"
	"github.com/felipeoc/macrotiming-go/internal/database"
	"github.com/felipeoc/macrotiming-go/internal/logging"
	"github.com/felipeoc/macrotiming-go/internal/services"
	"github.com/felipeoc/macrotiming-go/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)

	ctx := context.Background()

	tracing, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("failed to shut down telemetry")
		}
	}()

	db, err := database.NewPostgresConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	redis, err := database.NewRedisConnection(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer redis.Close()

	cacheTTL := time.Hour
	if cfg.Cache.TTL != "" {
		cacheTTL, _ = time.ParseDuration(cfg.Cache.TTL)
	}

	store := database.NewEvaluationRepository(db.Pool)
	evalCache := cache.NewRedisEvaluationCache(redis.Client, cacheTTL, logger)
	notifier := services.NewNotificationService(cfg.Telegram, logger)

	evaluator, err := services.NewEvaluator(cfg.Engine, store, evalCache, notifier, logger)
	if err != nil {
		return fmt.Errorf("failed to build evaluator: %w", err)
	}

	if cfg.Monitor.Enabled {
		interval := 5 * time.Minute
		if cfg.Monitor.Interval != "" {
			interval, _ = time.ParseDuration(cfg.Monitor.Interval)
		}
		monitor := services.NewResourceMonitor(interval, logger)
		monitor.Start(ctx)
		defer monitor.Stop()
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	evalHandler := handlers.NewEvaluationHandler(evaluator, store, evalCache, logger)
	allocHandler := handlers.NewAllocationHandler(evaluator, store, evalCache, cfg.Engine, logger)
	api.SetupRoutes(router, db, redis, evalHandler, allocHandler)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}
