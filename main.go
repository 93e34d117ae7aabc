package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/evalua-t/evaluation-service/internal/config"
	"github.com/evalua-t/evaluation-service/internal/events"
	"github.com/evalua-t/evaluation-service/internal/handlers"
	"github.com/evalua-t/evaluation-service/internal/jobs"
	"github.com/evalua-t/evaluation-service/internal/repositories/casdoor"
	"github.com/evalua-t/evaluation-service/internal/repositories/postgres"
	"github.com/evalua-t/evaluation-service/internal/services"
	"github.com/evalua-t/evaluation-service/internal/storage"
	"github.com/evalua-t/evaluation-service/internal/utils"
	"github.com/evalua-t/evaluation-service/internal/validator"
	"github.com/evalua-t/evaluation-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)
	appLogger := utils.NewSlogLogger(logger)

	logger.Info("Starting evaluation service",
		"environment", cfg.Environment,
		"port", cfg.Port)

	// ===== DATABASE =====
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	// ===== CACHE =====
	// Redis is optional; without it repositories fall back to direct reads.
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Warn("Redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	// ===== REPOSITORIES =====
	repoManager := postgres.NewRepositoryManager(postgres.RepositoryConfig{
		DB:          db,
		RedisClient: redisClient,
		CasdoorConfig: casdoor.CasdoorConfig{
			Endpoint:         cfg.Casdoor.Endpoint,
			ClientID:         cfg.Casdoor.ClientID,
			ClientSecret:     cfg.Casdoor.ClientSecret,
			Certificate:      cfg.Casdoor.Cert,
			OrganizationName: cfg.Casdoor.Organization,
			ApplicationName:  cfg.Casdoor.Application,
		},
	})
	if err := repoManager.Initialize(); err != nil {
		logger.Error("Failed to initialize repositories", "error", err)
		os.Exit(1)
	}
	repo := repoManager.GetRepository()

	// ===== EVENTS =====
	var publisher events.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaEventPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		if err != nil {
			logger.Error("Failed to initialize event publisher", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher
	} else {
		logger.Warn("No Kafka brokers configured, events will be discarded")
		publisher = events.NewNoopEventPublisher()
	}

	// ===== BLOB STORE =====
	var blobs storage.BlobStore
	if cfg.S3.Bucket != "" {
		blobs, err = storage.NewS3BlobStore(storage.S3Config{
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
		})
		if err != nil {
			logger.Error("Failed to initialize blob store", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("No S3 bucket configured, resource downloads disabled")
	}

	// ===== SERVICES =====
	v := validator.New()
	serviceManager := services.NewDefaultServiceManager(db, repo, logger, v, publisher, blobs, services.FallbackRoster{
		Admins:      cfg.FallbackAdmins,
		SuperAdmins: cfg.FallbackSuperAdmins,
	})

	// ===== SCHEDULED JOBS =====
	scheduler := jobs.NewScheduler(serviceManager.Evaluation(), logger, cfg.RatingResyncSchedule)
	if err := scheduler.Start(); err != nil {
		logger.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// ===== HTTP SERVER =====
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handlers.SetupMiddleware(router, appLogger)

	handlerManager := handlers.NewHandlerManager(serviceManager, appLogger, cfg.Casdoor, repo.User())
	handlerManager.SetupRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scheduler.Stop()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	if err := serviceManager.Close(); err != nil {
		logger.Error("Service manager shutdown failed", "error", err)
	}

	if err := repoManager.Shutdown(ctx); err != nil {
		logger.Error("Repository shutdown failed", "error", err)
	}

	logger.Info("Shutdown complete")
}
