package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"greenlens/internal/config"
	"greenlens/internal/handler"
	"greenlens/internal/queue/rabbitmq"
	"greenlens/internal/repository"
	"greenlens/internal/storage"
	cloudinaryclient "greenlens/internal/storage/cloudinary"
	minioclient "greenlens/internal/storage/minio"
	"greenlens/internal/upload"
	"greenlens/pkg/database/postgres"
	redisclient "greenlens/pkg/database/redis"
)

func main() {
	log.Println("Starting GreenLens API...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize PostgreSQL
	log.Println("Connecting to PostgreSQL...")
	pgPool, err := postgres.NewClient(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgPool.Close()

	// Run migrations
	if err := postgres.RunMigrations(ctx, pgPool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize object storage. Configuration problems must surface here,
	// before any upload is attempted.
	backend, err := buildBackend(cfg)
	if err != nil {
		log.Fatalf("Failed to configure object storage: %v", err)
	}

	// Initialize RabbitMQ
	log.Println("Connecting to RabbitMQ...")
	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("Failed to connect to RabbitMQ: %v", err)
	}
	defer rabbitClient.Close()

	// Initialize Redis
	log.Println("Connecting to Redis...")
	redisClient, err := redisclient.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	log.Println("✓ Successfully connected to all services")

	repo := repository.NewImageRepo(pgPool)
	orchestrator := upload.NewOrchestrator(backend, repo, rabbitClient, cfg.UploadFolder)
	h := handler.NewHandler(repo, orchestrator, backend, rabbitClient, redisClient)

	router := gin.Default()
	h.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		log.Printf("GreenLens API listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Forced shutdown: %v", err)
	}
	log.Println("GreenLens API stopped")
}

func buildBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case "minio":
		return minioclient.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return cloudinaryclient.New(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}
}
