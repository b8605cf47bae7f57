package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"greenlens/internal/config"
	"greenlens/internal/queue/rabbitmq"
	"greenlens/internal/storage"
	cloudinaryclient "greenlens/internal/storage/cloudinary"
	minioclient "greenlens/internal/storage/minio"
	"greenlens/internal/worker"
)

const WorkerPoolSize = 5

func main() {
	log.Println("Starting Janitor Service...")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

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

	cleaner := worker.NewCleaner(backend)

	// Start consuming messages
	msgs, err := rabbitClient.Consume()
	if err != nil {
		log.Fatalf("Failed to start consuming: %v", err)
	}

	// Create worker pool
	var wg sync.WaitGroup
	taskChan := make(chan rabbitmq.CleanupTask, WorkerPoolSize)

	for i := 0; i < WorkerPoolSize; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			log.Printf("Worker %d started", workerID)

			for task := range taskChan {
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
				err := cleaner.Clean(ctx, task)
				cancel()

				if err != nil {
					log.Printf("Worker %d: cleanup failed for %s: %v", workerID, task.ContentID, err)
				}
			}

			log.Printf("Worker %d stopped", workerID)
		}(i + 1)
	}

	// Shutdown channel
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Println("Janitor Service is running. Press Ctrl+C to exit.")

	// Message consumer loop
	go func() {
		for msg := range msgs {
			var task rabbitmq.CleanupTask
			if err := json.Unmarshal(msg.Body, &task); err != nil {
				log.Printf("Failed to unmarshal message: %v", err)
				msg.Nack(false, false) // discard invalid message
				continue
			}

			taskChan <- task
			msg.Ack(false)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	close(taskChan)
	wg.Wait()

	log.Println("Janitor Service stopped")
}

func buildBackend(cfg *config.Config) (storage.Backend, error) {
	switch cfg.StorageBackend {
	case "minio":
		return minioclient.NewClient(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	default:
		return cloudinaryclient.New(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	}
}
