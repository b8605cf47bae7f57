package main

import (
	"context"
	"flag"
	"log"
	"time"

	"greenlens/internal/config"
	"greenlens/pkg/database/postgres"
)

func main() {
	seed := flag.Bool("seed", false, "install the default gallery fixtures after migrating")
	flag.Parse()

	log.Println("Starting migration runner...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Printf("Connecting to Postgres at %s", cfg.PostgresURL)
	pool, err := postgres.NewClient(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	log.Println("Connected to database. Running migrations...")
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	if *seed {
		if err := postgres.Seed(ctx, pool); err != nil {
			log.Fatalf("Failed to seed default images: %v", err)
		}
	}

	log.Println("Migration runner finished successfully.")
}
