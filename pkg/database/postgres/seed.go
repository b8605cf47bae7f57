package postgres

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type seedImage struct {
	url         string
	name        string
	description string
	category    string
	location    string
	ageDays     int
	storageRef  string
}

var defaultImages = []seedImage{
	{
		url:         "https://images.pexels.com/photos/56866/garden-rose-red-pink-56866.jpeg?auto=compress&cs=tinysrgb&w=800",
		name:        "Pink Garden Rose",
		description: "Beautiful pink rose blooming in the morning light with dewdrops on petals",
		category:    "flowers", location: "Home Garden", ageDays: 3,
		storageRef: "seed/flowers/pink-rose",
	},
	{
		url:         "https://images.pexels.com/photos/1408221/pexels-photo-1408221.jpeg?auto=compress&cs=tinysrgb&w=800",
		name:        "Sunflower Field",
		description: "Vibrant sunflowers reaching toward the sky on a perfect summer day",
		category:    "flowers", location: "North Field", ageDays: 2,
		storageRef: "seed/flowers/sunflower-field",
	},
	{
		url:         "https://images.pexels.com/photos/842711/pexels-photo-842711.jpeg?auto=compress&cs=tinysrgb&w=800",
		name:        "Wild Daisies",
		description: "Cheerful white daisies scattered across the meadow like nature's confetti",
		category:    "flowers", location: "Meadow", ageDays: 1,
		storageRef: "seed/flowers/wild-daisies",
	},
	{
		url:         "https://images.pexels.com/photos/147411/italy-mountains-dawn-daybreak-147411.jpeg?auto=compress&cs=tinysrgb&w=800",
		name:        "Mountain Dawn",
		description: "Misty mountains catching the first light of dawn in golden hues",
		category:    "nature", location: "Valley View", ageDays: 4,
		storageRef: "seed/nature/mountain-dawn",
	},
	{
		url:         "https://images.pexels.com/photos/417074/pexels-photo-417074.jpeg?auto=compress&cs=tinysrgb&w=800",
		name:        "Forest Path",
		description: "Peaceful woodland trail leading through ancient trees and dappled sunlight",
		category:    "nature", location: "Back Woods", ageDays: 5,
		storageRef: "seed/nature/forest-path",
	},
	{
		url:         "https://images.pexels.com/photos/33109/fall-autumn-red-season.jpg?auto=compress&cs=tinysrgb&w=800",
		name:        "Autumn Trees",
		description: "Brilliant fall foliage painting the landscape in warm reds and oranges",
		category:    "nature", location: "East Grove", ageDays: 6,
		storageRef: "seed/nature/autumn-trees",
	},
	{
		url:         "https://images.pexels.com/photos/2132227/pexels-photo-2132227.jpeg?auto=compress&cs=tinysrgb&w=800",
		name:        "Wheat Harvest",
		description: "Golden wheat ready for harvest, swaying gently in the evening breeze",
		category:    "crops", location: "Main Field", ageDays: 7,
		storageRef: "seed/crops/wheat-harvest",
	},
	{
		url:         "https://images.pexels.com/photos/2280549/pexels-photo-2280549.jpeg?auto=compress&cs=tinysrgb&w=800",
		name:        "Tomato Vines",
		description: "Ripe red tomatoes hanging heavy on healthy green vines in the greenhouse",
		category:    "crops", location: "Greenhouse 2", ageDays: 8,
		storageRef: "seed/crops/tomato-vines",
	},
	{
		url:         "https://images.pexels.com/photos/1595104/pexels-photo-1595104.jpeg?auto=compress&cs=tinysrgb&w=800",
		name:        "Corn Field",
		description: "Tall corn stalks creating green corridors under the summer sun",
		category:    "crops", location: "South Field", ageDays: 9,
		storageRef: "seed/crops/corn-field",
	},
}

// Seed installs the default gallery fixtures when the table is empty.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM images`).Scan(&count); err != nil {
		return fmt.Errorf("failed to check for existing images: %w", err)
	}
	if count > 0 {
		log.Println("Images table already has data, skipping seed")
		return nil
	}

	query := `
		INSERT INTO images (url, name, description, category, location, storage_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now().UTC()
	for _, img := range defaultImages {
		createdAt := now.AddDate(0, 0, -img.ageDays)
		_, err := pool.Exec(ctx, query,
			img.url, img.name, img.description, img.category, img.location, img.storageRef, createdAt)
		if err != nil {
			return fmt.Errorf("failed to seed image %q: %w", img.name, err)
		}
	}

	log.Printf("Seeded %d default images", len(defaultImages))
	return nil
}
