// Package worker removes orphaned object-storage content: objects whose
// metadata record failed to write, or whose inline deletion failed.
package worker

import (
	"context"
	"fmt"
	"log"

	"greenlens/internal/queue/rabbitmq"
	"greenlens/internal/storage"
)

type Cleaner struct {
	backend storage.Backend
}

func NewCleaner(backend storage.Backend) *Cleaner {
	return &Cleaner{backend: backend}
}

// Clean deletes the referenced object. A failure is returned so the caller
// can requeue the task.
func (c *Cleaner) Clean(ctx context.Context, task rabbitmq.CleanupTask) error {
	log.Printf("Removing orphaned content %s (%s)", task.ContentID, task.Reason)
	if err := c.backend.Remove(ctx, task.ContentID); err != nil {
		return fmt.Errorf("failed to remove %s: %w", task.ContentID, err)
	}
	log.Printf("Removed orphaned content %s", task.ContentID)
	return nil
}
