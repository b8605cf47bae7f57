package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"greenlens/internal/models"
	"greenlens/internal/repository"
	"greenlens/internal/storage"
	"greenlens/internal/upload"
)

// Store is the read/update/delete slice of the image repository.
type Store interface {
	List(ctx context.Context, opts repository.ListOptions) ([]models.Image, error)
	Get(ctx context.Context, id uuid.UUID) (models.Image, error)
	Update(ctx context.Context, id uuid.UUID, f repository.UpdateFields) error
	Delete(ctx context.Context, id uuid.UUID) (string, error)
}

// Cache is the per-image response cache; the Redis client satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
}

type Handler struct {
	store        Store
	orchestrator *upload.Orchestrator
	backend      storage.Backend
	cleanup      upload.CleanupPublisher // may be nil
	cache        Cache
}

func NewHandler(store Store, orchestrator *upload.Orchestrator, backend storage.Backend, cleanup upload.CleanupPublisher, cache Cache) *Handler {
	return &Handler{
		store:        store,
		orchestrator: orchestrator,
		backend:      backend,
		cleanup:      cleanup,
		cache:        cache,
	}
}

// RegisterRoutes mounts the gallery API.
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.POST("/images", h.UploadImages)
		api.GET("/images", h.ListImages)
		api.GET("/images/:id", h.GetImage)
		api.PATCH("/images/:id", h.UpdateImage)
		api.DELETE("/images/:id", h.DeleteImage)
	}
}
