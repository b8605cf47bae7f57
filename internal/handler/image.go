package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"greenlens/internal/catalog"
	"greenlens/internal/models"
	"greenlens/internal/queue/rabbitmq"
	"greenlens/internal/repository"
)

const cacheTTL = 10 * time.Minute

func cacheKey(id uuid.UUID) string { return fmt.Sprintf("image:%s", id) }

// ListImages serves the gallery page. Repository failures are deliberately
// lenient here: the gallery renders an empty page instead of an error.
func (h *Handler) ListImages(c *gin.Context) {
	opts := repository.ListOptions{
		Search: c.Query("search"),
	}

	if cat := models.Category(c.Query("category")); cat != "" && cat != catalog.CategoryAll {
		if !cat.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown category %q", cat)})
			return
		}
		opts.Category = cat
	}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		opts.Limit = n
	}

	sortKey := catalog.Sort(c.DefaultQuery("sort", string(catalog.SortNewest)))
	switch sortKey {
	case catalog.SortNewest, catalog.SortOldest, catalog.SortName:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Unknown sort key %q", sortKey)})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	images, err := h.store.List(ctx, opts)
	if err != nil {
		log.Printf("list images failed, serving empty page: %v", err)
		c.JSON(http.StatusOK, gin.H{"images": []models.Image{}})
		return
	}

	images = catalog.Refine(images, catalog.Query{Sort: sortKey})
	c.JSON(http.StatusOK, gin.H{"images": images})
}

func (h *Handler) GetImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	// Check Redis cache first
	if cached, err := h.cache.Get(ctx, cacheKey(id)); err == nil {
		var img models.Image
		if json.Unmarshal([]byte(cached), &img) == nil {
			c.JSON(http.StatusOK, img)
			return
		}
	}

	img, err := h.store.Get(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	if err != nil {
		log.Printf("get image %s failed: %v", id, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load image"})
		return
	}

	if body, err := json.Marshal(img); err == nil {
		_ = h.cache.Set(ctx, cacheKey(id), string(body), cacheTTL)
	}
	c.JSON(http.StatusOK, img)
}

type updateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Category    *models.Category `json:"category"`
	Location    *string          `json:"location"`
}

// UpdateImage edits the mutable fields only; url, storage_ref, and
// created_at cannot change.
func (h *Handler) UpdateImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if err := validateUpdate(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	err = h.store.Update(ctx, id, repository.UpdateFields{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Location:    req.Location,
	})
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to update image: %v", err)})
		return
	}

	_ = h.cache.Delete(ctx, cacheKey(id))

	img, err := h.store.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load updated image"})
		return
	}
	c.JSON(http.StatusOK, img)
}

func validateUpdate(req updateRequest) error {
	if req.Name == nil && req.Description == nil && req.Category == nil && req.Location == nil {
		return errors.New("no fields to update")
	}
	if req.Name != nil && (*req.Name == "" || len(*req.Name) > models.MaxNameLen) {
		return fmt.Errorf("name must be 1-%d characters", models.MaxNameLen)
	}
	if req.Description != nil && (*req.Description == "" || len(*req.Description) > models.MaxDescriptionLen) {
		return fmt.Errorf("description must be 1-%d characters", models.MaxDescriptionLen)
	}
	if req.Category != nil && !req.Category.Valid() {
		return fmt.Errorf("invalid category %q", *req.Category)
	}
	return nil
}

// DeleteImage removes the metadata record, then the stored object. A failed
// object deletion is handed to the janitor rather than surfaced.
func (h *Handler) DeleteImage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image ID format"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	storageRef, err := h.store.Delete(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("Failed to delete image: %v", err)})
		return
	}

	_ = h.cache.Delete(ctx, cacheKey(id))

	if err := h.backend.Remove(ctx, storageRef); err != nil {
		log.Printf("storage removal failed for %s: %v", storageRef, err)
		if h.cleanup != nil {
			if pubErr := h.cleanup.PublishCleanup(rabbitmq.CleanupTask{
				ContentID: storageRef,
				Reason:    "delete requested",
			}); pubErr != nil {
				log.Printf("failed to enqueue cleanup for %s: %v", storageRef, pubErr)
			}
		}
	}

	c.Status(http.StatusNoContent)
}
