package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"greenlens/internal/media"
	"greenlens/internal/models"
	"greenlens/internal/upload"
)

// MaxBatchSize caps one multipart request: a full batch of ceiling-sized
// files plus form overhead.
const MaxBatchSize = 10 * media.MaxFileSize

type UploadResponse struct {
	Tasks        []upload.Task     `json:"tasks"`
	Images       []models.Image    `json:"images"`
	Rejected     []media.Rejection `json:"rejected,omitempty"`
	AllSucceeded bool              `json:"all_succeeded"`
}

// UploadImages accepts a multipart batch: one or more files under "images"
// plus the shared metadata fields.
func (h *Handler) UploadImages(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBatchSize)

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to parse upload form: %v", err)})
		return
	}

	meta := models.Metadata{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Category:    models.Category(c.PostForm("category")),
		Location:    c.PostForm("location"),
	}
	if err := meta.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	headers := form.File["images"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please select at least one image to upload"})
		return
	}

	files := make([]models.CaptureFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to read file %s", fh.Filename)})
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Failed to read file %s", fh.Filename)})
			return
		}
		files = append(files, models.CaptureFile{
			Filename: fh.Filename,
			MIME:     fh.Header.Get("Content-Type"),
			Size:     int64(len(data)),
			Data:     data,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Minute)
	defer cancel()

	summary := h.orchestrator.SubmitBatch(ctx, files, meta, nil)

	if len(summary.Tasks) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":    "No valid images in upload: use JPEG, PNG, WebP, or HEIC under 15MB",
			"rejected": summary.Rejected,
		})
		return
	}

	status := http.StatusCreated
	if !summary.Clean() {
		status = http.StatusMultiStatus
	}
	c.JSON(status, UploadResponse{
		Tasks:        summary.Tasks,
		Images:       summary.Created,
		Rejected:     summary.Rejected,
		AllSucceeded: summary.Clean(),
	})
}
