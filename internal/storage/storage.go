// Package storage defines the object-storage contract shared by the hosted
// CDN backend and the self-hosted MinIO backend.
package storage

import (
	"context"
	"fmt"
	"time"

	"greenlens/internal/models"
)

// ProgressFunc receives monotonically increasing (sent, total) byte counts
// while a transfer is in flight.
type ProgressFunc func(sent, total int64)

// Reference identifies stored content. ContentID is the opaque handle used
// for display-URL construction and deletion; RawURL resolves to the bytes
// as uploaded.
type Reference struct {
	ContentID string
	RawURL    string
	Width     int
	Height    int
	Format    string
	Bytes     int64
	CreatedAt time.Time
}

// TransformOptions parameterize a derived display URL. Zero values are
// omitted from the URL.
type TransformOptions struct {
	Width   int
	Height  int
	Quality string // "auto" or a number as string
	Format  string // "auto", "webp", "jpg", "png"
	Crop    string // "fill", "fit", "scale", "crop"
}

type Backend interface {
	// Upload transfers one file and returns its stable reference. onProgress
	// may be nil.
	Upload(ctx context.Context, f models.CaptureFile, folder string, onProgress ProgressFunc) (Reference, error)
	// DisplayURL derives a transformation-qualified URL for previously
	// stored content. No network call, safe to call repeatedly.
	DisplayURL(contentID string, opts TransformOptions) string
	// Remove deletes previously stored content.
	Remove(ctx context.Context, contentID string) error
}

// TransferError reports a non-success response from the storage service.
type TransferError struct {
	Status int
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("upload failed with status: %d", e.Status)
}
