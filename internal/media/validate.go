// Package media validates candidate upload files before any network work.
package media

import (
	"fmt"

	"greenlens/internal/models"
)

// MaxFileSize matches the storage service's per-file ceiling.
const MaxFileSize = 15 << 20 // 15 MiB

var allowedMIME = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/heic": {},
}

// Rejection pairs a rejected file with a human-readable reason so callers
// can surface one aggregate warning instead of dropping files silently.
type Rejection struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// Validate accepts a file iff its MIME type is on the whitelist and its
// size is within the ceiling. Pure, no I/O.
func Validate(f models.CaptureFile) error {
	if _, ok := allowedMIME[f.MIME]; !ok {
		return fmt.Errorf("unsupported type %q: use JPEG, PNG, WebP, or HEIC", f.MIME)
	}
	if f.Size > MaxFileSize {
		return fmt.Errorf("file too large (%d bytes, max 15MB)", f.Size)
	}
	return nil
}

// Partition splits candidates into the accepted subset and the rejected
// remainder, preserving submission order in both.
func Partition(files []models.CaptureFile) (accepted []models.CaptureFile, rejected []Rejection) {
	for _, f := range files {
		if err := Validate(f); err != nil {
			rejected = append(rejected, Rejection{Filename: f.Filename, Reason: err.Error()})
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted, rejected
}
