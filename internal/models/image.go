package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no image matches the requested id.
var ErrNotFound = errors.New("image not found")

type Category string

const (
	CategoryFlowers Category = "flowers"
	CategoryNature  Category = "nature"
	CategoryCrops   Category = "crops"
)

// Categories lists every persistable category. "all" is a query-side value
// and is never stored.
func Categories() []Category {
	return []Category{CategoryFlowers, CategoryNature, CategoryCrops}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFlowers, CategoryNature, CategoryCrops:
		return true
	}
	return false
}

// Image is one published gallery record. ID is assigned by the metadata
// store on insert and never changes; URL always resolves to the content
// referenced by StorageRef.
type Image struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Location    string    `json:"location,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	StorageRef  string    `json:"storage_ref"`
}

// Metadata is the shared form input applied to every file in a batch.
type Metadata struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    Category `json:"category"`
	Location    string   `json:"location"`
}

const (
	MaxNameLen        = 100
	MaxDescriptionLen = 200
)

// Validate enforces the form bounds: name 1-100 chars, description 1-200
// chars, category one of the closed set.
func (m Metadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("image name is required")
	}
	if len(m.Name) > MaxNameLen {
		return fmt.Errorf("name too long (max %d characters)", MaxNameLen)
	}
	if strings.TrimSpace(m.Description) == "" {
		return errors.New("description is required")
	}
	if len(m.Description) > MaxDescriptionLen {
		return fmt.Errorf("description too long (max %d characters)", MaxDescriptionLen)
	}
	if !m.Category.Valid() {
		return fmt.Errorf("invalid category %q", m.Category)
	}
	return nil
}

// CaptureFile is a validated or camera-captured file awaiting upload. It
// lives only for the duration of one batch.
type CaptureFile struct {
	Filename string
	MIME     string
	Size     int64
	Data     []byte
}
