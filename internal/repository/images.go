// Package repository persists image records in PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"greenlens/internal/models"
)

// DefaultListLimit bounds list queries when the caller does not.
const DefaultListLimit = 50

type ImageRepo struct {
	pool *pgxpool.Pool
}

func NewImageRepo(pool *pgxpool.Pool) *ImageRepo {
	return &ImageRepo{pool: pool}
}

// Insert writes one record and returns the store-assigned id. The write is
// a single statement, so it either lands completely or not at all.
func (r *ImageRepo) Insert(ctx context.Context, img models.Image) (models.Image, error) {
	query := `
		INSERT INTO images (url, name, description, category, location, storage_ref)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		img.URL, img.Name, img.Description, img.Category, img.Location, img.StorageRef,
	).Scan(&img.ID, &img.CreatedAt)
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to save image metadata: %w", err)
	}
	return img, nil
}

// ListOptions filter a list query. Zero values mean "no restriction".
type ListOptions struct {
	Category models.Category
	Search   string
	Limit    int
}

// List returns records ordered by created_at descending. Category restricts
// to an exact match; Search matches case-insensitively against name,
// description, or location. Errors are returned to the caller; the lenient
// empty-page policy belongs to the read-side HTTP layer.
func (r *ImageRepo) List(ctx context.Context, opts ListOptions) ([]models.Image, error) {
	query, args := buildListQuery(opts)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	defer rows.Close()

	images := []models.Image{}
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan image row: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}

func (r *ImageRepo) Get(ctx context.Context, id uuid.UUID) (models.Image, error) {
	row := r.pool.QueryRow(ctx, selectColumns+` FROM images WHERE id = $1`, id)
	img, err := scanImage(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Image{}, models.ErrNotFound
	}
	if err != nil {
		return models.Image{}, fmt.Errorf("failed to get image: %w", err)
	}
	return img, nil
}

// UpdateFields carries the mutable subset of a record. Nil pointers leave
// the column untouched; url, storage_ref, and created_at are immutable.
type UpdateFields struct {
	Name        *string
	Description *string
	Category    *models.Category
	Location    *string
}

func (r *ImageRepo) Update(ctx context.Context, id uuid.UUID, f UpdateFields) error {
	sets := []string{}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Name != nil {
		sets = append(sets, "name = "+arg(*f.Name))
	}
	if f.Description != nil {
		sets = append(sets, "description = "+arg(*f.Description))
	}
	if f.Category != nil {
		sets = append(sets, "category = "+arg(*f.Category))
	}
	if f.Location != nil {
		sets = append(sets, "location = NULLIF("+arg(*f.Location)+", '')")
	}
	if len(sets) == 0 {
		return errors.New("no fields to update")
	}

	query := "UPDATE images SET " + strings.Join(sets, ", ") + " WHERE id = " + arg(id)
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes the record and returns its storage reference so the caller
// can clean up the stored object.
func (r *ImageRepo) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	var storageRef string
	err := r.pool.QueryRow(ctx, `DELETE FROM images WHERE id = $1 RETURNING storage_ref`, id).Scan(&storageRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to delete image: %w", err)
	}
	return storageRef, nil
}

const selectColumns = `SELECT id, url, name, description, category, location, created_at, storage_ref`

func buildListQuery(opts ListOptions) (string, []any) {
	var conds []string
	var args []any

	if opts.Category != "" {
		args = append(args, opts.Category)
		conds = append(conds, fmt.Sprintf("category = $%d", len(args)))
	}
	if s := strings.TrimSpace(opts.Search); s != "" {
		args = append(args, "%"+s+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(name ILIKE $%d OR description ILIKE $%d OR location ILIKE $%d)", n, n, n))
	}

	query := selectColumns + " FROM images"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	return query, args
}

func scanImage(row pgx.Row) (models.Image, error) {
	var img models.Image
	var location *string
	err := row.Scan(&img.ID, &img.URL, &img.Name, &img.Description, &img.Category,
		&location, &img.CreatedAt, &img.StorageRef)
	if err != nil {
		return models.Image{}, err
	}
	if location != nil {
		img.Location = *location
	}
	return img, nil
}
