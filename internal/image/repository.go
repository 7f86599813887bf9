// Package image implements the image upload workflow: the object is written to
// storage first, then a metadata record is inserted.
package image

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/medicuris/service/internal/db"
)

// Image is the metadata record of one uploaded object. It is never updated or deleted.
type Image struct {
	ID         int64     `json:"id" example:"12"`
	Filename   string    `json:"filename" example:"aspirin.png"`
	URL        string    `json:"url" example:"https://cdn.example.com/medicine-images/uploads/3f2a-aspirin.png"`
	UploadedAt time.Time `json:"uploadedAt" example:"2026-02-27T14:48:34Z"`
}

// Repository handles image metadata persistence.
type Repository struct {
	db db.Querier
}

// NewRepository creates a new image Repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Create inserts img and sets its generated ID.
func (r *Repository) Create(ctx context.Context, img *Image) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO images (filename, url, uploaded_at)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		img.Filename, img.URL, img.UploadedAt,
	).Scan(&img.ID)
	if err != nil {
		return fmt.Errorf("insert image: %w", err)
	}
	return nil
}

// GetByID fetches an image record by id.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Image, error) {
	img := &Image{}
	err := r.db.QueryRow(ctx,
		`SELECT id, filename, url, uploaded_at FROM images WHERE id = $1`,
		id,
	).Scan(&img.ID, &img.Filename, &img.URL, &img.UploadedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get image by id: %w", err)
	}
	return img, nil
}

// List returns every image record in insertion order.
func (r *Repository) List(ctx context.Context) ([]Image, error) {
	rows, err := r.db.Query(ctx, `SELECT id, filename, url, uploaded_at FROM images ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := make([]Image, 0)
	for rows.Next() {
		var img Image
		if err := rows.Scan(&img.ID, &img.Filename, &img.URL, &img.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	return images, nil
}
