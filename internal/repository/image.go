package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/amenitymap/internal/model"
)

var (
	ErrCapacityExceeded = errors.New("image capacity exceeded")
)

type ImageRepository interface {
	// CreateBatch inserts all images for one amenity, or none of them.
	CreateBatch(ctx context.Context, amenityID string, images []*model.Image, limit int) error
	Images(ctx context.Context, amenityID string) ([]*model.Image, error)
	CountByAmenity(ctx context.Context, amenityID string) (int, error)
	ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error)
}

type imageRepository struct {
	db *sqlx.DB
}

func NewImageRepository(db *sqlx.DB) ImageRepository {
	return &imageRepository{db: db}
}

// CreateBatch locks the parent amenity row by touching it, re-counts its
// images and inserts the batch in the same transaction. Concurrent batches
// for the same amenity serialize on that row lock, so the count can never
// overshoot limit.
func (r *imageRepository) CreateBatch(ctx context.Context, amenityID string, images []*model.Image, limit int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `UPDATE amenities SET updated_at = $1 WHERE id = $2`, time.Now(), amenityID)
	if err != nil {
		return fmt.Errorf("lock amenity: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrAmenityNotFound
	}

	var count int
	err = tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM amenity_images WHERE amenity_id = $1`, amenityID)
	if err != nil {
		return fmt.Errorf("count images: %w", err)
	}

	if count+len(images) > limit {
		return fmt.Errorf("%w: %d existing + %d new > %d", ErrCapacityExceeded, count, len(images), limit)
	}

	query := `INSERT INTO amenity_images (id, amenity_id, r2_key, cdn_url, filename, content_type, file_size, width, height, display_order, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	for _, img := range images {
		_, err = tx.ExecContext(ctx, query,
			img.ID,
			amenityID,
			img.R2Key,
			img.CDNURL,
			img.Filename,
			img.ContentType,
			img.FileSize,
			img.Width,
			img.Height,
			img.DisplayOrder,
			img.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert image %s: %w", img.R2Key, err)
		}
	}

	return tx.Commit()
}

func (r *imageRepository) Images(ctx context.Context, amenityID string) ([]*model.Image, error) {
	images := []*model.Image{}
	query := `SELECT * FROM amenity_images WHERE amenity_id = $1 ORDER BY display_order ASC, created_at ASC`

	err := r.db.SelectContext(ctx, &images, query, amenityID)
	if err != nil {
		return nil, err
	}

	return images, nil
}

func (r *imageRepository) CountByAmenity(ctx context.Context, amenityID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM amenity_images WHERE amenity_id = $1`
	err := r.db.GetContext(ctx, &count, query, amenityID)
	return count, err
}

// ExistingKeys reports which of keys have an image record.
func (r *imageRepository) ExistingKeys(ctx context.Context, keys []string) (map[string]bool, error) {
	existing := make(map[string]bool, len(keys))
	if len(keys) == 0 {
		return existing, nil
	}

	query, args, err := sqlx.In(`SELECT r2_key FROM amenity_images WHERE r2_key IN (?)`, keys)
	if err != nil {
		return nil, err
	}

	var found []string
	err = r.db.SelectContext(ctx, &found, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	for _, k := range found {
		existing[k] = true
	}
	return existing, nil
}
