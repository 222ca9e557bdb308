package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/templui/amenitymap/internal/model"
)

var (
	ErrAmenityNotFound = errors.New("amenity not found")
)

type AmenityRepository interface {
	Create(ctx context.Context, amenity *model.Amenity) error
	ByID(ctx context.Context, id string) (*model.Amenity, error)
	Exists(ctx context.Context, id string) (bool, error)
	InBounds(ctx context.Context, bounds model.Bounds, categorySlugs []string) ([]*model.AmenityListing, error)
}

type amenityRepository struct {
	db *sqlx.DB
}

func NewAmenityRepository(db *sqlx.DB) AmenityRepository {
	return &amenityRepository{db: db}
}

func (r *amenityRepository) Create(ctx context.Context, amenity *model.Amenity) error {
	query := `INSERT INTO amenities (id, category_id, name, description, lat, lng, address, status, metadata, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		amenity.ID,
		amenity.CategoryID,
		amenity.Name,
		amenity.Description,
		amenity.Lat,
		amenity.Lng,
		amenity.Address,
		amenity.Status,
		amenity.Metadata,
		amenity.CreatedAt,
		amenity.UpdatedAt,
	)

	return err
}

func (r *amenityRepository) ByID(ctx context.Context, id string) (*model.Amenity, error) {
	amenity := &model.Amenity{}
	query := `SELECT * FROM amenities WHERE id = $1`

	err := r.db.GetContext(ctx, amenity, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAmenityNotFound
	}
	if err != nil {
		return nil, err
	}

	return amenity, nil
}

func (r *amenityRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM amenities WHERE id = $1)`
	err := r.db.GetContext(ctx, &exists, query, id)
	return exists, err
}

// InBounds lists approved amenities inside bounds, optionally restricted to
// the given category slugs, with their category display fields.
func (r *amenityRepository) InBounds(ctx context.Context, bounds model.Bounds, categorySlugs []string) ([]*model.AmenityListing, error) {
	query := `SELECT a.id, a.name, a.description, a.lat, a.lng, a.address, a.metadata, a.created_at,
	                 c.id AS category_id, c.name AS category_name, c.slug AS category_slug,
	                 c.icon AS category_icon, c.color AS category_color
	          FROM amenities a
	          JOIN categories c ON c.id = a.category_id
	          WHERE a.status = ?
	            AND a.lat BETWEEN ? AND ?
	            AND a.lng BETWEEN ? AND ?`
	args := []any{model.AmenityStatusApproved, bounds.MinLat, bounds.MaxLat, bounds.MinLng, bounds.MaxLng}

	if len(categorySlugs) > 0 {
		query += ` AND c.slug IN (?)`
		args = append(args, categorySlugs)
	}
	query += ` ORDER BY a.created_at DESC`

	query, args, err := sqlx.In(query, args...)
	if err != nil {
		return nil, err
	}

	var amenities []*model.AmenityListing
	err = r.db.SelectContext(ctx, &amenities, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return amenities, nil
}
