package model

import (
	"time"
)

const (
	AmenityStatusApproved = "approved"
	AmenityStatusPending  = "pending"
	AmenityStatusRejected = "rejected"
)

type Amenity struct {
	ID          string    `db:"id" json:"id"`
	CategoryID  string    `db:"category_id" json:"category_id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description"`
	Lat         float64   `db:"lat" json:"lat"`
	Lng         float64   `db:"lng" json:"lng"`
	Address     *string   `db:"address" json:"address"`
	Status      string    `db:"status" json:"status"`
	Metadata    string    `db:"metadata" json:"-"` // JSON object, "{}" when empty
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// AmenityListing is an amenity with its category display fields denormalized,
// the shape the map consumes.
type AmenityListing struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Description   *string   `db:"description" json:"description"`
	Lat           float64   `db:"lat" json:"lat"`
	Lng           float64   `db:"lng" json:"lng"`
	Address       *string   `db:"address" json:"address"`
	Metadata      string    `db:"metadata" json:"-"`
	CategoryID    string    `db:"category_id" json:"category_id"`
	CategoryName  string    `db:"category_name" json:"category_name"`
	CategorySlug  string    `db:"category_slug" json:"category_slug"`
	CategoryIcon  string    `db:"category_icon" json:"category_icon"`
	CategoryColor *string   `db:"category_color" json:"category_color"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Bounds is a lat/lng bounding box.
type Bounds struct {
	MinLat float64
	MaxLat float64
	MinLng float64
	MaxLng float64
}

// Contains reports whether the point lies inside the box (inclusive).
func (b Bounds) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Valid reports whether the box is well-formed.
func (b Bounds) Valid() bool {
	return b.MinLat <= b.MaxLat && b.MinLng <= b.MaxLng &&
		b.MinLat >= -90 && b.MaxLat <= 90 && b.MinLng >= -180 && b.MaxLng <= 180
}
