package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"github.com/templui/amenitymap/internal/model"
)

func newAmenity(t *testing.T, database *sqlx.DB, categoryID string, lat, lng float64) *model.Amenity {
	t.Helper()

	now := time.Now()
	a := &model.Amenity{
		ID:         uuid.New().String(),
		CategoryID: categoryID,
		Name:       "Amenity " + uuid.New().String()[:4],
		Lat:        lat,
		Lng:        lng,
		Status:     model.AmenityStatusApproved,
		Metadata:   "{}",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, NewAmenityRepository(database).Create(context.Background(), a))
	return a
}

func newImages(amenityID string, n int) []*model.Image {
	images := make([]*model.Image, n)
	for i := range images {
		key := fmt.Sprintf("amenities/%s/%d-%s-photo.jpg", amenityID, time.Now().UnixMilli(), uuid.New().String()[:8])
		images[i] = &model.Image{
			ID:           uuid.New().String(),
			AmenityID:    amenityID,
			R2Key:        key,
			CDNURL:       "https://cdn.example.com/" + key,
			Filename:     "photo.jpg",
			ContentType:  "image/jpeg",
			FileSize:     1024,
			DisplayOrder: i,
			CreatedAt:    time.Now(),
		}
	}
	return images
}
