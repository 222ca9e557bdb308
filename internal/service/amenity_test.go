package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/amenitymap/internal/db/dbtest"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
)

func TestCreateAmenity(t *testing.T) {
	f := newFixture(t)

	a, err := f.amenities.Create(context.Background(), model.CreateAmenityRequest{
		CategoryID:  dbtest.CategoryWaterCoolers,
		Name:        "  Cooler near MRT exit B  ",
		Description: "  ",
		Lat:         1.2966,
		Lng:         103.8526,
		Address:     "1 Stamford Rd",
	})
	require.NoError(t, err)

	assert.Equal(t, "Cooler near MRT exit B", a.Name)
	assert.Nil(t, a.Description)
	require.NotNil(t, a.Address)
	assert.Equal(t, "1 Stamford Rd", *a.Address)
	assert.Equal(t, model.AmenityStatusApproved, a.Status)

	got, err := f.amenities.ByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Name, got.Name)
}

func TestCreateAmenityValidation(t *testing.T) {
	f := newFixture(t)
	valid := model.CreateAmenityRequest{CategoryID: dbtest.CategoryWaterCoolers, Name: "Cooler", Lat: 1.3, Lng: 103.8}

	tests := []struct {
		name   string
		mutate func(*model.CreateAmenityRequest)
		also   error
	}{
		{"missing name", func(r *model.CreateAmenityRequest) { r.Name = "" }, nil},
		{"outside region", func(r *model.CreateAmenityRequest) { r.Lat, r.Lng = 51.5, -0.12 }, ErrOutsideRegion},
		{"missing category", func(r *model.CreateAmenityRequest) { r.CategoryID = "" }, nil},
		{"unknown category", func(r *model.CreateAmenityRequest) { r.CategoryID = "nope" }, repository.ErrCategoryNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := f.amenities.Create(context.Background(), req)
			require.ErrorIs(t, err, ErrValidation)
			if tt.also != nil {
				assert.ErrorIs(t, err, tt.also)
			}
		})
	}
}

func TestAmenitiesInBoundsDefaultsToRegion(t *testing.T) {
	f := newFixture(t)
	f.amenity(t)

	all, err := f.amenities.InBounds(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	none, err := f.amenities.InBounds(context.Background(), nil, []string{"toilets"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = f.amenities.InBounds(context.Background(), &model.Bounds{MinLat: 2, MaxLat: 1}, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

type countingCategoryRepo struct {
	repository.CategoryRepository
	calls int
}

func (r *countingCategoryRepo) Categories(ctx context.Context) ([]*model.Category, error) {
	r.calls++
	return r.CategoryRepository.Categories(ctx)
}

func TestCategoriesAreCached(t *testing.T) {
	repo := &countingCategoryRepo{CategoryRepository: repository.NewCategoryRepository(dbtest.New(t))}
	svc := NewCategoryService(repo, 0)

	for range 3 {
		categories, err := svc.Categories(context.Background())
		require.NoError(t, err)
		assert.Len(t, categories, 5)
	}
	assert.Equal(t, 1, repo.calls)

	c, err := svc.ByID(context.Background(), dbtest.CategoryWaterCoolers)
	require.NoError(t, err)
	assert.Equal(t, "water-coolers", c.Slug)
}
