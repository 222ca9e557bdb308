package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/amenitymap/internal/db/dbtest"
	"github.com/templui/amenitymap/internal/metrics"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/storage"
	"github.com/templui/amenitymap/internal/validation"
)

var singapore = model.Bounds{MinLat: 1.15, MaxLat: 1.5, MinLng: 103.6, MaxLng: 104.1}

type fixture struct {
	images    *ImageService
	amenities *AmenityService
	storage   *storage.MemoryStorage
	imageRepo repository.ImageRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	database := dbtest.New(t)
	mem := storage.NewMemoryStorage("https://cdn.test")
	imageRepo := repository.NewImageRepository(database)
	amenityRepo := repository.NewAmenityRepository(database)
	categories := NewCategoryService(repository.NewCategoryRepository(database), time.Minute)

	return &fixture{
		images:    NewImageService(imageRepo, amenityRepo, mem, metrics.New(), 5*time.Minute, 3),
		amenities: NewAmenityService(amenityRepo, categories, singapore),
		storage:   mem,
		imageRepo: imageRepo,
	}
}

func (f *fixture) amenity(t *testing.T) *model.Amenity {
	t.Helper()
	a, err := f.amenities.Create(context.Background(), model.CreateAmenityRequest{
		CategoryID: dbtest.CategoryPowerOutlets,
		Name:       "Library outlet",
		Lat:        1.3,
		Lng:        103.8,
	})
	require.NoError(t, err)
	return a
}

func descriptors(n int) []model.ImageDescriptor {
	ds := make([]model.ImageDescriptor, n)
	for i := range ds {
		key := fmt.Sprintf("amenities/x/%d-%s-photo.jpg", time.Now().UnixMilli(), uuid.New().String()[:8])
		ds[i] = model.ImageDescriptor{
			R2Key:        key,
			CDNURL:       "https://cdn.test/public/" + key,
			Filename:     "photo.jpg",
			ContentType:  "image/jpeg",
			FileSize:     2048,
			DisplayOrder: i,
		}
	}
	return ds
}

var keyPattern = regexp.MustCompile(`^amenities/([^/]+)/(\d+)-([0-9a-f]{8})-([A-Za-z0-9_-]{0,50})\.([a-z0-9]+)$`)

func TestPresignPendingKey(t *testing.T) {
	f := newFixture(t)

	cred, err := f.images.Presign(context.Background(), model.PresignRequest{
		Filename:    "My Photo!.JPG",
		ContentType: "image/jpeg",
		FileSize:    1024,
	})
	require.NoError(t, err)

	m := keyPattern.FindStringSubmatch(cred.R2Key)
	require.NotNil(t, m, cred.R2Key)
	assert.Equal(t, "pending", m[1])
	assert.Equal(t, "My_Photo_", m[4])
	assert.Equal(t, "jpg", m[5])
	assert.Equal(t, 300, cred.ExpiresIn)
	assert.Equal(t, "https://cdn.test/public/"+cred.R2Key, cred.CDNURL)
	assert.Contains(t, cred.PresignedURL, cred.R2Key)
}

func TestPresignAmenityKeyIsUniquePerCall(t *testing.T) {
	f := newFixture(t)
	req := model.PresignRequest{Filename: "a.png", ContentType: "image/png", FileSize: 10, AmenityID: "amenity-42"}

	first, err := f.images.Presign(context.Background(), req)
	require.NoError(t, err)
	second, err := f.images.Presign(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.R2Key, second.R2Key)
	assert.Equal(t, "amenity-42", keyPattern.FindStringSubmatch(first.R2Key)[1])
}

func TestPresignRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// gif is not in the allow-set
	_, err := f.images.Presign(ctx, model.PresignRequest{Filename: "a.gif", ContentType: "image/gif", FileSize: 100})
	assert.ErrorIs(t, err, validation.ErrInvalidType)

	// 6 MB is over the 5 MiB ceiling
	_, err = f.images.Presign(ctx, model.PresignRequest{Filename: "a.jpg", ContentType: "image/jpeg", FileSize: 6_000_000})
	assert.ErrorIs(t, err, validation.ErrTooLarge)

	_, err = f.images.Presign(ctx, model.PresignRequest{ContentType: "image/jpeg", FileSize: 10})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.images.Presign(ctx, model.PresignRequest{Filename: "a.jpg", ContentType: "image/jpeg"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestConfirmWithinCapacity(t *testing.T) {
	f := newFixture(t)
	a := f.amenity(t)

	images, err := f.images.Confirm(context.Background(), a.ID, descriptors(2))
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.Equal(t, 0, images[0].DisplayOrder)
	assert.Equal(t, 1, images[1].DisplayOrder)
	assert.NotEmpty(t, images[0].ID)
	assert.False(t, images[0].CreatedAt.IsZero())

	stored, err := f.images.Images(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestConfirmOverCapacity(t *testing.T) {
	f := newFixture(t)
	a := f.amenity(t)
	ctx := context.Background()

	_, err := f.images.Confirm(ctx, a.ID, descriptors(2))
	require.NoError(t, err)

	_, err = f.images.Confirm(ctx, a.ID, descriptors(2))
	require.ErrorIs(t, err, repository.ErrCapacityExceeded)

	count, err := f.imageRepo.CountByAmenity(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestConfirmSucceedsIffWithinCeiling(t *testing.T) {
	for existing := 0; existing <= 3; existing++ {
		for batch := 1; batch <= 4; batch++ {
			t.Run(fmt.Sprintf("C=%d,B=%d", existing, batch), func(t *testing.T) {
				f := newFixture(t)
				a := f.amenity(t)
				ctx := context.Background()

				if existing > 0 {
					_, err := f.images.Confirm(ctx, a.ID, descriptors(existing))
					require.NoError(t, err)
				}

				_, err := f.images.Confirm(ctx, a.ID, descriptors(batch))

				count, cerr := f.imageRepo.CountByAmenity(ctx, a.ID)
				require.NoError(t, cerr)
				if existing+batch <= 3 {
					require.NoError(t, err)
					assert.Equal(t, existing+batch, count)
				} else {
					require.ErrorIs(t, err, repository.ErrCapacityExceeded)
					assert.Equal(t, existing, count)
				}
			})
		}
	}
}

func TestConfirmUnknownAmenity(t *testing.T) {
	f := newFixture(t)

	_, err := f.images.Confirm(context.Background(), "no-such-amenity", descriptors(1))
	require.ErrorIs(t, err, repository.ErrAmenityNotFound)
}

func TestConfirmValidation(t *testing.T) {
	f := newFixture(t)
	a := f.amenity(t)
	ctx := context.Background()

	_, err := f.images.Confirm(ctx, "", descriptors(1))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.images.Confirm(ctx, a.ID, nil)
	assert.ErrorIs(t, err, ErrValidation)

	bad := descriptors(1)
	bad[0].CDNURL = ""
	_, err = f.images.Confirm(ctx, a.ID, bad)
	assert.ErrorIs(t, err, ErrValidation)

	bad = descriptors(1)
	bad[0].R2Key = "elsewhere/photo.jpg"
	_, err = f.images.Confirm(ctx, a.ID, bad)
	assert.ErrorIs(t, err, ErrValidation)

	bad = descriptors(1)
	bad[0].ContentType = "image/gif"
	_, err = f.images.Confirm(ctx, a.ID, bad)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, validation.ErrInvalidType)

	dup := descriptors(2)
	dup[1].R2Key = dup[0].R2Key
	_, err = f.images.Confirm(ctx, a.ID, dup)
	assert.ErrorIs(t, err, ErrValidation)
}

type failingImageRepo struct {
	repository.ImageRepository
}

func (failingImageRepo) CreateBatch(context.Context, string, []*model.Image, int) error {
	return errors.New("disk full")
}

func TestConfirmPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	a := f.amenity(t)
	f.images.imageRepo = failingImageRepo{f.imageRepo}

	_, err := f.images.Confirm(context.Background(), a.ID, descriptors(1))
	require.ErrorIs(t, err, ErrPersistence)
}

func TestConfirmDropsNonPositiveDimensions(t *testing.T) {
	f := newFixture(t)
	a := f.amenity(t)

	zero, width := 0, 1920
	ds := descriptors(1)
	ds[0].Width, ds[0].Height = &width, &zero

	images, err := f.images.Confirm(context.Background(), a.ID, ds)
	require.NoError(t, err)
	require.NotNil(t, images[0].Width)
	assert.Equal(t, 1920, *images[0].Width)
	assert.Nil(t, images[0].Height)
}

func TestImagesRequiresID(t *testing.T) {
	f := newFixture(t)
	_, err := f.images.Images(context.Background(), " ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSweepOrphans(t *testing.T) {
	f := newFixture(t)
	a := f.amenity(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	confirmed := descriptors(1)
	_, err := f.images.Confirm(ctx, a.ID, confirmed)
	require.NoError(t, err)

	f.storage.Put(confirmed[0].R2Key, "image/jpeg", []byte("kept"), old)
	f.storage.Put("amenities/pending/1-aaaaaaaa-orphan.jpg", "image/jpeg", []byte("orphan"), old)
	f.storage.Put("amenities/pending/2-bbbbbbbb-fresh.jpg", "image/jpeg", []byte("fresh"), time.Now())

	dry, err := f.images.SweepOrphans(ctx, 24*time.Hour, true)
	require.NoError(t, err)
	assert.Equal(t, 3, dry.Scanned)
	assert.Equal(t, []string{"amenities/pending/1-aaaaaaaa-orphan.jpg"}, dry.Orphans)
	assert.Zero(t, dry.Deleted)

	res, err := f.images.SweepOrphans(ctx, 24*time.Hour, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Deleted)

	objects, err := f.storage.List(ctx, ImageKeyPrefix)
	require.NoError(t, err)
	assert.Len(t, objects, 2)
}
