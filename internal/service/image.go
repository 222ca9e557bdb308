package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/amenitymap/internal/metrics"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/storage"
	"github.com/templui/amenitymap/internal/validation"
)

var (
	ErrValidation  = errors.New("validation error")
	ErrPersistence = errors.New("persistence error")
)

const (
	// ImageKeyPrefix is the storage prefix every amenity image lives under.
	ImageKeyPrefix = "amenities/"

	pendingSegment = "pending"
)

type ImageService struct {
	imageRepo     repository.ImageRepository
	amenityRepo   repository.AmenityRepository
	storage       storage.Storage
	metrics       *metrics.Metrics
	expiry        time.Duration
	maxPerAmenity int
	now           func() time.Time
}

func NewImageService(
	imageRepo repository.ImageRepository,
	amenityRepo repository.AmenityRepository,
	storage storage.Storage,
	metrics *metrics.Metrics,
	expiry time.Duration,
	maxPerAmenity int,
) *ImageService {
	return &ImageService{
		imageRepo:     imageRepo,
		amenityRepo:   amenityRepo,
		storage:       storage,
		metrics:       metrics,
		expiry:        expiry,
		maxPerAmenity: maxPerAmenity,
		now:           time.Now,
	}
}

// MaxPerAmenity returns the image ceiling per amenity.
func (s *ImageService) MaxPerAmenity() int {
	return s.maxPerAmenity
}

// Presign validates the file metadata and mints a write credential for a
// fresh storage key. No state is persisted; the amenity does not have to
// exist yet.
func (s *ImageService) Presign(ctx context.Context, req model.PresignRequest) (*model.UploadCredential, error) {
	if strings.TrimSpace(req.Filename) == "" {
		s.metrics.IncPresign(metrics.ResultValidation)
		return nil, fmt.Errorf("%w: filename is required", ErrValidation)
	}
	if req.FileSize <= 0 {
		s.metrics.IncPresign(metrics.ResultValidation)
		return nil, fmt.Errorf("%w: fileSize must be positive", ErrValidation)
	}

	err := validation.ValidateImage(req.ContentType, req.FileSize)
	if err != nil {
		if errors.Is(err, validation.ErrInvalidType) {
			s.metrics.IncPresign(metrics.ResultInvalidType)
		} else {
			s.metrics.IncPresign(metrics.ResultTooLarge)
		}
		return nil, err
	}

	key := s.imageKey(req.AmenityID, req.Filename)

	url, err := s.storage.PresignPut(ctx, key, req.ContentType, s.expiry)
	if err != nil {
		s.metrics.IncPresign(metrics.ResultError)
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	s.metrics.IncPresign(metrics.ResultOK)
	slog.Debug("upload credential issued", "key", key, "content_type", req.ContentType, "size", req.FileSize)

	return &model.UploadCredential{
		PresignedURL: url,
		R2Key:        key,
		CDNURL:       s.storage.PublicURL(key),
		ExpiresIn:    int(s.expiry / time.Second),
	}, nil
}

// imageKey derives amenities/{amenityId|pending}/{millis}-{random8}-{name}.{ext}
func (s *ImageService) imageKey(amenityID, filename string) string {
	segment := pendingSegment
	if id := strings.TrimSpace(amenityID); id != "" {
		segment = validation.SanitizeSegment(id)
	}

	stem, ext := validation.SanitizeFilename(filename)
	random := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]

	return fmt.Sprintf("%s%s/%d-%s-%s.%s", ImageKeyPrefix, segment, s.now().UnixMilli(), random, stem, ext)
}

// Confirm persists the metadata of already uploaded objects for an existing
// amenity. The batch is all-or-nothing and never pushes the amenity past
// its image ceiling.
func (s *ImageService) Confirm(ctx context.Context, amenityID string, descriptors []model.ImageDescriptor) ([]*model.Image, error) {
	err := s.validateConfirm(amenityID, descriptors)
	if err != nil {
		s.metrics.IncConfirm(metrics.ResultValidation, len(descriptors))
		return nil, err
	}

	exists, err := s.amenityRepo.Exists(ctx, amenityID)
	if err != nil {
		s.metrics.IncConfirm(metrics.ResultError, len(descriptors))
		return nil, fmt.Errorf("%w: failed to look up amenity: %w", ErrPersistence, err)
	}
	if !exists {
		s.metrics.IncConfirm(metrics.ResultNotFound, len(descriptors))
		return nil, repository.ErrAmenityNotFound
	}

	now := s.now()
	images := make([]*model.Image, len(descriptors))
	for i, d := range descriptors {
		images[i] = &model.Image{
			ID:           uuid.New().String(),
			AmenityID:    amenityID,
			R2Key:        d.R2Key,
			CDNURL:       d.CDNURL,
			Filename:     d.Filename,
			ContentType:  d.ContentType,
			FileSize:     d.FileSize,
			Width:        positiveOrNil(d.Width),
			Height:       positiveOrNil(d.Height),
			DisplayOrder: d.DisplayOrder,
			CreatedAt:    now,
		}
	}

	err = s.imageRepo.CreateBatch(ctx, amenityID, images, s.maxPerAmenity)
	switch {
	case err == nil:
	case errors.Is(err, repository.ErrAmenityNotFound):
		s.metrics.IncConfirm(metrics.ResultNotFound, len(images))
		return nil, err
	case errors.Is(err, repository.ErrCapacityExceeded):
		s.metrics.IncConfirm(metrics.ResultCapacityExceeded, len(images))
		return nil, err
	default:
		s.metrics.IncConfirm(metrics.ResultError, len(images))
		return nil, fmt.Errorf("%w: failed to save image metadata: %w", ErrPersistence, err)
	}

	s.metrics.IncConfirm(metrics.ResultOK, len(images))
	slog.Info("images confirmed", "amenity_id", amenityID, "count", len(images))

	return images, nil
}

func (s *ImageService) validateConfirm(amenityID string, descriptors []model.ImageDescriptor) error {
	if strings.TrimSpace(amenityID) == "" || len(descriptors) == 0 {
		return fmt.Errorf("%w: missing amenityId or images", ErrValidation)
	}

	seen := make(map[string]bool, len(descriptors))
	for i, d := range descriptors {
		switch {
		case d.R2Key == "" || d.CDNURL == "" || d.Filename == "":
			return fmt.Errorf("%w: images[%d]: r2Key, cdnUrl and filename are required", ErrValidation, i)
		case !strings.HasPrefix(d.R2Key, ImageKeyPrefix):
			return fmt.Errorf("%w: images[%d]: r2Key outside %s", ErrValidation, i, ImageKeyPrefix)
		case seen[d.R2Key]:
			return fmt.Errorf("%w: images[%d]: duplicate r2Key", ErrValidation, i)
		case d.FileSize < 0 || d.DisplayOrder < 0:
			return fmt.Errorf("%w: images[%d]: fileSize and displayOrder must not be negative", ErrValidation, i)
		}
		if err := validation.ValidateImage(d.ContentType, d.FileSize); err != nil {
			return fmt.Errorf("%w: images[%d]: %w", ErrValidation, i, err)
		}
		seen[d.R2Key] = true
	}

	return nil
}

func positiveOrNil(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return v
}

// Images returns an amenity's images ordered by display order.
func (s *ImageService) Images(ctx context.Context, amenityID string) ([]*model.Image, error) {
	if strings.TrimSpace(amenityID) == "" {
		return nil, fmt.Errorf("%w: missing amenityId", ErrValidation)
	}
	return s.imageRepo.Images(ctx, amenityID)
}

// SweepResult summarizes one orphan sweep.
type SweepResult struct {
	Scanned int
	Orphans []string
	Deleted int
}

// SweepOrphans deletes stored objects under ImageKeyPrefix that are older
// than maxAge and have no image record. These are left behind when an
// upload succeeds but its confirmation never lands.
func (s *ImageService) SweepOrphans(ctx context.Context, maxAge time.Duration, dryRun bool) (*SweepResult, error) {
	objects, err := s.storage.List(ctx, ImageKeyPrefix)
	if err != nil {
		return nil, err
	}

	cutoff := s.now().Add(-maxAge)
	var candidates []string
	for _, obj := range objects {
		if obj.LastModified.Before(cutoff) {
			candidates = append(candidates, obj.Key)
		}
	}

	result := &SweepResult{Scanned: len(objects)}

	const batchSize = 500
	for start := 0; start < len(candidates); start += batchSize {
		batch := candidates[start:min(start+batchSize, len(candidates))]

		existing, err := s.imageRepo.ExistingKeys(ctx, batch)
		if err != nil {
			return result, fmt.Errorf("failed to check image records: %w", err)
		}

		for _, key := range batch {
			if existing[key] {
				continue
			}
			result.Orphans = append(result.Orphans, key)
			if dryRun {
				continue
			}
			err = s.storage.Delete(ctx, key)
			if err != nil {
				// Log but continue - the next sweep retries it
				slog.Warn("failed to delete orphaned object", "key", key, "error", err)
				continue
			}
			result.Deleted++
		}
	}

	s.metrics.AddSwept(result.Deleted)
	slog.Info("orphan sweep finished",
		"scanned", result.Scanned,
		"orphans", len(result.Orphans),
		"deleted", result.Deleted,
		"dry_run", dryRun,
	)

	return result, nil
}
