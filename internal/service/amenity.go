package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/validation"
)

var (
	ErrOutsideRegion = errors.New("location is outside the supported region")
)

type AmenityService struct {
	repo            repository.AmenityRepository
	categoryService *CategoryService
	region          model.Bounds
}

func NewAmenityService(repo repository.AmenityRepository, categoryService *CategoryService, region model.Bounds) *AmenityService {
	return &AmenityService{
		repo:            repo,
		categoryService: categoryService,
		region:          region,
	}
}

func (s *AmenityService) Create(ctx context.Context, req model.CreateAmenityRequest) (*model.Amenity, error) {
	name := strings.TrimSpace(req.Name)
	err := validation.ValidateName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	err = validation.ValidateDescription(req.Description)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	if !s.region.Contains(req.Lat, req.Lng) {
		return nil, fmt.Errorf("%w: %w", ErrValidation, ErrOutsideRegion)
	}

	if strings.TrimSpace(req.CategoryID) == "" {
		return nil, fmt.Errorf("%w: category is required", ErrValidation)
	}

	_, err = s.categoryService.ByID(ctx, req.CategoryID)
	if err != nil {
		if errors.Is(err, repository.ErrCategoryNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		return nil, err
	}

	now := time.Now()
	amenity := &model.Amenity{
		ID:          uuid.New().String(),
		CategoryID:  req.CategoryID,
		Name:        name,
		Description: optional(req.Description),
		Lat:         req.Lat,
		Lng:         req.Lng,
		Address:     optional(req.Address),
		Status:      model.AmenityStatusApproved,
		Metadata:    "{}",
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.repo.Create(ctx, amenity)
	if err != nil {
		return nil, fmt.Errorf("failed to create amenity: %w", err)
	}

	slog.Info("amenity created", "amenity_id", amenity.ID, "category_id", amenity.CategoryID)
	return amenity, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *AmenityService) ByID(ctx context.Context, id string) (*model.Amenity, error) {
	return s.repo.ByID(ctx, id)
}

// InBounds lists amenities inside bounds, defaulting to the whole region.
func (s *AmenityService) InBounds(ctx context.Context, bounds *model.Bounds, categorySlugs []string) ([]*model.AmenityListing, error) {
	b := s.region
	if bounds != nil {
		if !bounds.Valid() {
			return nil, fmt.Errorf("%w: invalid bounds", ErrValidation)
		}
		b = *bounds
	}

	amenities, err := s.repo.InBounds(ctx, b, categorySlugs)
	if err != nil {
		return nil, fmt.Errorf("failed to list amenities: %w", err)
	}
	if amenities == nil {
		amenities = []*model.AmenityListing{}
	}
	return amenities, nil
}

// Region returns the bounding box amenities are accepted in.
func (s *AmenityService) Region() model.Bounds {
	return s.region
}
