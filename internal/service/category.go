package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
)

const categoriesCacheKey = "all"

// CategoryService serves categories from a short-lived cache; they change
// only through migrations.
type CategoryService struct {
	repo  repository.CategoryRepository
	cache *expirable.LRU[string, []*model.Category]
}

func NewCategoryService(repo repository.CategoryRepository, ttl time.Duration) *CategoryService {
	return &CategoryService{
		repo:  repo,
		cache: expirable.NewLRU[string, []*model.Category](1, nil, ttl),
	}
}

func (s *CategoryService) Categories(ctx context.Context) ([]*model.Category, error) {
	if categories, ok := s.cache.Get(categoriesCacheKey); ok {
		return categories, nil
	}

	categories, err := s.repo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []*model.Category{}
	}

	s.cache.Add(categoriesCacheKey, categories)
	return categories, nil
}

func (s *CategoryService) ByID(ctx context.Context, id string) (*model.Category, error) {
	categories, err := s.Categories(ctx)
	if err != nil {
		return nil, err
	}

	for _, c := range categories {
		if c.ID == id {
			return c, nil
		}
	}

	// Not cached yet (or added since): ask the database directly
	return s.repo.ByID(ctx, id)
}
