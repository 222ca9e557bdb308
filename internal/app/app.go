package app

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/amenitymap/internal/config"
	"github.com/templui/amenitymap/internal/db"
	"github.com/templui/amenitymap/internal/metrics"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/service"
	"github.com/templui/amenitymap/internal/storage"
)

const categoryCacheTTL = 10 * time.Minute

type App struct {
	Cfg             *config.Config
	DB              *sqlx.DB
	Storage         storage.Storage
	Metrics         *metrics.Metrics
	ImageService    *service.ImageService
	AmenityService  *service.AmenityService
	CategoryService *service.CategoryService
}

func New(cfg *config.Config) (*App, error) {
	// Initialize database and run migrations
	database, err := db.Open(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Storage
	var objectStorage storage.Storage
	switch cfg.StorageDriver {
	case "memory":
		objectStorage = storage.NewMemoryStorage(cfg.AppURL)
	default:
		objectStorage, err = storage.New(cfg)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	return Assemble(cfg, database, objectStorage), nil
}

// Assemble wires repositories and services on top of an open database and
// object storage.
func Assemble(cfg *config.Config, database *sqlx.DB, objectStorage storage.Storage) *App {
	m := metrics.New()

	// Repositories
	amenityRepository := repository.NewAmenityRepository(database)
	categoryRepository := repository.NewCategoryRepository(database)
	imageRepository := repository.NewImageRepository(database)

	// Services
	categoryService := service.NewCategoryService(categoryRepository, categoryCacheTTL)
	amenityService := service.NewAmenityService(amenityRepository, categoryService, cfg.Region())
	imageService := service.NewImageService(
		imageRepository,
		amenityRepository,
		objectStorage,
		m,
		cfg.ImagePresignExpiry,
		cfg.ImageMaxPerAmenity,
	)

	return &App{
		Cfg:             cfg,
		DB:              database,
		Storage:         objectStorage,
		Metrics:         m,
		ImageService:    imageService,
		AmenityService:  amenityService,
		CategoryService: categoryService,
	}
}

func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}
