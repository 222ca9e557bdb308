package routes

import (
	"net/http"

	"github.com/templui/amenitymap/internal/app"
	"github.com/templui/amenitymap/internal/handler"
	"github.com/templui/amenitymap/internal/middleware"
	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/storage"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	images := handler.NewImageHandler(app.ImageService)
	amenities := handler.NewAmenityHandler(app.AmenityService)
	categories := handler.NewCategoryHandler(app.CategoryService)
	health := handler.NewHealthHandler(app.DB)

	mux := http.NewServeMux()

	// Write endpoints are rate limited per IP
	rateLimiter := middleware.NewRateLimiter(app.Cfg.RateLimitPerMinute, app.Cfg.RateLimitBurst)

	// ============================================================================
	// IMAGES
	// ============================================================================

	mux.HandleFunc("POST /images/presign", rateLimiter.Limit(images.Presign))
	mux.HandleFunc("POST /images/confirm", images.Confirm)
	mux.HandleFunc("GET /images/{amenityId}", images.List)
	mux.HandleFunc("GET /images/{$}", images.List) // missing amenityId is a 400, not a 404

	// ============================================================================
	// AMENITIES
	// ============================================================================

	mux.HandleFunc("POST /amenities", rateLimiter.Limit(amenities.Create))
	mux.HandleFunc("GET /amenities", amenities.List)
	mux.HandleFunc("GET /categories", categories.List)

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Health)
	mux.Handle("GET /metrics", app.Metrics.Handler())

	// In-process object store (STORAGE_DRIVER=memory)
	if mem, ok := app.Storage.(*storage.MemoryStorage); ok {
		mux.Handle("/upload/", mem.Handler())
		mux.Handle("/public/", mem.Handler())
	}

	// ============================================================================
	// FALLBACK
	// ============================================================================

	mux.HandleFunc("/{path...}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found","code":"` + model.CodeNotFound + `"}` + "\n"))
	})

	// Global middleware - executed in order (top to bottom)
	handler := middleware.Chain(
		mux,
		middleware.Recover,
		middleware.RequestID,
		middleware.RequestLogging,
		middleware.Metrics(app.Metrics), // Must be last: reads the pattern the mux matched
	)

	return handler
}
