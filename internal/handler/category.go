package handler

import (
	"net/http"

	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/service"
)

type CategoryHandler struct {
	categoryService *service.CategoryService
}

func NewCategoryHandler(categoryService *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
	}
}

func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryService.Categories(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch categories")
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	writeJSON(w, http.StatusOK, model.CategoriesResponse{Categories: categories})
}
