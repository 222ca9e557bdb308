package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/service"
)

type ImageHandler struct {
	imageService *service.ImageService
}

func NewImageHandler(imageService *service.ImageService) *ImageHandler {
	return &ImageHandler{
		imageService: imageService,
	}
}

// Presign handles POST /images/presign
func (h *ImageHandler) Presign(w http.ResponseWriter, r *http.Request) {
	var req model.PresignRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeServiceError(w, r, err, "Invalid request")
		return
	}

	cred, err := h.imageService.Presign(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to generate upload URL")
		return
	}

	writeJSON(w, http.StatusOK, cred)
}

// Confirm handles POST /images/confirm
func (h *ImageHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req model.ConfirmRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		writeServiceError(w, r, err, "Invalid request")
		return
	}

	images, err := h.imageService.Confirm(r.Context(), req.AmenityID, req.Images)
	if err != nil {
		// The client always creates the amenity first; these point at a bug
		if errors.Is(err, repository.ErrAmenityNotFound) || errors.Is(err, service.ErrValidation) {
			slog.Warn("unexpected confirm rejection", "amenity_id", req.AmenityID, "images", len(req.Images), "error", err)
		}
		writeServiceError(w, r, err, "Failed to save image metadata")
		return
	}

	writeJSON(w, http.StatusOK, model.ConfirmResponse{Success: true, Images: images})
}

// List handles GET /images/{amenityId}
func (h *ImageHandler) List(w http.ResponseWriter, r *http.Request) {
	images, err := h.imageService.Images(r.Context(), r.PathValue("amenityId"))
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch images")
		return
	}
	if images == nil {
		images = []*model.Image{}
	}

	writeJSON(w, http.StatusOK, model.ImagesResponse{Images: images})
}
