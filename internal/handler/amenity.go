package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/service"
)

type AmenityHandler struct {
	amenityService *service.AmenityService
}

func NewAmenityHandler(amenityService *service.AmenityService) *AmenityHandler {
	return &AmenityHandler{
		amenityService: amenityService,
	}
}

// Create handles POST /amenities
func (h *AmenityHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAmenityRequest
	err := decodeJSON(w, r, &req)
	if err != nil {
		createFailed(w, r, err)
		return
	}

	amenity, err := h.amenityService.Create(r.Context(), req)
	if err != nil {
		createFailed(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, model.CreateAmenityResponse{Success: true, AmenityID: amenity.ID})
}

func createFailed(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := statusFor(err)
	if status >= http.StatusInternalServerError {
		writeServiceError(w, r, err, "Failed to create amenity")
		return
	}
	writeJSON(w, status, model.CreateAmenityResponse{Success: false, Error: err.Error()})
}

// List handles GET /amenities?minLat=&minLng=&maxLat=&maxLng=&category=a,b
func (h *AmenityHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	bounds, err := parseBounds(q.Get("minLat"), q.Get("minLng"), q.Get("maxLat"), q.Get("maxLng"))
	if err != nil {
		writeServiceError(w, r, err, "Invalid bounds")
		return
	}

	var slugs []string
	for _, s := range strings.Split(q.Get("category"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			slugs = append(slugs, s)
		}
	}

	amenities, err := h.amenityService.InBounds(r.Context(), bounds, slugs)
	if err != nil {
		writeServiceError(w, r, err, "Failed to fetch amenities")
		return
	}

	writeJSON(w, http.StatusOK, model.AmenitiesResponse{Amenities: amenities})
}

// parseBounds returns nil when no bound is given, so the service falls back
// to the whole region.
func parseBounds(minLat, minLng, maxLat, maxLng string) (*model.Bounds, error) {
	raw := []string{minLat, minLng, maxLat, maxLng}
	if strings.Join(raw, "") == "" {
		return nil, nil
	}

	var v [4]float64
	for i, s := range raw {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: minLat, minLng, maxLat and maxLng must all be numbers", service.ErrValidation)
		}
		v[i] = f
	}

	return &model.Bounds{MinLat: v[0], MinLng: v[1], MaxLat: v[2], MaxLng: v[3]}, nil
}
