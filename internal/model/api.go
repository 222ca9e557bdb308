package model

// PresignRequest is the JSON body of POST /images/presign.
type PresignRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
	AmenityID   string `json:"amenityId,omitempty"`
}

// ConfirmRequest is the JSON body of POST /images/confirm.
type ConfirmRequest struct {
	AmenityID string            `json:"amenityId"`
	Images    []ImageDescriptor `json:"images"`
}

type ConfirmResponse struct {
	Success bool     `json:"success"`
	Images  []*Image `json:"images"`
}

type ImagesResponse struct {
	Images []*Image `json:"images"`
}

// CreateAmenityRequest is the JSON body of POST /amenities.
type CreateAmenityRequest struct {
	CategoryID  string  `json:"categoryId"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
	Address     string  `json:"address,omitempty"`
}

type CreateAmenityResponse struct {
	Success   bool   `json:"success"`
	AmenityID string `json:"amenityId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type AmenitiesResponse struct {
	Amenities []*AmenityListing `json:"amenities"`
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}

// ErrorResponse is returned for any failed API request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes carried in ErrorResponse.Code.
const (
	CodeInvalidType      = "INVALID_TYPE"
	CodeTooLarge         = "TOO_LARGE"
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeCapacityExceeded = "CAPACITY_EXCEEDED"
	CodePersistence      = "PERSISTENCE_ERROR"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)
