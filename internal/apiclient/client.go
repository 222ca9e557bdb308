// Package apiclient talks to the amenity map HTTP API and performs the
// direct presigned writes to object storage.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/templui/amenitymap/internal/model"
	"github.com/templui/amenitymap/internal/repository"
	"github.com/templui/amenitymap/internal/service"
	"github.com/templui/amenitymap/internal/upload"
	"github.com/templui/amenitymap/internal/validation"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Is maps the error code back to the sentinel the server started from.
func (e *APIError) Is(target error) bool {
	switch e.Code {
	case model.CodeInvalidType:
		return target == validation.ErrInvalidType
	case model.CodeTooLarge:
		return target == validation.ErrTooLarge
	case model.CodeValidation:
		return target == service.ErrValidation
	case model.CodeNotFound:
		return target == repository.ErrAmenityNotFound
	case model.CodeCapacityExceeded:
		return target == repository.ErrCapacityExceeded
	case model.CodePersistence:
		return target == service.ErrPersistence
	}
	return false
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Presign requests an upload credential.
func (c *Client) Presign(ctx context.Context, req model.PresignRequest) (*model.UploadCredential, error) {
	var cred model.UploadCredential
	err := c.do(ctx, http.MethodPost, "/images/presign", req, &cred)
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// ConfirmImages attaches uploaded objects to an amenity.
func (c *Client) ConfirmImages(ctx context.Context, amenityID string, images []model.ImageDescriptor) ([]*model.Image, error) {
	var resp model.ConfirmResponse
	err := c.do(ctx, http.MethodPost, "/images/confirm", model.ConfirmRequest{AmenityID: amenityID, Images: images}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// Images lists an amenity's images in display order.
func (c *Client) Images(ctx context.Context, amenityID string) ([]*model.Image, error) {
	var resp model.ImagesResponse
	err := c.do(ctx, http.MethodGet, "/images/"+url.PathEscape(amenityID), nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// CreateAmenity creates an amenity and returns its id.
func (c *Client) CreateAmenity(ctx context.Context, req model.CreateAmenityRequest) (string, error) {
	var resp model.CreateAmenityResponse
	err := c.do(ctx, http.MethodPost, "/amenities", req, &resp)
	if err != nil {
		return "", err
	}
	if !resp.Success || resp.AmenityID == "" {
		return "", fmt.Errorf("create amenity: %s", resp.Error)
	}
	return resp.AmenityID, nil
}

// Amenities lists amenities inside bounds (the whole region when nil),
// optionally filtered by category slugs.
func (c *Client) Amenities(ctx context.Context, bounds *model.Bounds, categorySlugs []string) ([]*model.AmenityListing, error) {
	q := url.Values{}
	if bounds != nil {
		q.Set("minLat", strconv.FormatFloat(bounds.MinLat, 'f', -1, 64))
		q.Set("minLng", strconv.FormatFloat(bounds.MinLng, 'f', -1, 64))
		q.Set("maxLat", strconv.FormatFloat(bounds.MaxLat, 'f', -1, 64))
		q.Set("maxLng", strconv.FormatFloat(bounds.MaxLng, 'f', -1, 64))
	}
	if len(categorySlugs) > 0 {
		q.Set("category", strings.Join(categorySlugs, ","))
	}

	path := "/amenities"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var resp model.AmenitiesResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Amenities, nil
}

// Categories lists the amenity categories.
func (c *Client) Categories(ctx context.Context) ([]*model.Category, error) {
	var resp model.CategoriesResponse
	err := c.do(ctx, http.MethodGet, "/categories", nil, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Categories, nil
}

// Put writes data to the presigned URL of cred. Any network failure or
// non-2xx answer from storage wraps upload.ErrTransport.
func (c *Client) Put(ctx context.Context, cred *model.UploadCredential, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, cred.PresignedURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %w", upload.ErrTransport, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = int64(len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", upload.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: storage returned %d: %s", upload.ErrTransport, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", upload.ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %w", upload.ErrTransport, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}

	if out == nil {
		return nil
	}
	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	apiErr := &APIError{Status: status}

	var body model.ErrorResponse
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Error
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	}

	if status >= http.StatusInternalServerError && apiErr.Code == "" {
		return errors.Join(upload.ErrTransport, apiErr)
	}
	return apiErr
}
