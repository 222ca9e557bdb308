package model

import (
	"time"
)

// Image is the persisted metadata of an object already written to storage.
type Image struct {
	ID           string    `db:"id" json:"id"`
	AmenityID    string    `db:"amenity_id" json:"amenity_id"`
	R2Key        string    `db:"r2_key" json:"r2_key"`
	CDNURL       string    `db:"cdn_url" json:"cdn_url"`
	Filename     string    `db:"filename" json:"filename"`
	ContentType  string    `db:"content_type" json:"content_type"`
	FileSize     int64     `db:"file_size" json:"file_size"`
	Width        *int      `db:"width" json:"width"`
	Height       *int      `db:"height" json:"height"`
	DisplayOrder int       `db:"display_order" json:"display_order"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ImageDescriptor describes one uploaded object the client asks the server
// to attach to an amenity.
type ImageDescriptor struct {
	R2Key        string `json:"r2Key"`
	CDNURL       string `json:"cdnUrl"`
	Filename     string `json:"filename"`
	ContentType  string `json:"contentType"`
	FileSize     int64  `json:"fileSize"`
	Width        *int   `json:"width,omitempty"`
	Height       *int   `json:"height,omitempty"`
	DisplayOrder int    `json:"displayOrder"`
}

// UploadCredential is a short-lived, single-key write capability.
type UploadCredential struct {
	PresignedURL string `json:"presignedUrl"`
	R2Key        string `json:"r2Key"`
	CDNURL       string `json:"cdnUrl"`
	ExpiresIn    int    `json:"expiresIn"` // seconds
}
