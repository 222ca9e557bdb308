package validation

import (
	"errors"
	"fmt"
	"net/http"
	"path"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrInvalidType = errors.New("invalid file type")
	ErrTooLarge    = errors.New("file too large")
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes map[string]bool
	MaxSize          int64
}

var (
	// ImageConstraints defines validation rules for amenity photos
	ImageConstraints = FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/webp": true,
		},
		MaxSize: 5 << 20, // 5MB
	}
)

// AllowedImageTypes lists the accepted image content types in a stable order.
func AllowedImageTypes() []string {
	return []string{"image/jpeg", "image/png", "image/webp"}
}

// ValidateImage checks a declared content type and size against ImageConstraints.
func ValidateImage(contentType string, size int64) error {
	return validateAgainstConstraint(contentType, size, ImageConstraints)
}

func validateAgainstConstraint(contentType string, size int64, constraints FileConstraints) error {
	if !constraints.AllowedMimeTypes[contentType] {
		return fmt.Errorf("%w: %q (allowed: %s)", ErrInvalidType, contentType, strings.Join(AllowedImageTypes(), ", "))
	}

	if size > constraints.MaxSize {
		maxMB := constraints.MaxSize / (1 << 20)
		return fmt.Errorf("%w: maximum size is %d MB", ErrTooLarge, maxMB)
	}

	return nil
}

// DetectImageType sniffs the content type from the first bytes of data.
// Returns "" when the bytes are not one of the allowed image types.
func DetectImageType(data []byte) string {
	n := min(len(data), 512)
	detected := http.DetectContentType(data[:n])
	if !ImageConstraints.AllowedMimeTypes[detected] {
		return ""
	}
	return detected
}

const maxSanitizedNameLen = 50

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeFilename splits a user supplied filename into a storage-safe stem
// and a lower-cased extension. Accents are folded to ASCII before any
// remaining character outside [a-zA-Z0-9_-] is replaced by "_". The stem is
// capped at 50 characters. The extension defaults to "jpg".
func SanitizeFilename(filename string) (stem, ext string) {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))

	ext = "jpg"
	if i := strings.LastIndex(base, "."); i >= 0 {
		if e := strings.ToLower(base[i+1:]); e != "" {
			ext = unsafeNameChars.ReplaceAllString(e, "")
		}
		base = base[:i]
	}
	if ext == "" {
		ext = "jpg"
	}

	stem = SanitizeSegment(base)
	if len(stem) > maxSanitizedNameLen {
		stem = stem[:maxSanitizedNameLen]
	}
	return stem, ext
}

// SanitizeSegment folds s to ASCII and replaces unsafe characters with "_".
func SanitizeSegment(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return unsafeNameChars.ReplaceAllString(folded, "_")
}
