// Package upload implements the client half of the image pipeline: local
// validation and recompression, per-image upload state and the orchestrator
// that pushes candidates to storage through presigned URLs.
package upload

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"path"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/templui/amenitymap/internal/validation"

	_ "golang.org/x/image/webp" // register the webp decoder with image.Decode
)

const (
	// MaxDimension is the longest edge, in pixels, of a recompressed image.
	MaxDimension = 1920

	// TargetSize is the byte budget recompression aims for.
	TargetSize = 1 << 20
)

var jpegQualities = []int{85, 75, 65, 55}

// File is a raw image picked by the user.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Prepare validates f against the image allow-set and size ceiling and, when
// it passes, recompresses it toward TargetSize. A failed or unprofitable
// recompression keeps the original bytes. The returned candidate is pending
// and owns a preview allocated from previews.
func Prepare(ctx context.Context, f File, previews *PreviewStore) (*Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	err := validation.ValidateImage(f.ContentType, int64(len(f.Data)))
	if err != nil {
		return nil, err
	}

	c := &Candidate{
		ID:           uuid.New().String(),
		Filename:     f.Name,
		ContentType:  f.ContentType,
		Data:         f.Data,
		OriginalSize: int64(len(f.Data)),
		State:        StatePending,
	}

	out, ok := compress(f.Data)
	if ok && len(out.data) < len(f.Data) {
		c.Data = out.data
		c.ContentType = "image/jpeg"
		c.Filename = jpegName(f.Name)
		c.Width, c.Height = out.width, out.height
	} else if w, h, ok := imageSize(f.Data); ok {
		c.Width, c.Height = w, h
	}
	c.Size = int64(len(c.Data))
	c.Preview = previews.Acquire(c.Data)

	return c, nil
}

type compressed struct {
	data          []byte
	width, height int
}

// compress fits the image inside MaxDimension and walks the JPEG quality
// ladder until the result fits TargetSize. ok is false when the input could
// not be decoded or encoded.
func compress(data []byte) (compressed, bool) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return compressed{}, false
	}

	fitted := imaging.Fit(img, MaxDimension, MaxDimension, imaging.Lanczos)
	w, h := fitted.Bounds().Dx(), fitted.Bounds().Dy()
	if !fitted.Opaque() {
		// JPEG has no alpha; flatten onto white instead of letting the encoder turn it black
		fitted = imaging.Overlay(imaging.New(w, h, color.White), fitted, image.Pt(0, 0), 1.0)
	}
	out := compressed{width: w, height: h}

	var buf bytes.Buffer
	for _, q := range jpegQualities {
		buf.Reset()
		if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(q)); err != nil {
			return out, false
		}
		if buf.Len() <= TargetSize {
			break
		}
	}

	out.data = bytes.Clone(buf.Bytes())
	return out, true
}

func jpegName(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return name + ".jpg"
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}

// imageSize reports the pixel dimensions of data without a full decode.
func imageSize(data []byte) (int, int, bool) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
