package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

const (
	DefaultMaxWidth = 1920
	DefaultQuality  = 85

	// MaxPixels bounds the decoded size of an input image, about 200 MB as RGBA.
	MaxPixels = 50_000_000
)

var ErrImageTooLarge = errors.New("image dimensions exceed the decode limit")

// Resampler shrinks images wider than MaxWidth, preserving aspect ratio, and re-encodes
// every image as JPEG at Quality.
type Resampler struct {
	MaxWidth int
	Quality  int
}

// NewResampler creates a Resampler, substituting defaults for non-positive values.
func NewResampler(maxWidth, quality int) *Resampler {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Resampler{MaxWidth: maxWidth, Quality: quality}
}

// Resample decodes data and returns the re-encoded JPEG bytes. Callers are expected to
// fall back to the original bytes when an error is returned.
func (r *Resampler) Resample(data []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("image has empty bounds %v", bounds)
	}

	var out image.Image = img
	if width > r.MaxWidth {
		scale := float64(r.MaxWidth) / float64(width)
		newHeight := int(float64(height)*scale + 0.5)
		if newHeight < 1 {
			newHeight = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, r.MaxWidth, newHeight))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		out = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: r.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
