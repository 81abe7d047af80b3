package assets

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNewResampler_Defaults(t *testing.T) {
	r := NewResampler(0, 0)
	if r.MaxWidth != DefaultMaxWidth {
		t.Errorf("MaxWidth = %d, want %d", r.MaxWidth, DefaultMaxWidth)
	}
	if r.Quality != DefaultQuality {
		t.Errorf("Quality = %d, want %d", r.Quality, DefaultQuality)
	}
}

func TestResampler_Resample(t *testing.T) {
	r := NewResampler(100, 85)

	tests := []struct {
		name       string
		width      int
		height     int
		wantWidth  int
		wantHeight int
	}{
		{
			name:       "Wider than max is scaled down",
			width:      400,
			height:     200,
			wantWidth:  100,
			wantHeight: 50,
		},
		{
			name:       "Narrower than max keeps size",
			width:      80,
			height:     120,
			wantWidth:  80,
			wantHeight: 120,
		},
		{
			name:       "Exactly max keeps size",
			width:      100,
			height:     30,
			wantWidth:  100,
			wantHeight: 30,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := r.Resample(encodePNG(t, tt.width, tt.height))
			if err != nil {
				t.Fatalf("Resample() error = %v", err)
			}

			cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
			if err != nil {
				t.Fatalf("Resample() output is not a JPEG: %v", err)
			}
			if cfg.Width != tt.wantWidth || cfg.Height != tt.wantHeight {
				t.Errorf("Resample() size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestResampler_Resample_InvalidData(t *testing.T) {
	r := NewResampler(100, 85)
	if _, err := r.Resample([]byte("definitely not an image")); err == nil {
		t.Error("Expected error for undecodable data, got nil")
	}
}

// withDimensions rewrites the IHDR size of a PNG, leaving the pixel data untouched.
func withDimensions(t *testing.T, data []byte, width, height uint32) []byte {
	t.Helper()
	out := bytes.Clone(data)
	// 8-byte signature, 4-byte length, then "IHDR" and its 13 data bytes.
	if string(out[12:16]) != "IHDR" {
		t.Fatalf("unexpected chunk %q", out[12:16])
	}
	binary.BigEndian.PutUint32(out[16:20], width)
	binary.BigEndian.PutUint32(out[20:24], height)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestResampler_Resample_RejectsOversizedImages(t *testing.T) {
	r := NewResampler(100, 85)
	huge := withDimensions(t, encodePNG(t, 2, 2), 100_000, 100_000)

	out, err := r.Resample(huge)
	if !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
	if out != nil {
		t.Error("expected no output for a rejected image")
	}
}
