package processing

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/menta2k/body-analyzer/pkg/types"
)

// createTestImage creates a simple test image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Fill with a gradient pattern
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			b := uint8(128)
			img.Set(x, y, color.RGBA{r, g, b, 255})
		}
	}

	return img
}

func TestNewProcessor(t *testing.T) {
	p := NewProcessor()
	if p == nil {
		t.Fatal("NewProcessor() returned nil")
	}
	if p.config.MinImageSize != 100 {
		t.Errorf("Expected min size 100, got %d", p.config.MinImageSize)
	}

	p = NewProcessorWithConfig(Config{MinImageSize: 200})
	if p.config.MinImageSize != 200 {
		t.Errorf("Expected min size 200, got %d", p.config.MinImageSize)
	}
}

func TestGetImageInfo(t *testing.T) {
	p := NewProcessor()
	info := p.GetImageInfo(createTestImage(400, 300))

	if info.Width != 400 || info.Height != 300 {
		t.Errorf("Expected 400x300, got %dx%d", info.Width, info.Height)
	}
	if expected := 400.0 / 300.0; info.AspectRatio != expected {
		t.Errorf("Expected aspect ratio %f, got %f", expected, info.AspectRatio)
	}
}

func TestValidateImage(t *testing.T) {
	p := NewProcessor()

	if err := p.ValidateImage(createTestImage(400, 300)); err != nil {
		t.Errorf("Valid image failed validation: %v", err)
	}
	if err := p.ValidateImage(createTestImage(50, 50)); err == nil {
		t.Error("Small image should fail validation")
	}
}

func TestPrepareImageForModel(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(800, 1600)

	tests := []struct {
		name          string
		format        string
		maxDim        int
		width, height int
	}{
		{"jpeg resized", "jpg", 400, 200, 400},
		{"png resized", "png", 800, 400, 800},
		{"original size", "jpg", 0, 800, 1600},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b64, err := p.PrepareImageForModel(img, tt.format, tt.maxDim, 85)
			if err != nil {
				t.Fatalf("PrepareImageForModel failed: %v", err)
			}
			data, err := base64.StdEncoding.DecodeString(b64)
			if err != nil {
				t.Fatalf("Invalid base64: %v", err)
			}
			cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
			if err != nil {
				t.Fatalf("Invalid image data: %v", err)
			}
			if cfg.Width != tt.width || cfg.Height != tt.height {
				t.Errorf("Expected %dx%d, got %dx%d", tt.width, tt.height, cfg.Width, cfg.Height)
			}
			want := "jpeg"
			if tt.format == "png" {
				want = "png"
			}
			if format != want {
				t.Errorf("Expected %s, got %s", want, format)
			}
		})
	}
}

func TestSaveAndLoadImage(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(320, 240)
	dir := t.TempDir()

	for _, format := range []string{"jpg", "png", "webp"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(dir, "photo."+format)
			if err := p.SaveImage(img, path, format, 90, false); err != nil {
				t.Fatalf("SaveImage failed: %v", err)
			}
			loaded, err := p.LoadImageSmart(context.Background(), path)
			if err != nil {
				t.Fatalf("LoadImageSmart failed: %v", err)
			}
			if b := loaded.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
				t.Errorf("Expected 320x240, got %dx%d", b.Dx(), b.Dy())
			}
		})
	}

	if _, err := p.LoadImage(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestReadImageSize(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(180, 320)
	dir := t.TempDir()

	for _, format := range []string{"jpg", "png", "webp"} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(dir, "portrait."+format)
			if err := p.SaveImage(img, path, format, 90, false); err != nil {
				t.Fatalf("SaveImage failed: %v", err)
			}
			w, h, err := p.ReadImageSize(path)
			if err != nil {
				t.Fatalf("ReadImageSize failed: %v", err)
			}
			if w != 180 || h != 320 {
				t.Errorf("Expected 180x320, got %dx%d", w, h)
			}
		})
	}

	if _, _, err := p.ReadImageSize(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadImageFromURL(t *testing.T) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, createTestImage(300, 600), nil); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/photo.jpg":
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(buf.Bytes())
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := NewProcessor()
	img, err := p.LoadImageSmart(context.Background(), server.URL+"/photo.jpg")
	if err != nil {
		t.Fatalf("LoadImageSmart failed: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 300 || b.Dy() != 600 {
		t.Errorf("Expected 300x600, got %dx%d", b.Dx(), b.Dy())
	}

	for _, path := range []string{"/page", "/missing.jpg"} {
		if _, err := p.LoadImageFromURL(context.Background(), server.URL+path); err == nil {
			t.Errorf("Expected error for %s", path)
		}
	}
	if _, err := p.LoadImageFromURL(context.Background(), "ftp://example.com/a.jpg"); err == nil {
		t.Error("Expected error for ftp scheme")
	}
}

func TestCreateDebugOverlay(t *testing.T) {
	p := NewProcessor()
	img := image.NewNRGBA(image.Rect(0, 0, 200, 400))

	points := make([]types.Landmark, types.NumLandmarks)
	for i := range points {
		points[i] = types.Landmark{X: math.NaN(), Y: math.NaN()}
	}
	points[23] = types.Landmark{X: 0.25, Y: 0.5}
	points[24] = types.Landmark{X: 0.75, Y: 0.5}
	set := &types.LandmarkSet{Points: points}
	pairs := map[types.Site][2]int{types.SiteWaist: {23, 24}, types.SiteArm: {11, 13}}

	overlay := p.CreateDebugOverlay(img, set, pairs)
	nrgba, ok := overlay.(*image.NRGBA)
	if !ok {
		t.Fatalf("Expected *image.NRGBA, got %T", overlay)
	}

	// Midpoint of the waist span is drawn
	if c := nrgba.NRGBAAt(100, 200); c.A == 0 {
		t.Error("Expected waist span drawn at the midpoint")
	}
	// Landmark cross is drawn at the left hip
	if c := nrgba.NRGBAAt(50, 200+2); c.G != 255 {
		t.Errorf("Expected landmark cross at the left hip, got %v", c)
	}
	// Source image is untouched
	if img.NRGBAAt(100, 200).A != 0 {
		t.Error("CreateDebugOverlay modified the source image")
	}

	empty := p.CreateDebugOverlay(img, &types.LandmarkSet{}, pairs)
	if empty.(*image.NRGBA).NRGBAAt(100, 200).A != 0 {
		t.Error("Expected no drawing for an empty landmark set")
	}
}

func BenchmarkPrepareImageForModel(b *testing.B) {
	p := NewProcessor()
	img := createTestImage(1200, 2400)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = p.PrepareImageForModel(img, "jpg", 1536, 85)
	}
}
