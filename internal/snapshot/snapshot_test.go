package snapshot

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"lpr-service/internal/domain/anpr"
)

func TestCropRect(t *testing.T) {
	bounds := image.Rect(0, 0, 640, 480)
	tests := []struct {
		name   string
		anchor anpr.Polygon
		want   image.Rectangle
	}{
		{"inside", anpr.RectPolygon(100, 100, 200, 140), image.Rect(90, 90, 210, 150)},
		{"clamped top-left", anpr.RectPolygon(3, 4, 50, 30), image.Rect(0, 0, 60, 40)},
		{"clamped bottom-right", anpr.RectPolygon(600, 450, 635, 478), image.Rect(590, 440, 640, 480)},
		{"fractional", anpr.RectPolygon(100.4, 100.6, 199.2, 139.1), image.Rect(90, 90, 210, 150)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CropRect(tt.anchor, 10, bounds); got != tt.want {
				t.Errorf("CropRect() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 3, 10, 8, 5, 9, 0, time.UTC)
	if got := FileName("ABC1D23", at); got != "ABC1D23_20250310_080509.jpg" {
		t.Errorf("FileName() = %q", got)
	}
}

func TestSaveKnownAndUnknown(t *testing.T) {
	root := t.TempDir()
	store, err := New(Options{
		KnownDir:   filepath.Join(root, "known"),
		UnknownDir: filepath.Join(root, "unknown"),
		Margin:     10,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 320, 240))
	at := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	path, err := store.Save(frame, "ABC1234", anpr.RectPolygon(100, 100, 200, 140), true, at)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Dir(path) != filepath.Join(root, "known") {
		t.Errorf("path = %s, want known dir", path)
	}

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 60 {
		t.Errorf("crop size = %dx%d, want 120x60", b.Dx(), b.Dy())
	}

	path, err = store.Save(frame, "XYZ1D23", anpr.RectPolygon(10, 10, 50, 30), false, at)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "unknown", "XYZ1D23_20250310_080000.jpg")); err != nil {
		t.Errorf("unknown snapshot missing: %v (path %s)", err, path)
	}
}

func TestSaveOutsideFrame(t *testing.T) {
	root := t.TempDir()
	store, _ := New(Options{KnownDir: root, UnknownDir: root, Margin: 10})

	_, err := store.Save(image.NewRGBA(image.Rect(0, 0, 100, 100)), "ABC1234", anpr.RectPolygon(500, 500, 600, 550), false, time.Now())
	if err == nil {
		t.Error("expected error for a plate outside the frame")
	}
}
