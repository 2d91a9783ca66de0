// Package snapshot stores plate crops of accepted detections on disk.
package snapshot

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"lpr-service/internal/domain/anpr"
)

const timeLayout = "20060102_150405"

type Options struct {
	KnownDir   string
	UnknownDir string
	Margin     int
	Quality    int
}

// Store writes JPEG crops into the known or unknown directory.
type Store struct {
	opts Options
}

func New(opts Options) (*Store, error) {
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = 90
	}
	for _, dir := range []string{opts.KnownDir, opts.UnknownDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
		}
	}
	return &Store{opts: opts}, nil
}

// CropRect returns the polygon's bounding box grown by margin pixels and
// clipped to bounds.
func CropRect(anchor anpr.Polygon, margin int, bounds image.Rectangle) image.Rectangle {
	minX, minY, maxX, maxY := anchor.Bounds()
	r := image.Rect(
		int(math.Floor(minX))-margin,
		int(math.Floor(minY))-margin,
		int(math.Ceil(maxX))+margin,
		int(math.Ceil(maxY))+margin,
	)
	return r.Intersect(bounds)
}

func FileName(plate string, at time.Time) string {
	return fmt.Sprintf("%s_%s.jpg", plate, at.Format(timeLayout))
}

// Save crops the plate region and returns the written path.
func (s *Store) Save(frame image.Image, plate string, anchor anpr.Polygon, known bool, at time.Time) (string, error) {
	rect := CropRect(anchor, s.opts.Margin, frame.Bounds())
	if rect.Empty() {
		return "", fmt.Errorf("plate %s lies outside the frame", plate)
	}

	dir := s.opts.UnknownDir
	if known {
		dir = s.opts.KnownDir
	}
	path := filepath.Join(dir, FileName(plate, at))

	crop := imaging.Crop(frame, rect)
	if err := imaging.Save(crop, path, imaging.JPEGQuality(s.opts.Quality)); err != nil {
		return "", fmt.Errorf("save snapshot: %w", err)
	}
	return path, nil
}
