// Package ocr adapts cloud text-detection APIs to pipeline.Engine.
package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"lpr-service/internal/domain/anpr"
)

const jpegQuality = 90

func encodeJPEG(frame image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// clampConfidence maps a 0-100 score onto [0,1].
func clampConfidence(percent float64) float64 {
	c := percent / 100
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func polygonFromPoints(pts []anpr.Point) (anpr.Polygon, bool) {
	if len(pts) != 4 {
		return anpr.Polygon{}, false
	}
	return anpr.Polygon{pts[0], pts[1], pts[2], pts[3]}, true
}
