// Package tesseract runs local OCR through gosseract. It needs the
// tesseract and leptonica native libraries.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"lpr-service/internal/domain/anpr"
)

type Options struct {
	Languages []string
	Whitelist string
}

// Engine is safe for concurrent use; calls are serialised on one client.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
}

func New(opts Options) (*Engine, error) {
	client := gosseract.NewClient()

	langs := opts.Languages
	if len(langs) == 0 {
		langs = []string{"eng"}
	}
	if err := client.SetLanguage(langs...); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to set page segmentation: %w", err)
	}
	if opts.Whitelist != "" {
		if err := client.SetWhitelist(opts.Whitelist); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	_ = client.SetVariable("load_system_dawg", "false")
	_ = client.SetVariable("load_freq_dawg", "false")

	return &Engine{client: client}, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.client.Close()
}

// Recognize returns one fragment per text line found in the frame.
func (e *Engine) Recognize(ctx context.Context, frame image.Image) ([]anpr.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, frame, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}
	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("failed to get boxes: %w", err)
	}

	fragments := make([]anpr.Fragment, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		r := box.Box
		fragments = append(fragments, anpr.Fragment{
			Text:       text,
			Polygon:    anpr.RectPolygon(float64(r.Min.X), float64(r.Min.Y), float64(r.Max.X), float64(r.Max.Y)),
			Confidence: min(max(box.Confidence/100, 0), 1),
		})
	}
	return fragments, nil
}
