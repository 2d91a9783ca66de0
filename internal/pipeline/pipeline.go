// Package pipeline runs the frame loop: read a frame, recognise text,
// aggregate plate candidates and hand accepted detections to the sink.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"time"

	"lpr-service/internal/domain/anpr"
)

// Engine extracts text fragments from a frame.
type Engine interface {
	Recognize(ctx context.Context, frame image.Image) ([]anpr.Fragment, error)
}

// Source yields frames in capture order and returns io.EOF at end of stream.
type Source interface {
	Read(ctx context.Context) (image.Image, error)
	Close() error
}

// Sink persists accepted detections. service.DetectionService implements it.
type Sink interface {
	RecordDetection(ctx context.Context, rec anpr.DetectionRecord) (*anpr.ProcessResult, error)
	PlateIsKnown(ctx context.Context, plate string) (*anpr.VehicleRecord, error)
	TodayStats(ctx context.Context) (*anpr.TodayStats, error)
}

type SnapshotSaver interface {
	Save(frame image.Image, plate string, anchor anpr.Polygon, known bool, at time.Time) (string, error)
}

type Renderer interface {
	Render(frame image.Image, overlay Overlay) ([]byte, error)
}

type Notifier interface {
	Notify(ctx context.Context, ev anpr.DetectionEvent) error
}

// Annotation is one detection drawn on the live frame.
type Annotation struct {
	Detection anpr.Detection
	Known     bool
	Saved     bool
}

type Overlay struct {
	FrameNumber  int64
	Annotations  []Annotation
	TodayTotal   int64
	UniquePlates int
}

// Label is the overlay caption, e.g. "ABC1D23 (MERCOSUL_CAR) 97% - SALVO".
func (a Annotation) Label() string {
	label := fmt.Sprintf("%s (%s) %.0f%%", a.Detection.Plate, a.Detection.Category, a.Detection.Confidence*100)
	if a.Saved {
		label += " - SALVO"
	}
	return label
}

// Highlighted reports whether the annotation is drawn in the accent colour.
func (a Annotation) Highlighted() bool {
	return a.Saved || a.Known
}

// Header is the overlay status line.
func (o Overlay) Header() string {
	return fmt.Sprintf("Hoje: %d deteccoes | %d placas | Frame %d", o.TodayTotal, o.UniquePlates, o.FrameNumber)
}
