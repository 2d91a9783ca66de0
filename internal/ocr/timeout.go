package ocr

import (
	"context"
	"image"
	"time"

	"lpr-service/internal/domain/anpr"
)

type Engine interface {
	Recognize(ctx context.Context, frame image.Image) ([]anpr.Fragment, error)
}

type timeoutEngine struct {
	next    Engine
	timeout time.Duration
}

// WithTimeout bounds every Recognize call. A non-positive timeout returns
// next unchanged.
func WithTimeout(next Engine, timeout time.Duration) Engine {
	if timeout <= 0 {
		return next
	}
	return &timeoutEngine{next: next, timeout: timeout}
}

func (e *timeoutEngine) Recognize(ctx context.Context, frame image.Image) ([]anpr.Fragment, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.next.Recognize(ctx, frame)
}
