// Package video reads frames and renders the live overlay with gocv. It
// needs the OpenCV native libraries.
package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"

	"lpr-service/internal/config"
)

const (
	maxReconnectAttempts = 5
	baseReconnectDelay   = time.Second
	maxReconnectDelay    = 30 * time.Second
)

// Source reads frames from a video file or a capture device.
type Source struct {
	open      func() (*gocv.VideoCapture, error)
	capture   *gocv.VideoCapture
	mat       gocv.Mat
	live      bool
	reconnect bool
	name      string
	log       zerolog.Logger
}

// Open opens the configured camera. Files end with io.EOF unless reconnect
// is set, in which case the file is reopened from the start.
func Open(cfg config.CameraConfig, log zerolog.Logger) (*Source, error) {
	s := &Source{
		reconnect: cfg.Reconnect,
		mat:       gocv.NewMat(),
	}
	switch cfg.Source {
	case "webcam":
		device := cfg.Device
		s.live = true
		s.name = fmt.Sprintf("device %d", device)
		s.open = func() (*gocv.VideoCapture, error) { return gocv.OpenVideoCapture(device) }
	default:
		path := cfg.File
		s.name = path
		s.open = func() (*gocv.VideoCapture, error) { return gocv.VideoCaptureFile(path) }
	}
	s.log = log.With().Str("component", "video").Str("camera", cfg.ID).Str("input", s.name).Logger()

	capture, err := s.open()
	if err != nil {
		s.mat.Close()
		return nil, fmt.Errorf("failed to open video capture %s: %w", s.name, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		s.mat.Close()
		return nil, fmt.Errorf("video capture %s is not open", s.name)
	}
	s.capture = capture
	s.log.Info().Bool("reconnect", s.reconnect).Msg("video source opened")
	return s, nil
}

func (s *Source) Read(ctx context.Context) (image.Image, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.capture.Read(&s.mat) && !s.mat.Empty() {
			img, err := s.mat.ToImage()
			if err != nil {
				return nil, fmt.Errorf("convert frame: %w", err)
			}
			return img, nil
		}

		if !s.reconnect {
			if !s.live {
				return nil, io.EOF
			}
			return nil, errors.New("camera read failed")
		}
		if !s.reopen(ctx) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("video source %s lost after %d reconnect attempts", s.name, maxReconnectAttempts)
		}
	}
}

// reopen retries with exponential backoff.
func (s *Source) reopen(ctx context.Context) bool {
	s.capture.Close()
	for attempt := 1; attempt <= maxReconnectAttempts; attempt++ {
		delay := backoff(attempt)
		s.log.Warn().Int("attempt", attempt).Dur("retry_in", delay).Msg("video source lost, reconnecting")

		select {
		case <-ctx.Done():
			return false
		case <-time.After(delay):
		}

		capture, err := s.open()
		if err == nil && capture.IsOpened() {
			s.capture = capture
			s.log.Info().Int("attempt", attempt).Msg("video source reconnected")
			return true
		}
		if capture != nil {
			capture.Close()
		}
	}
	return false
}

func backoff(attempt int) time.Duration {
	delay := baseReconnectDelay << (attempt - 1)
	if delay > maxReconnectDelay {
		return maxReconnectDelay
	}
	return delay
}

func (s *Source) Close() error {
	s.mat.Close()
	return s.capture.Close()
}
