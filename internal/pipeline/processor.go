package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"lpr-service/internal/domain/anpr"
	"lpr-service/internal/recognition"
)

type Config struct {
	Thresholds  recognition.Thresholds
	FrameStride int
	// Origin is stored with every detection, e.g. WEBCAM or VIDEO.
	Origin     string
	PruneEvery time.Duration
}

// Deps are the processor collaborators. Snapshots, Renderer, Notifier and
// Live are optional.
type Deps struct {
	Source    Source
	Engine    Engine
	Sink      Sink
	Snapshots SnapshotSaver
	Renderer  Renderer
	Notifier  Notifier
	Live      *LiveState
}

type PlateSummary struct {
	Plate          string        `json:"plate" yaml:"plate"`
	Category       anpr.Category `json:"category" yaml:"category"`
	Count          int           `json:"count" yaml:"count"`
	BestConfidence float64       `json:"best_confidence" yaml:"best_confidence"`
	Known          bool          `json:"known" yaml:"known"`
}

// Summary describes a finished run.
type Summary struct {
	SessionID string                   `json:"session_id" yaml:"session_id"`
	Frames    int64                    `json:"frames" yaml:"frames"`
	Processed int64                    `json:"processed" yaml:"processed"`
	Accepted  int64                    `json:"accepted" yaml:"accepted"`
	Plates    map[string]*PlateSummary `json:"plates" yaml:"plates"`
	Started   time.Time                `json:"started" yaml:"started"`
	Finished  time.Time                `json:"finished" yaml:"finished"`
}

type Processor struct {
	cfg        Config
	deps       Deps
	aggregator *recognition.Aggregator
	sessionID  string
	log        zerolog.Logger
	now        func() time.Time

	known     map[string]bool
	stats     anpr.TodayStats
	lastPrune time.Time
}

func NewProcessor(cfg Config, deps Deps, log zerolog.Logger) *Processor {
	if cfg.FrameStride < 1 {
		cfg.FrameStride = 1
	}
	if cfg.PruneEvery <= 0 {
		cfg.PruneEvery = time.Minute
	}
	sessionID := uuid.NewString()
	return &Processor{
		cfg:        cfg,
		deps:       deps,
		aggregator: recognition.NewAggregator(cfg.Thresholds),
		sessionID:  sessionID,
		log: log.With().
			Str("component", "pipeline").
			Str("session_id", sessionID).
			Str("origin", cfg.Origin).
			Logger(),
		now:   time.Now,
		known: make(map[string]bool),
	}
}

func (p *Processor) SessionID() string {
	return p.sessionID
}

// Start runs the processor in its own goroutine and hands the result to
// done. The returned channel is closed after Run has returned and done has
// been called, so the source and engine may be closed once it is.
func (p *Processor) Start(ctx context.Context, done func(*Summary, error)) <-chan struct{} {
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		summary, err := p.Run(ctx)
		if done != nil {
			done(summary, err)
		}
	}()
	return finished
}

// Run processes frames until the source ends, the context is cancelled or
// the source fails. Per-frame failures are logged and skipped.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		SessionID: p.sessionID,
		Plates:    make(map[string]*PlateSummary),
		Started:   p.now(),
	}
	defer func() { summary.Finished = p.now() }()

	if p.deps.Live != nil {
		p.deps.Live.start(p.sessionID, p.cfg.Origin)
		defer p.deps.Live.stop()
	}
	p.refreshStats(ctx)
	p.lastPrune = p.now()

	p.log.Info().
		Float64("car_floor", p.cfg.Thresholds.CarFloor).
		Float64("moto_floor", p.cfg.Thresholds.MotoFloor).
		Dur("cooldown", p.cfg.Thresholds.Cooldown).
		Int("frame_stride", p.cfg.FrameStride).
		Msg("processing started")

	for {
		if ctx.Err() != nil {
			p.log.Info().Int64("frames", summary.Frames).Msg("processing cancelled")
			return summary, nil
		}

		frame, err := p.deps.Source.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.log.Info().Int64("frames", summary.Frames).Int64("accepted", summary.Accepted).Msg("end of stream")
				return summary, nil
			}
			if ctx.Err() != nil {
				return summary, nil
			}
			return summary, fmt.Errorf("failed to read frame: %w", err)
		}

		summary.Frames++
		var annotations []Annotation
		if summary.Frames%int64(p.cfg.FrameStride) == 0 {
			summary.Processed++
			annotations = p.processFrame(ctx, frame, summary)
		}
		p.publishFrame(frame, summary.Frames, annotations)
	}
}

func (p *Processor) processFrame(ctx context.Context, frame image.Image, summary *Summary) []Annotation {
	fragments, err := p.deps.Engine.Recognize(ctx, frame)
	if err != nil {
		p.log.Error().Err(err).Int64("frame", summary.Frames).Msg("ocr failed")
		return nil
	}

	now := p.now()
	if now.Sub(p.lastPrune) >= p.cfg.PruneEvery {
		if n := p.aggregator.Cooldown().Prune(now); n > 0 {
			p.log.Debug().Int("pruned", n).Msg("cooldown entries expired")
		}
		p.lastPrune = now
	}

	detections := p.aggregator.Aggregate(fragments, now)
	annotations := make([]Annotation, 0, len(detections))
	for _, d := range detections {
		a := Annotation{Detection: d, Known: p.isKnown(ctx, d.Plate, d.NewlyAccepted)}
		if d.NewlyAccepted {
			a.Saved = p.accept(ctx, frame, d, a.Known, fragments, summary, now)
		}
		annotations = append(annotations, a)
	}
	return annotations
}

// isKnown caches registry lookups per plate; a fresh acceptance refreshes the
// cached answer.
func (p *Processor) isKnown(ctx context.Context, plate string, refresh bool) bool {
	if known, ok := p.known[plate]; ok && !refresh {
		return known
	}
	rec, err := p.deps.Sink.PlateIsKnown(ctx, plate)
	if err != nil {
		p.log.Error().Err(err).Str("plate", plate).Msg("failed to look up plate")
		return false
	}
	p.known[plate] = rec != nil
	return rec != nil
}

func (p *Processor) accept(ctx context.Context, frame image.Image, d anpr.Detection, known bool, fragments []anpr.Fragment, summary *Summary, now time.Time) bool {
	var imagePath string
	if p.deps.Snapshots != nil {
		path, err := p.deps.Snapshots.Save(frame, d.Plate, d.Anchor, known, now)
		if err != nil {
			p.log.Error().Err(err).Str("plate", d.Plate).Msg("failed to save snapshot")
		} else {
			imagePath = path
		}
	}

	used := make([]anpr.Fragment, 0, len(d.Fragments))
	for _, i := range d.Fragments {
		used = append(used, fragments[i])
	}

	res, err := p.deps.Sink.RecordDetection(ctx, anpr.DetectionRecord{
		Plate:       d.Plate,
		Category:    d.Category,
		Confidence:  d.Confidence,
		FrameNumber: summary.Frames,
		Source:      p.cfg.Origin,
		SessionID:   p.sessionID,
		ImagePath:   imagePath,
		Fragments:   used,
		DetectedAt:  now,
	})
	if err != nil {
		p.log.Error().Err(err).Str("plate", d.Plate).Msg("failed to record detection")
		return false
	}

	summary.Accepted++
	ps, ok := summary.Plates[d.Plate]
	if !ok {
		ps = &PlateSummary{Plate: d.Plate, Category: d.Category}
		summary.Plates[d.Plate] = ps
	}
	ps.Count++
	ps.Known = known
	if d.Confidence > ps.BestConfidence {
		ps.BestConfidence = d.Confidence
		ps.Category = d.Category
	}

	ev := anpr.DetectionEvent{
		ID:          uuid.NewString(),
		AccessID:    res.Access.ID,
		Plate:       d.Plate,
		Category:    d.Category,
		Confidence:  d.Confidence,
		Known:       known,
		Source:      p.cfg.Origin,
		SessionID:   p.sessionID,
		FrameNumber: summary.Frames,
		ImagePath:   imagePath,
		Alerts:      res.Alerts,
		DetectedAt:  now,
	}
	if p.deps.Live != nil {
		p.deps.Live.detected(ev)
	}
	if p.deps.Notifier != nil {
		if err := p.deps.Notifier.Notify(ctx, ev); err != nil {
			p.log.Error().Err(err).Str("plate", d.Plate).Msg("failed to publish detection")
		}
	}

	p.refreshStats(ctx)
	return true
}

func (p *Processor) refreshStats(ctx context.Context) {
	stats, err := p.deps.Sink.TodayStats(ctx)
	if err != nil {
		p.log.Warn().Err(err).Msg("failed to load today's stats")
		return
	}
	p.stats = *stats
}

func (p *Processor) publishFrame(frame image.Image, n int64, annotations []Annotation) {
	if p.deps.Live == nil {
		return
	}
	var jpeg []byte
	if p.deps.Renderer != nil {
		out, err := p.deps.Renderer.Render(frame, Overlay{
			FrameNumber:  n,
			Annotations:  annotations,
			TodayTotal:   p.stats.Total,
			UniquePlates: len(p.stats.UniquePlates),
		})
		if err != nil {
			p.log.Warn().Err(err).Int64("frame", n).Msg("failed to render frame")
		} else {
			jpeg = out
		}
	}
	p.deps.Live.frameDone(n, jpeg)
}
