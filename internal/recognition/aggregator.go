package recognition

import (
	"time"

	"lpr-service/internal/domain/anpr"
	"lpr-service/internal/utils"
)

type Thresholds struct {
	CarFloor  float64
	MotoFloor float64
	Cooldown  time.Duration
}

// Aggregator derives the detections of one frame at a time. Frames must be
// fed in capture order from a single goroutine.
type Aggregator struct {
	thresholds Thresholds
	cooldown   *CooldownCache
}

func NewAggregator(t Thresholds) *Aggregator {
	return &Aggregator{
		thresholds: t,
		cooldown:   NewCooldownCache(t.Cooldown),
	}
}

func (a *Aggregator) Thresholds() Thresholds {
	return a.thresholds
}

func (a *Aggregator) Cooldown() *CooldownCache {
	return a.cooldown
}

// Aggregate returns every plate seen in fragments: single-line plates first,
// then two-fragment combinations. Detections still inside their cooldown
// window are returned with NewlyAccepted false.
func (a *Aggregator) Aggregate(fragments []anpr.Fragment, now time.Time) []anpr.Detection {
	type eligible struct {
		index    int
		fragment anpr.Fragment
		text     string
	}

	kept := make([]eligible, 0, len(fragments))
	for i, f := range fragments {
		if f.Confidence >= a.thresholds.CarFloor {
			kept = append(kept, eligible{index: i, fragment: f, text: utils.NormalizePlate(f.Text)})
		}
	}

	var detections []anpr.Detection

	for _, e := range kept {
		plate, category, ok := Validate(e.fragment.Text, false)
		if !ok {
			continue
		}
		detections = append(detections, a.admit(anpr.Candidate{
			Plate:      plate,
			Category:   category,
			Confidence: e.fragment.Confidence,
			Anchor:     e.fragment.Polygon,
		}, now, e.index))
	}

	for i := 0; i < len(kept); i++ {
		first := kept[i]
		for j := i + 1; j < len(kept); j++ {
			second := kept[j]

			plate, category, ok := Validate(first.text+second.text, true)
			if !ok {
				continue
			}

			confidence := (first.fragment.Confidence + second.fragment.Confidence) / 2
			if confidence < a.thresholds.MotoFloor {
				continue
			}

			detections = append(detections, a.admit(anpr.Candidate{
				Plate:      plate,
				Category:   category,
				Confidence: confidence,
				Anchor:     first.fragment.Polygon,
			}, now, first.index, second.index))
			break
		}
	}

	return detections
}

func (a *Aggregator) admit(c anpr.Candidate, now time.Time, fragments ...int) anpr.Detection {
	return anpr.Detection{
		Candidate:     c,
		NewlyAccepted: a.cooldown.Admit(c.Plate, now),
		Fragments:     fragments,
	}
}
