// Package notify fans detection events out to external subscribers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"lpr-service/internal/domain/anpr"
)

type Notifier interface {
	Notify(ctx context.Context, ev anpr.DetectionEvent) error
}

// Multi delivers each event to every notifier and joins their errors.
type Multi struct {
	notifiers []Notifier
	log       zerolog.Logger
}

func NewMulti(log zerolog.Logger, notifiers ...Notifier) *Multi {
	return &Multi{
		notifiers: notifiers,
		log:       log.With().Str("component", "notify").Logger(),
	}
}

func (m *Multi) Add(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

func (m *Multi) Len() int {
	return len(m.notifiers)
}

func (m *Multi) Notify(ctx context.Context, ev anpr.DetectionEvent) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		m.log.Debug().Str("event_id", ev.ID).Str("plate", ev.Plate).Int("targets", len(m.notifiers)).Msg("event delivered")
	}
	return errors.Join(errs...)
}

func encode(ev anpr.DetectionEvent) ([]byte, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return body, nil
}
