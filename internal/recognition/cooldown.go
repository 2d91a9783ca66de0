package recognition

import (
	"time"
)

// CooldownCache remembers when each plate was last accepted. It is not safe
// for concurrent use; one aggregator owns it for a processing session.
type CooldownCache struct {
	window time.Duration
	seen   map[string]time.Time
}

func NewCooldownCache(window time.Duration) *CooldownCache {
	return &CooldownCache{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// Admit reports whether plate may be accepted at now and, if so, records now
// as its last accepted time.
func (c *CooldownCache) Admit(plate string, now time.Time) bool {
	if last, ok := c.seen[plate]; ok && now.Sub(last) < c.window {
		return false
	}
	c.seen[plate] = now
	return true
}

// Last returns the last accepted time of plate.
func (c *CooldownCache) Last(plate string) (time.Time, bool) {
	t, ok := c.seen[plate]
	return t, ok
}

// Prune drops entries whose window has elapsed at now and returns how many
// were removed.
func (c *CooldownCache) Prune(now time.Time) int {
	removed := 0
	for plate, last := range c.seen {
		if now.Sub(last) >= c.window {
			delete(c.seen, plate)
			removed++
		}
	}
	return removed
}

func (c *CooldownCache) Len() int {
	return len(c.seen)
}
