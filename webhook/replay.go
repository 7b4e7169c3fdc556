package webhook

import (
	"fmt"
	"time"
)

const defaultFreshnessWindow = 5 * time.Minute

// ReplayGuard rejects deliveries whose event timestamp is older than
// the freshness window. The window bounds how long a captured payload
// with a valid signature stays usable.
type ReplayGuard struct {
	Window time.Duration
	Now    func() time.Time
}

func NewReplayGuard(window time.Duration) *ReplayGuard {
	if window <= 0 {
		window = defaultFreshnessWindow
	}
	return &ReplayGuard{
		Window: window,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Check returns an event-expired error when now minus the event
// timestamp exceeds the window. Exactly at the boundary is accepted.
func (g *ReplayGuard) Check(createdAt time.Time) error {
	if g == nil {
		return webhookInternal("webhook: replay guard is not configured", nil)
	}
	if createdAt.IsZero() {
		return webhookBadInput("webhook: event created_at is required", nil)
	}
	window := g.Window
	if window <= 0 {
		window = defaultFreshnessWindow
	}
	age := g.now().Sub(createdAt.UTC())
	if age > window {
		return webhookEventExpired(
			fmt.Sprintf("webhook: event expired, age %s exceeds window %s", age, window),
			map[string]any{"age_ms": age.Milliseconds(), "window_ms": window.Milliseconds()},
		)
	}
	return nil
}

func (g *ReplayGuard) now() time.Time {
	if g != nil && g.Now != nil {
		return g.Now().UTC()
	}
	return time.Now().UTC()
}
