// Package ratelimit provides the best-effort sliding window used to cap
// per-recipient notification volume. Idempotency never rides on it.
package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

const defaultWindow = time.Minute
const defaultLimit = 100
const defaultMaxKeys = 8192

// MemoryWindow counts hits per key inside a sliding window. State is
// process-local; multi-instance deployments swap in a shared cache
// behind the same core.RateLimiter contract.
type MemoryWindow struct {
	mu      sync.Mutex
	window  time.Duration
	limit   int
	maxKeys int
	hits    map[string][]time.Time
	Now     func() time.Time
}

func NewMemoryWindow(window time.Duration, limit int) *MemoryWindow {
	return NewMemoryWindowWithLimits(window, limit, defaultMaxKeys)
}

func NewMemoryWindowWithLimits(window time.Duration, limit int, maxKeys int) *MemoryWindow {
	if window <= 0 {
		window = defaultWindow
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}
	return &MemoryWindow{
		window:  window,
		limit:   limit,
		maxKeys: maxKeys,
		hits:    map[string][]time.Time{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Allow records a hit for key and reports whether it stays within the
// limit. Hits older than the window are pruned before counting.
func (w *MemoryWindow) Allow(_ context.Context, key string) (bool, error) {
	if w == nil {
		return false, fmt.Errorf("ratelimit: window is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return false, fmt.Errorf("ratelimit: key is required")
	}
	now := w.now()
	cutoff := now.Add(-w.window)

	w.mu.Lock()
	defer w.mu.Unlock()

	recent := pruneBefore(w.hits[key], cutoff)
	if len(recent) >= w.limit {
		w.hits[key] = recent
		return false, nil
	}
	if len(recent) == 0 {
		w.enforceCapacityLocked(cutoff)
	}
	w.hits[key] = append(recent, now)
	return true, nil
}

func (w *MemoryWindow) now() time.Time {
	if w != nil && w.Now != nil {
		return w.Now().UTC()
	}
	return time.Now().UTC()
}

func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	if len(hits) == 0 {
		return nil
	}
	kept := hits[:0]
	for _, at := range hits {
		if at.After(cutoff) {
			kept = append(kept, at)
		}
	}
	return kept
}

func (w *MemoryWindow) enforceCapacityLocked(cutoff time.Time) {
	if len(w.hits) < w.maxKeys {
		return
	}
	for key, hits := range w.hits {
		if len(pruneBefore(hits, cutoff)) == 0 {
			delete(w.hits, key)
		}
	}
	for key := range w.hits {
		if len(w.hits) < w.maxKeys {
			break
		}
		delete(w.hits, key)
	}
}

var _ core.RateLimiter = (*MemoryWindow)(nil)
