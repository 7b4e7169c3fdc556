package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// MemoryIdempotencyLedger keeps claimed event ids in process memory.
// Meant for tests and single-node setups; production deployments use
// the database-backed ledger so claims survive restarts.
type MemoryIdempotencyLedger struct {
	mu      sync.Mutex
	entries map[string]time.Time
	Now     func() time.Time
}

func NewMemoryIdempotencyLedger() *MemoryIdempotencyLedger {
	return &MemoryIdempotencyLedger{
		entries: map[string]time.Time{},
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (l *MemoryIdempotencyLedger) Claim(_ context.Context, eventID string) (bool, error) {
	if l == nil {
		return false, fmt.Errorf("core: idempotency ledger is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, fmt.Errorf("core: event id is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[eventID]; ok {
		return false, nil
	}
	l.entries[eventID] = l.now()
	return true, nil
}

// ClaimedAt reports when an event id was first claimed.
func (l *MemoryIdempotencyLedger) ClaimedAt(eventID string) (time.Time, bool) {
	if l == nil {
		return time.Time{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	at, ok := l.entries[strings.TrimSpace(eventID)]
	return at, ok
}

func (l *MemoryIdempotencyLedger) now() time.Time {
	if l != nil && l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

var _ IdempotencyLedger = (*MemoryIdempotencyLedger)(nil)
