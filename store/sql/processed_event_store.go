package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ProcessedEventStore is the database-backed idempotency ledger. The
// unique constraint on event_id is the dedupe mechanism: the insert
// that hits it lost the claim race.
type ProcessedEventStore struct {
	db *bun.DB
}

func NewProcessedEventStore(db *bun.DB) (*ProcessedEventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &ProcessedEventStore{db: db}, nil
}

func (s *ProcessedEventStore) Claim(ctx context.Context, eventID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: processed event store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return false, fmt.Errorf("sqlstore: event id is required")
	}

	record := &processedEventRecord{
		ID:          uuid.NewString(),
		EventID:     eventID,
		Outcome:     "claimed",
		ProcessedAt: time.Now().UTC(),
	}
	if _, err := s.db.NewInsert().Model(record).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *ProcessedEventStore) Get(ctx context.Context, eventID string) (core.IdempotencyRecord, error) {
	if s == nil || s.db == nil {
		return core.IdempotencyRecord{}, fmt.Errorf("sqlstore: processed event store is not configured")
	}
	record := &processedEventRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.event_id = ?", strings.TrimSpace(eventID)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return core.IdempotencyRecord{}, err
	}
	return core.IdempotencyRecord{
		EventID:     record.EventID,
		ProcessedAt: record.ProcessedAt,
		Outcome:     record.Outcome,
	}, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

var _ core.IdempotencyLedger = (*ProcessedEventStore)(nil)
