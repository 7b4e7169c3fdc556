package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DeadLetterStore persists failed handler invocations for manual replay.
// Records are append-only.
type DeadLetterStore struct {
	db   *bun.DB
	repo repository.Repository[*deadLetterRecord]
}

func NewDeadLetterStore(db *bun.DB) (*DeadLetterStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*deadLetterRecord](db, deadLetterHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid dead letter repository wiring: %w", err)
		}
	}
	return &DeadLetterStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *DeadLetterStore) Record(ctx context.Context, in core.DeadLetterRecord) (core.DeadLetterRecord, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.DeadLetterRecord{}, fmt.Errorf("sqlstore: dead letter store is not configured")
	}
	in.EventID = strings.TrimSpace(in.EventID)
	in.EventType = strings.TrimSpace(in.EventType)
	if in.EventID == "" {
		return core.DeadLetterRecord{}, fmt.Errorf("sqlstore: event id is required")
	}
	if strings.TrimSpace(in.ErrorMessage) == "" {
		return core.DeadLetterRecord{}, fmt.Errorf("sqlstore: error message is required")
	}
	if strings.TrimSpace(in.ID) == "" {
		in.ID = uuid.NewString()
	}
	if in.RecordedAt.IsZero() {
		in.RecordedAt = time.Now().UTC()
	}

	record := newDeadLetterRecord(in)
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.DeadLetterRecord{}, err
	}
	return created.toDomain(), nil
}

func (s *DeadLetterStore) Get(ctx context.Context, id string) (core.DeadLetterRecord, error) {
	if s == nil || s.repo == nil {
		return core.DeadLetterRecord{}, fmt.Errorf("sqlstore: dead letter store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.DeadLetterRecord{}, err
	}
	return record.toDomain(), nil
}

func (s *DeadLetterStore) List(ctx context.Context, limit int, offset int) ([]core.DeadLetterRecord, int, error) {
	if s == nil || s.repo == nil {
		return nil, 0, fmt.Errorf("sqlstore: dead letter store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	records, total, err := s.repo.List(ctx,
		repository.OrderBy("recorded_at DESC"),
		repository.SelectPaginate(limit, offset),
	)
	if err != nil {
		return nil, 0, err
	}
	out := make([]core.DeadLetterRecord, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, total, nil
}

var _ core.DeadLetterStore = (*DeadLetterStore)(nil)
