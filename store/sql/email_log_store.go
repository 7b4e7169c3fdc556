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

// EmailLogStore records every delivery attempt outcome, including the
// sends that were skipped before reaching the provider.
type EmailLogStore struct {
	db   *bun.DB
	repo repository.Repository[*emailLogRecord]
}

func NewEmailLogStore(db *bun.DB) (*EmailLogStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*emailLogRecord](db, emailLogHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid email log repository wiring: %w", err)
		}
	}
	return &EmailLogStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *EmailLogStore) Create(ctx context.Context, entry core.EmailDeliveryLog) (core.EmailDeliveryLog, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.EmailDeliveryLog{}, fmt.Errorf("sqlstore: email log store is not configured")
	}
	entry.Recipient = strings.TrimSpace(entry.Recipient)
	entry.EmailType = strings.TrimSpace(entry.EmailType)
	if entry.Recipient == "" {
		return core.EmailDeliveryLog{}, fmt.Errorf("sqlstore: recipient is required")
	}
	if entry.EmailType == "" {
		return core.EmailDeliveryLog{}, fmt.Errorf("sqlstore: email type is required")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if strings.TrimSpace(string(entry.Status)) == "" {
		entry.Status = core.EmailDeliveryStatusPending
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = now
	}

	record := newEmailLogRecord(entry)
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.EmailDeliveryLog{}, err
	}
	return created.toDomain(), nil
}

func (s *EmailLogStore) Update(ctx context.Context, entry core.EmailDeliveryLog) (core.EmailDeliveryLog, error) {
	if s == nil || s.repo == nil {
		return core.EmailDeliveryLog{}, fmt.Errorf("sqlstore: email log store is not configured")
	}
	entry.ID = strings.TrimSpace(entry.ID)
	if entry.ID == "" {
		return core.EmailDeliveryLog{}, fmt.Errorf("sqlstore: log id is required")
	}
	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = time.Now().UTC()
	}
	record := newEmailLogRecord(entry)
	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(entry.ID))
	if err != nil {
		return core.EmailDeliveryLog{}, err
	}
	return updated.toDomain(), nil
}

func (s *EmailLogStore) Get(ctx context.Context, id string) (core.EmailDeliveryLog, error) {
	if s == nil || s.repo == nil {
		return core.EmailDeliveryLog{}, fmt.Errorf("sqlstore: email log store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.EmailDeliveryLog{}, err
	}
	return record.toDomain(), nil
}

var _ core.EmailDeliveryLogStore = (*EmailLogStore)(nil)
