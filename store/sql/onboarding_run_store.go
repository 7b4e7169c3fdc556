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

type OnboardingRunStore struct {
	db   *bun.DB
	repo repository.Repository[*onboardingRunRecord]
}

func NewOnboardingRunStore(db *bun.DB) (*OnboardingRunStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*onboardingRunRecord](db, runHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid onboarding run repository wiring: %w", err)
		}
	}
	return &OnboardingRunStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *OnboardingRunStore) Create(ctx context.Context, run core.OnboardingRun) (core.OnboardingRun, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.OnboardingRun{}, fmt.Errorf("sqlstore: onboarding run store is not configured")
	}
	run.ClientID = strings.TrimSpace(run.ClientID)
	if run.ClientID == "" {
		return core.OnboardingRun{}, fmt.Errorf("sqlstore: client id is required")
	}
	if strings.TrimSpace(run.ID) == "" {
		run.ID = uuid.NewString()
	}
	if strings.TrimSpace(string(run.Status)) == "" {
		run.Status = core.RunStatusNotStarted
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	record := newOnboardingRunRecord(run)
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.OnboardingRun{}, err
	}
	return created.toDomain(), nil
}

func (s *OnboardingRunStore) Update(ctx context.Context, run core.OnboardingRun) (core.OnboardingRun, error) {
	if s == nil || s.repo == nil {
		return core.OnboardingRun{}, fmt.Errorf("sqlstore: onboarding run store is not configured")
	}
	run.ID = strings.TrimSpace(run.ID)
	if run.ID == "" {
		return core.OnboardingRun{}, fmt.Errorf("sqlstore: run id is required")
	}
	record := newOnboardingRunRecord(run)
	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(run.ID))
	if err != nil {
		return core.OnboardingRun{}, err
	}
	return updated.toDomain(), nil
}

func (s *OnboardingRunStore) Get(ctx context.Context, id string) (core.OnboardingRun, error) {
	if s == nil || s.repo == nil {
		return core.OnboardingRun{}, fmt.Errorf("sqlstore: onboarding run store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.OnboardingRun{}, err
	}
	return record.toDomain(), nil
}

func (s *OnboardingRunStore) GetByClient(ctx context.Context, clientID string) ([]core.OnboardingRun, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: onboarding run store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("client_id", "=", strings.TrimSpace(clientID)),
		repository.OrderBy("started_at DESC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.OnboardingRun, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var _ core.OnboardingRunStore = (*OnboardingRunStore)(nil)
