package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// SubscriptionStore persists billing provider subscriptions. The id is
// the provider's subscription id, not a locally minted one, so replays
// of the same event settle on the same row.
type SubscriptionStore struct {
	db   *bun.DB
	repo repository.Repository[*subscriptionRecord]
}

func NewSubscriptionStore(db *bun.DB) (*SubscriptionStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*subscriptionRecord](db, subscriptionHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid subscription repository wiring: %w", err)
		}
	}
	return &SubscriptionStore{
		db:   db,
		repo: repo,
	}, nil
}

func (s *SubscriptionStore) Create(ctx context.Context, subscription core.BillingSubscription) (core.BillingSubscription, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.BillingSubscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	subscription.ID = strings.TrimSpace(subscription.ID)
	subscription.ClientID = strings.TrimSpace(subscription.ClientID)
	if subscription.ID == "" {
		return core.BillingSubscription{}, fmt.Errorf("sqlstore: subscription id is required")
	}
	if subscription.ClientID == "" {
		return core.BillingSubscription{}, fmt.Errorf("sqlstore: client id is required")
	}
	if strings.TrimSpace(string(subscription.Status)) == "" {
		subscription.Status = core.SubscriptionStatusActive
	}
	now := time.Now().UTC()
	if subscription.CreatedAt.IsZero() {
		subscription.CreatedAt = now
	}
	if subscription.UpdatedAt.IsZero() {
		subscription.UpdatedAt = now
	}

	record := newSubscriptionRecord(subscription)
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.BillingSubscription{}, err
	}
	return created.toDomain(), nil
}

func (s *SubscriptionStore) Update(ctx context.Context, subscription core.BillingSubscription) (core.BillingSubscription, error) {
	if s == nil || s.repo == nil {
		return core.BillingSubscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	subscription.ID = strings.TrimSpace(subscription.ID)
	if subscription.ID == "" {
		return core.BillingSubscription{}, fmt.Errorf("sqlstore: subscription id is required")
	}
	if subscription.UpdatedAt.IsZero() {
		subscription.UpdatedAt = time.Now().UTC()
	}
	record := newSubscriptionRecord(subscription)
	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(subscription.ID))
	if err != nil {
		return core.BillingSubscription{}, err
	}
	return updated.toDomain(), nil
}

func (s *SubscriptionStore) Get(ctx context.Context, id string) (core.BillingSubscription, error) {
	if s == nil || s.repo == nil {
		return core.BillingSubscription{}, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	record, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return core.BillingSubscription{}, err
	}
	return record.toDomain(), nil
}

func (s *SubscriptionStore) GetByClient(ctx context.Context, clientID string) ([]core.BillingSubscription, error) {
	if s == nil || s.repo == nil {
		return nil, fmt.Errorf("sqlstore: subscription store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("client_id", "=", strings.TrimSpace(clientID)),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return nil, err
	}
	out := make([]core.BillingSubscription, 0, len(records))
	for _, record := range records {
		out = append(out, record.toDomain())
	}
	return out, nil
}

var _ core.SubscriptionStore = (*SubscriptionStore)(nil)
