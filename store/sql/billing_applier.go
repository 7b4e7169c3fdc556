package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BillingApplier performs the write set of one billing event inside a
// single transaction. A failure anywhere rolls back every table the
// event touched.
type BillingApplier struct {
	db  *bun.DB
	Now func() time.Time
}

func NewBillingApplier(db *bun.DB) (*BillingApplier, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	return &BillingApplier{
		db:  db,
		Now: time.Now,
	}, nil
}

func (a *BillingApplier) now() time.Time {
	if a != nil && a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func (a *BillingApplier) ApplySubscriptionCreated(ctx context.Context, in core.SubscriptionCreatedInput) (core.Client, core.BillingSubscription, error) {
	if a == nil || a.db == nil {
		return core.Client{}, core.BillingSubscription{}, fmt.Errorf("sqlstore: billing applier is not configured")
	}
	in.Subscription.ID = strings.TrimSpace(in.Subscription.ID)
	in.Client.ContactEmail = strings.TrimSpace(in.Client.ContactEmail)
	if in.Subscription.ID == "" {
		return core.Client{}, core.BillingSubscription{}, fmt.Errorf("sqlstore: subscription id is required")
	}
	if in.Client.ContactEmail == "" {
		return core.Client{}, core.BillingSubscription{}, fmt.Errorf("sqlstore: client contact email is required")
	}
	now := a.now()

	var outClient core.Client
	var outSubscription core.BillingSubscription
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		clientRow, err := findClientByEmailTx(ctx, tx, in.Client.ContactEmail)
		if err != nil {
			return err
		}
		if clientRow == nil {
			client := in.Client
			if strings.TrimSpace(client.ID) == "" {
				client.ID = uuid.NewString()
			}
			if strings.TrimSpace(string(client.Status)) == "" {
				client.Status = core.ClientStatusLead
			}
			client.CreatedAt = now
			client.UpdatedAt = now
			clientRow = newClientRecord(client)
			if _, insertErr := tx.NewInsert().Model(clientRow).Exec(ctx); insertErr != nil {
				return insertErr
			}
		}

		client := clientRow.toDomain()
		if client.Status != core.ClientStatusActive {
			if transitionErr := client.TransitionTo(core.ClientStatusActive, now); transitionErr != nil {
				return transitionErr
			}
			if updateErr := updateClientTx(ctx, tx, client); updateErr != nil {
				return updateErr
			}
		}

		subscription := in.Subscription
		subscription.ClientID = client.ID
		if strings.TrimSpace(string(subscription.Status)) == "" {
			subscription.Status = core.SubscriptionStatusActive
		}
		subscription.CreatedAt = now
		subscription.UpdatedAt = now
		if _, insertErr := tx.NewInsert().Model(newSubscriptionRecord(subscription)).Exec(ctx); insertErr != nil {
			return insertErr
		}

		outClient = client
		outSubscription = subscription
		return nil
	})
	if err != nil {
		return core.Client{}, core.BillingSubscription{}, err
	}
	return outClient, outSubscription, nil
}

func (a *BillingApplier) ApplySubscriptionUpdated(ctx context.Context, subscription core.BillingSubscription) (core.BillingSubscription, error) {
	if a == nil || a.db == nil {
		return core.BillingSubscription{}, fmt.Errorf("sqlstore: billing applier is not configured")
	}
	subscription.ID = strings.TrimSpace(subscription.ID)
	if subscription.ID == "" {
		return core.BillingSubscription{}, fmt.Errorf("sqlstore: subscription id is required")
	}
	now := a.now()

	var out core.BillingSubscription
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := getSubscriptionTx(ctx, tx, subscription.ID)
		if err != nil {
			return err
		}
		existing := record.toDomain()
		if strings.TrimSpace(subscription.PlanCode) != "" {
			existing.PlanCode = subscription.PlanCode
		}
		if subscription.CurrentPeriodEnd != nil {
			existing.CurrentPeriodEnd = copyTimePtr(subscription.CurrentPeriodEnd)
		}
		if subscription.Metadata != nil {
			existing.Metadata = copyAnyMap(subscription.Metadata)
		}
		if strings.TrimSpace(string(subscription.Status)) != "" && subscription.Status != existing.Status {
			if transitionErr := existing.TransitionTo(subscription.Status, now); transitionErr != nil {
				return transitionErr
			}
		} else {
			existing.UpdatedAt = now
		}
		if updateErr := updateSubscriptionTx(ctx, tx, existing); updateErr != nil {
			return updateErr
		}
		out = existing
		return nil
	})
	if err != nil {
		return core.BillingSubscription{}, err
	}
	return out, nil
}

func (a *BillingApplier) ApplySubscriptionDeleted(ctx context.Context, subscriptionID string) error {
	if a == nil || a.db == nil {
		return fmt.Errorf("sqlstore: billing applier is not configured")
	}
	subscriptionID = strings.TrimSpace(subscriptionID)
	if subscriptionID == "" {
		return fmt.Errorf("sqlstore: subscription id is required")
	}
	now := a.now()

	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := getSubscriptionTx(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		subscription := record.toDomain()
		if subscription.Status != core.SubscriptionStatusCancelled {
			if transitionErr := subscription.TransitionTo(core.SubscriptionStatusCancelled, now); transitionErr != nil {
				return transitionErr
			}
		}
		if updateErr := updateSubscriptionTx(ctx, tx, subscription); updateErr != nil {
			return updateErr
		}

		clientRow, err := getClientTx(ctx, tx, subscription.ClientID)
		if err != nil {
			return err
		}
		client := clientRow.toDomain()
		if client.Status != core.ClientStatusCancelled {
			if transitionErr := client.TransitionTo(core.ClientStatusCancelled, now); transitionErr != nil {
				return transitionErr
			}
			if updateErr := updateClientTx(ctx, tx, client); updateErr != nil {
				return updateErr
			}
		}
		return nil
	})
}

func (a *BillingApplier) ApplyPaymentSucceeded(ctx context.Context, in core.PaymentInput) error {
	if a == nil || a.db == nil {
		return fmt.Errorf("sqlstore: billing applier is not configured")
	}
	in.SubscriptionID = strings.TrimSpace(in.SubscriptionID)
	if in.SubscriptionID == "" {
		return fmt.Errorf("sqlstore: subscription id is required")
	}
	now := a.now()

	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := getSubscriptionTx(ctx, tx, in.SubscriptionID)
		if err != nil {
			return err
		}
		subscription := record.toDomain()
		if subscription.Metadata == nil {
			subscription.Metadata = map[string]any{}
		}
		subscription.Metadata["last_payment_at"] = now.Format(time.RFC3339Nano)
		subscription.Metadata["last_payment_amount_cents"] = in.AmountCents
		if strings.TrimSpace(in.Currency) != "" {
			subscription.Metadata["last_payment_currency"] = in.Currency
		}
		delete(subscription.Metadata, "last_payment_failure")
		if subscription.Status == core.SubscriptionStatusPastDue {
			if transitionErr := subscription.TransitionTo(core.SubscriptionStatusActive, now); transitionErr != nil {
				return transitionErr
			}
		} else {
			subscription.UpdatedAt = now
		}
		if updateErr := updateSubscriptionTx(ctx, tx, subscription); updateErr != nil {
			return updateErr
		}

		clientRow, err := getClientTx(ctx, tx, subscription.ClientID)
		if err != nil {
			return err
		}
		client := clientRow.toDomain()
		if client.Status == core.ClientStatusPastDue {
			if transitionErr := client.TransitionTo(core.ClientStatusActive, now); transitionErr != nil {
				return transitionErr
			}
			if updateErr := updateClientTx(ctx, tx, client); updateErr != nil {
				return updateErr
			}
		}
		return nil
	})
}

func (a *BillingApplier) ApplyPaymentFailed(ctx context.Context, in core.PaymentInput) error {
	if a == nil || a.db == nil {
		return fmt.Errorf("sqlstore: billing applier is not configured")
	}
	in.SubscriptionID = strings.TrimSpace(in.SubscriptionID)
	if in.SubscriptionID == "" {
		return fmt.Errorf("sqlstore: subscription id is required")
	}
	now := a.now()

	return a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := getSubscriptionTx(ctx, tx, in.SubscriptionID)
		if err != nil {
			return err
		}
		subscription := record.toDomain()
		if subscription.Metadata == nil {
			subscription.Metadata = map[string]any{}
		}
		subscription.Metadata["last_payment_failure"] = strings.TrimSpace(in.FailureReason)
		subscription.Metadata["last_payment_failure_at"] = now.Format(time.RFC3339Nano)
		if subscription.Status == core.SubscriptionStatusActive {
			if transitionErr := subscription.TransitionTo(core.SubscriptionStatusPastDue, now); transitionErr != nil {
				return transitionErr
			}
		} else {
			subscription.UpdatedAt = now
		}
		if updateErr := updateSubscriptionTx(ctx, tx, subscription); updateErr != nil {
			return updateErr
		}

		clientRow, err := getClientTx(ctx, tx, subscription.ClientID)
		if err != nil {
			return err
		}
		client := clientRow.toDomain()
		if client.Status == core.ClientStatusActive {
			if transitionErr := client.TransitionTo(core.ClientStatusPastDue, now); transitionErr != nil {
				return transitionErr
			}
			if updateErr := updateClientTx(ctx, tx, client); updateErr != nil {
				return updateErr
			}
		}
		return nil
	})
}

func findClientByEmailTx(ctx context.Context, tx bun.Tx, email string) (*clientRecord, error) {
	record := &clientRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.contact_email = ?", strings.TrimSpace(email)).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if strings.TrimSpace(record.ID) == "" {
		return nil, nil
	}
	return record, nil
}

func getClientTx(ctx context.Context, tx bun.Tx, id string) (*clientRecord, error) {
	id = strings.TrimSpace(id)
	record := &clientRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlstore: client %q not found", id)
		}
		return nil, err
	}
	return record, nil
}

func getSubscriptionTx(ctx context.Context, tx bun.Tx, id string) (*subscriptionRecord, error) {
	id = strings.TrimSpace(id)
	record := &subscriptionRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sqlstore: subscription %q not found", id)
		}
		return nil, err
	}
	return record, nil
}

func updateClientTx(ctx context.Context, tx bun.Tx, client core.Client) error {
	_, err := tx.NewUpdate().
		Model(newClientRecord(client)).
		Where("id = ?", client.ID).
		Exec(ctx)
	return err
}

func updateSubscriptionTx(ctx context.Context, tx bun.Tx, subscription core.BillingSubscription) error {
	_, err := tx.NewUpdate().
		Model(newSubscriptionRecord(subscription)).
		Where("id = ?", subscription.ID).
		Exec(ctx)
	return err
}

var _ core.BillingEventApplier = (*BillingApplier)(nil)
