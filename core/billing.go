package core

import "context"

type SubscriptionCreatedInput struct {
	Subscription BillingSubscription
	Client       Client
}

type PaymentInput struct {
	SubscriptionID string
	ClientID       string
	AmountCents    int64
	Currency       string
	FailureReason  string
}

// BillingEventApplier performs the multi-table write set of one billing
// event atomically. Implementations run each apply inside a single
// database transaction so partial writes never survive a failure.
type BillingEventApplier interface {
	ApplySubscriptionCreated(ctx context.Context, in SubscriptionCreatedInput) (Client, BillingSubscription, error)
	ApplySubscriptionUpdated(ctx context.Context, subscription BillingSubscription) (BillingSubscription, error)
	ApplySubscriptionDeleted(ctx context.Context, subscriptionID string) error
	ApplyPaymentSucceeded(ctx context.Context, in PaymentInput) error
	ApplyPaymentFailed(ctx context.Context, in PaymentInput) error
}
