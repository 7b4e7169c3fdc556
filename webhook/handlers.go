package webhook

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

const (
	EventTypeSubscriptionCreated = "subscription.created"
	EventTypeSubscriptionUpdated = "subscription.updated"
	EventTypeSubscriptionDeleted = "subscription.deleted"
	EventTypePaymentSucceeded    = "payment.succeeded"
	EventTypePaymentFailed       = "payment.failed"

	// Namespaced names as the billing provider emits them. Both
	// spellings route to the same handlers.
	EventTypeCustomerSubscriptionCreated = "customer.subscription.created"
	EventTypeCustomerSubscriptionUpdated = "customer.subscription.updated"
	EventTypeCustomerSubscriptionDeleted = "customer.subscription.deleted"
	EventTypeInvoicePaymentSucceeded     = "invoice.payment_succeeded"
	EventTypeInvoicePaymentFailed        = "invoice.payment_failed"
)

// OnboardingStarter kicks off a provisioning run for a newly activated
// client. Step failures inside the run never surface here.
type OnboardingStarter interface {
	Start(ctx context.Context, client core.Client, triggeringEventID string) (core.OnboardingRun, error)
}

// PaymentNotifier sends the non-critical payment follow-up emails.
type PaymentNotifier interface {
	NotifyPaymentFailed(ctx context.Context, clientID string, reason string) error
}

// Handlers binds the billing event types to their write sets.
type Handlers struct {
	Applier    core.BillingEventApplier
	Onboarding OnboardingStarter
	Notifier   PaymentNotifier
	Service    *core.Service
}

func NewHandlers(applier core.BillingEventApplier, onboarding OnboardingStarter) *Handlers {
	return &Handlers{
		Applier:    applier,
		Onboarding: onboarding,
	}
}

// RegisterAll wires every supported billing event type into the
// dispatcher.
func (h *Handlers) RegisterAll(dispatcher *Dispatcher) error {
	if h == nil || h.Applier == nil {
		return webhookInternal("webhook: handlers require a billing event applier", nil)
	}
	registrations := map[string]EventHandler{
		EventTypeSubscriptionCreated:         EventHandlerFunc(h.handleSubscriptionCreated),
		EventTypeSubscriptionUpdated:         EventHandlerFunc(h.handleSubscriptionUpdated),
		EventTypeSubscriptionDeleted:         EventHandlerFunc(h.handleSubscriptionDeleted),
		EventTypePaymentSucceeded:            EventHandlerFunc(h.handlePaymentSucceeded),
		EventTypePaymentFailed:               EventHandlerFunc(h.handlePaymentFailed),
		EventTypeCustomerSubscriptionCreated: EventHandlerFunc(h.handleSubscriptionCreated),
		EventTypeCustomerSubscriptionUpdated: EventHandlerFunc(h.handleSubscriptionUpdated),
		EventTypeCustomerSubscriptionDeleted: EventHandlerFunc(h.handleSubscriptionDeleted),
		EventTypeInvoicePaymentSucceeded:     EventHandlerFunc(h.handlePaymentSucceeded),
		EventTypeInvoicePaymentFailed:        EventHandlerFunc(h.handlePaymentFailed),
	}
	for eventType, handler := range registrations {
		if err := dispatcher.Register(eventType, handler); err != nil {
			return err
		}
	}
	return nil
}

type subscriptionPayload struct {
	Data struct {
		ID               string `json:"id"`
		CustomerID       string `json:"customer_id"`
		PlanCode         string `json:"plan_code"`
		Status           string `json:"status"`
		CurrentPeriodEnd string `json:"current_period_end"`
		Client           struct {
			ID           string `json:"id"`
			CompanyName  string `json:"company_name"`
			ContactName  string `json:"contact_name"`
			ContactEmail string `json:"contact_email"`
		} `json:"client"`
	} `json:"data"`
}

type paymentPayload struct {
	Data struct {
		SubscriptionID string `json:"subscription_id"`
		ClientID       string `json:"client_id"`
		AmountCents    int64  `json:"amount_cents"`
		Currency       string `json:"currency"`
		FailureReason  string `json:"failure_reason"`
	} `json:"data"`
}

func (h *Handlers) handleSubscriptionCreated(ctx context.Context, event core.InboundEvent) error {
	payload, err := parseSubscriptionPayload(event.Payload)
	if err != nil {
		return err
	}
	if strings.TrimSpace(payload.Data.Client.ContactEmail) == "" {
		return webhookBadInput("webhook: subscription client contact_email is required", map[string]any{
			"event_id": event.ID,
		})
	}

	subscription := payloadToSubscription(payload)
	client := core.Client{
		ID:           strings.TrimSpace(payload.Data.Client.ID),
		CompanyName:  strings.TrimSpace(payload.Data.Client.CompanyName),
		ContactName:  strings.TrimSpace(payload.Data.Client.ContactName),
		ContactEmail: strings.TrimSpace(payload.Data.Client.ContactEmail),
		Status:       core.ClientStatusLead,
	}

	activated, _, err := h.Applier.ApplySubscriptionCreated(ctx, core.SubscriptionCreatedInput{
		Subscription: subscription,
		Client:       client,
	})
	if err != nil {
		return err
	}

	if h.Onboarding != nil {
		if _, err := h.Onboarding.Start(ctx, activated, event.ID); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handlers) handleSubscriptionUpdated(ctx context.Context, event core.InboundEvent) error {
	payload, err := parseSubscriptionPayload(event.Payload)
	if err != nil {
		return err
	}
	_, err = h.Applier.ApplySubscriptionUpdated(ctx, payloadToSubscription(payload))
	return err
}

func (h *Handlers) handleSubscriptionDeleted(ctx context.Context, event core.InboundEvent) error {
	payload, err := parseSubscriptionPayload(event.Payload)
	if err != nil {
		return err
	}
	return h.Applier.ApplySubscriptionDeleted(ctx, strings.TrimSpace(payload.Data.ID))
}

func (h *Handlers) handlePaymentSucceeded(ctx context.Context, event core.InboundEvent) error {
	payload, err := parsePaymentPayload(event.Payload)
	if err != nil {
		return err
	}
	return h.Applier.ApplyPaymentSucceeded(ctx, payloadToPayment(payload))
}

func (h *Handlers) handlePaymentFailed(ctx context.Context, event core.InboundEvent) error {
	payload, err := parsePaymentPayload(event.Payload)
	if err != nil {
		return err
	}
	input := payloadToPayment(payload)
	if err := h.Applier.ApplyPaymentFailed(ctx, input); err != nil {
		return err
	}
	if h.Notifier != nil {
		if err := h.Notifier.NotifyPaymentFailed(ctx, input.ClientID, input.FailureReason); err != nil && h.Service != nil {
			h.Service.LogError(ctx, "payment failure notification failed", map[string]any{
				"event_id":  event.ID,
				"client_id": input.ClientID,
				"error":     err.Error(),
			})
		}
	}
	return nil
}

func parseSubscriptionPayload(body []byte) (subscriptionPayload, error) {
	var payload subscriptionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return subscriptionPayload{}, webhookBadInput("webhook: invalid subscription payload", nil)
	}
	if strings.TrimSpace(payload.Data.ID) == "" {
		return subscriptionPayload{}, webhookBadInput("webhook: subscription id is required", nil)
	}
	return payload, nil
}

func parsePaymentPayload(body []byte) (paymentPayload, error) {
	var payload paymentPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return paymentPayload{}, webhookBadInput("webhook: invalid payment payload", nil)
	}
	if strings.TrimSpace(payload.Data.ClientID) == "" && strings.TrimSpace(payload.Data.SubscriptionID) == "" {
		return paymentPayload{}, webhookBadInput("webhook: payment client_id or subscription_id is required", nil)
	}
	return payload, nil
}

func payloadToSubscription(payload subscriptionPayload) core.BillingSubscription {
	subscription := core.BillingSubscription{
		ID:                 strings.TrimSpace(payload.Data.ID),
		ClientID:           strings.TrimSpace(payload.Data.Client.ID),
		ProviderCustomerID: strings.TrimSpace(payload.Data.CustomerID),
		PlanCode:           strings.TrimSpace(payload.Data.PlanCode),
		Status:             core.SubscriptionStatus(strings.TrimSpace(payload.Data.Status)),
	}
	if subscription.Status == "" {
		subscription.Status = core.SubscriptionStatusActive
	}
	if raw := strings.TrimSpace(payload.Data.CurrentPeriodEnd); raw != "" {
		if parsed, err := time.Parse(time.RFC3339, raw); err == nil {
			end := parsed.UTC()
			subscription.CurrentPeriodEnd = &end
		}
	}
	return subscription
}

func payloadToPayment(payload paymentPayload) core.PaymentInput {
	return core.PaymentInput{
		SubscriptionID: strings.TrimSpace(payload.Data.SubscriptionID),
		ClientID:       strings.TrimSpace(payload.Data.ClientID),
		AmountCents:    payload.Data.AmountCents,
		Currency:       strings.TrimSpace(payload.Data.Currency),
		FailureReason:  strings.TrimSpace(payload.Data.FailureReason),
	}
}
