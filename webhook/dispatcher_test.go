package webhook_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/webhook"
)

func TestDispatcherUnknownTypeIsNotAnError(t *testing.T) {
	dispatcher := webhook.NewDispatcher()
	handled, err := dispatcher.Dispatch(context.Background(), core.InboundEvent{Type: "invoice.created"})
	if err != nil {
		t.Fatalf("unknown type should not error, got %v", err)
	}
	if handled {
		t.Fatalf("expected handled=false for unknown type")
	}
}

func TestDispatcherRejectsDuplicateRegistration(t *testing.T) {
	dispatcher := webhook.NewDispatcher()
	noop := webhook.EventHandlerFunc(func(context.Context, core.InboundEvent) error { return nil })

	if err := dispatcher.Register("payment.succeeded", noop); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	if err := dispatcher.Register("payment.succeeded", noop); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if !dispatcher.Handles("payment.succeeded") {
		t.Fatalf("expected registered type to be reported")
	}
	if dispatcher.Handles("payment.failed") {
		t.Fatalf("expected unregistered type to be absent")
	}
}

func TestDispatcherRequiresTypeAndHandler(t *testing.T) {
	dispatcher := webhook.NewDispatcher()
	if err := dispatcher.Register("  ", webhook.EventHandlerFunc(
		func(context.Context, core.InboundEvent) error { return nil },
	)); err == nil {
		t.Fatalf("expected blank event type to be rejected")
	}
	if err := dispatcher.Register("payment.failed", nil); err == nil {
		t.Fatalf("expected nil handler to be rejected")
	}
}
