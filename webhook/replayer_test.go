package webhook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/webhook"
)

func TestReplayerDispatchesStoredSnapshot(t *testing.T) {
	deadLetters := &recordingDeadLetters{}
	body := eventBody("evt_dead", "payment.failed", time.Now().UTC())
	record, err := deadLetters.Record(context.Background(), core.DeadLetterRecord{
		ID:              "dl_1",
		EventID:         "evt_dead",
		EventType:       "payment.failed",
		ErrorMessage:    "handler crashed",
		PayloadSnapshot: body,
	})
	if err != nil {
		t.Fatalf("seed dead letter: %v", err)
	}

	dispatcher := webhook.NewDispatcher()
	var replayed []core.InboundEvent
	if err := dispatcher.Register("payment.failed", webhook.EventHandlerFunc(
		func(_ context.Context, event core.InboundEvent) error {
			replayed = append(replayed, event)
			return nil
		},
	)); err != nil {
		t.Fatalf("register handler: %v", err)
	}

	replayer := webhook.NewReplayer(deadLetters, dispatcher)
	event, err := replayer.Replay(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if event.ID != "evt_dead" {
		t.Fatalf("expected replayed event id evt_dead, got %q", event.ID)
	}
	if len(replayed) != 1 {
		t.Fatalf("expected handler to run once, ran %d times", len(replayed))
	}
	if string(replayed[0].Payload) != string(body) {
		t.Fatalf("expected handler to receive the stored snapshot")
	}
}

func TestReplayerSurfacesHandlerFailure(t *testing.T) {
	deadLetters := &recordingDeadLetters{}
	record, _ := deadLetters.Record(context.Background(), core.DeadLetterRecord{
		ID:              "dl_2",
		EventID:         "evt_dead",
		EventType:       "payment.failed",
		ErrorMessage:    "handler crashed",
		PayloadSnapshot: eventBody("evt_dead", "payment.failed", time.Now().UTC()),
	})

	dispatcher := webhook.NewDispatcher()
	_ = dispatcher.Register("payment.failed", webhook.EventHandlerFunc(
		func(context.Context, core.InboundEvent) error {
			return errors.New("still failing")
		},
	))

	replayer := webhook.NewReplayer(deadLetters, dispatcher)
	if _, err := replayer.Replay(context.Background(), record.ID); err == nil {
		t.Fatalf("expected repeated handler failure to surface to the operator")
	}
}

func TestReplayerRejectsUnhandledType(t *testing.T) {
	deadLetters := &recordingDeadLetters{}
	record, _ := deadLetters.Record(context.Background(), core.DeadLetterRecord{
		ID:              "dl_3",
		EventID:         "evt_dead",
		EventType:       "invoice.created",
		PayloadSnapshot: eventBody("evt_dead", "invoice.created", time.Now().UTC()),
	})

	replayer := webhook.NewReplayer(deadLetters, webhook.NewDispatcher())
	if _, err := replayer.Replay(context.Background(), record.ID); err == nil {
		t.Fatalf("expected unhandled event type to fail the replay")
	}
}

func TestReplayerRequiresID(t *testing.T) {
	replayer := webhook.NewReplayer(&recordingDeadLetters{}, webhook.NewDispatcher())
	if _, err := replayer.Replay(context.Background(), "  "); err == nil {
		t.Fatalf("expected blank dead letter id to be rejected")
	}
}
