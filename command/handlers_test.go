package command_test

import (
	"context"
	"errors"
	"testing"
	"time"

	command "github.com/goliatone/go-onboarding/command"
	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/notify"
)

type stubReplayer struct {
	ids []string
	err error
}

func (r *stubReplayer) Replay(_ context.Context, deadLetterID string) (core.InboundEvent, error) {
	if r.err != nil {
		return core.InboundEvent{}, r.err
	}
	r.ids = append(r.ids, deadLetterID)
	return core.InboundEvent{ID: "evt_1", Type: "payment.failed", CreatedAt: time.Now().UTC()}, nil
}

type stubRetriggerer struct {
	runIDs []string
	err    error
}

func (r *stubRetriggerer) Retrigger(_ context.Context, runID string, _ core.ClientStore) (core.OnboardingRun, error) {
	if r.err != nil {
		return core.OnboardingRun{}, r.err
	}
	r.runIDs = append(r.runIDs, runID)
	return core.OnboardingRun{ID: "run_2", ClientID: "cli_1"}, nil
}

type stubSender struct {
	emails []core.Email
	err    error
}

func (s *stubSender) Send(_ context.Context, email core.Email) (notify.SendResult, error) {
	if s.err != nil {
		return notify.SendResult{}, s.err
	}
	s.emails = append(s.emails, email)
	return notify.SendResult{Outcome: notify.OutcomeSent, Attempts: 1}, nil
}

type stubPreferenceStore struct {
	upserts []core.EmailPreference
}

func (s *stubPreferenceStore) Get(_ context.Context, _ string) (core.EmailPreference, bool, error) {
	return core.EmailPreference{}, false, nil
}

func (s *stubPreferenceStore) Upsert(_ context.Context, pref core.EmailPreference) (core.EmailPreference, error) {
	s.upserts = append(s.upserts, pref)
	return pref, nil
}

func TestReplayDeadLetterCommand(t *testing.T) {
	replayer := &stubReplayer{}
	cmd := command.NewReplayDeadLetterCommand(replayer)

	if err := cmd.Execute(context.Background(), command.ReplayDeadLetterMessage{DeadLetterID: "dl_1"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(replayer.ids) != 1 || replayer.ids[0] != "dl_1" {
		t.Fatalf("expected replay of dl_1, got %v", replayer.ids)
	}

	failing := command.NewReplayDeadLetterCommand(&stubReplayer{err: errors.New("still failing")})
	if err := failing.Execute(context.Background(), command.ReplayDeadLetterMessage{DeadLetterID: "dl_1"}); err == nil {
		t.Fatalf("expected replay failure to surface")
	}

	missing := command.NewReplayDeadLetterCommand(nil)
	if err := missing.Execute(context.Background(), command.ReplayDeadLetterMessage{DeadLetterID: "dl_1"}); err == nil {
		t.Fatalf("expected missing dependency error")
	}
}

func TestRetriggerRunCommand(t *testing.T) {
	retriggerer := &stubRetriggerer{}
	clients := stubClientStore{}
	cmd := command.NewRetriggerRunCommand(retriggerer, clients)

	if err := cmd.Execute(context.Background(), command.RetriggerRunMessage{RunID: "run_1"}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(retriggerer.runIDs) != 1 || retriggerer.runIDs[0] != "run_1" {
		t.Fatalf("expected retrigger of run_1, got %v", retriggerer.runIDs)
	}

	missing := command.NewRetriggerRunCommand(nil, clients)
	if err := missing.Execute(context.Background(), command.RetriggerRunMessage{RunID: "run_1"}); err == nil {
		t.Fatalf("expected missing orchestrator error")
	}
}

func TestSendEmailCommand(t *testing.T) {
	sender := &stubSender{}
	cmd := command.NewSendEmailCommand(sender)

	message := command.SendEmailMessage{Email: core.Email{
		To:           "pat@acme.test",
		TemplateName: notify.TemplateWelcome,
	}}
	if err := cmd.Execute(context.Background(), message); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(sender.emails) != 1 {
		t.Fatalf("expected one send, got %d", len(sender.emails))
	}

	missing := command.NewSendEmailCommand(nil)
	if err := missing.Execute(context.Background(), message); err == nil {
		t.Fatalf("expected missing sender error")
	}
}

func TestUpsertPreferenceCommand(t *testing.T) {
	store := &stubPreferenceStore{}
	cmd := command.NewUpsertPreferenceCommand(store)

	message := command.UpsertPreferenceMessage{Preference: core.EmailPreference{
		UserID:       "pat@acme.test",
		EmailEnabled: true,
	}}
	if err := cmd.Execute(context.Background(), message); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(store.upserts))
	}
}

func TestMessageValidation(t *testing.T) {
	cases := map[string]interface{ Validate() error }{
		"blank dead letter id": command.ReplayDeadLetterMessage{},
		"blank run id":         command.RetriggerRunMessage{},
		"missing recipient":    command.SendEmailMessage{Email: core.Email{TemplateName: "welcome"}},
		"missing template":     command.SendEmailMessage{Email: core.Email{To: "pat@acme.test"}},
		"missing user id":      command.UpsertPreferenceMessage{},
	}
	for name, message := range cases {
		if err := message.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	valid := []interface{ Validate() error }{
		command.ReplayDeadLetterMessage{DeadLetterID: "dl_1"},
		command.RetriggerRunMessage{RunID: "run_1"},
		command.SendEmailMessage{Email: core.Email{To: "pat@acme.test", TemplateName: "welcome"}},
		command.UpsertPreferenceMessage{Preference: core.EmailPreference{UserID: "pat@acme.test"}},
	}
	for i, message := range valid {
		if err := message.Validate(); err != nil {
			t.Fatalf("message %d: unexpected validation error %v", i, err)
		}
	}
}

func TestMessageTypes(t *testing.T) {
	if (command.ReplayDeadLetterMessage{}).Type() != command.TypeReplayDeadLetter {
		t.Fatalf("unexpected replay type")
	}
	if (command.RetriggerRunMessage{}).Type() != command.TypeRetriggerRun {
		t.Fatalf("unexpected retrigger type")
	}
	if (command.SendEmailMessage{}).Type() != command.TypeSendEmail {
		t.Fatalf("unexpected send type")
	}
	if (command.UpsertPreferenceMessage{}).Type() != command.TypeUpsertPreference {
		t.Fatalf("unexpected preference type")
	}
}

type stubClientStore struct{}

func (stubClientStore) Create(_ context.Context, client core.Client) (core.Client, error) {
	return client, nil
}

func (stubClientStore) Update(_ context.Context, client core.Client) (core.Client, error) {
	return client, nil
}

func (stubClientStore) Get(_ context.Context, id string) (core.Client, error) {
	return core.Client{ID: id}, nil
}

func (stubClientStore) GetByEmail(_ context.Context, _ string) (core.Client, bool, error) {
	return core.Client{}, false, nil
}
