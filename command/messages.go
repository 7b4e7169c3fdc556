package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-onboarding/core"
)

const (
	TypeReplayDeadLetter = "onboarding.command.deadletter.replay"
	TypeRetriggerRun     = "onboarding.command.run.retrigger"
	TypeSendEmail        = "onboarding.command.email.send"
	TypeUpsertPreference = "onboarding.command.preference.upsert"
)

type ReplayDeadLetterMessage struct {
	DeadLetterID string
}

func (ReplayDeadLetterMessage) Type() string { return TypeReplayDeadLetter }

func (m ReplayDeadLetterMessage) Validate() error {
	if strings.TrimSpace(m.DeadLetterID) == "" {
		return fmt.Errorf("command: dead letter id is required")
	}
	return nil
}

type RetriggerRunMessage struct {
	RunID string
}

func (RetriggerRunMessage) Type() string { return TypeRetriggerRun }

func (m RetriggerRunMessage) Validate() error {
	if strings.TrimSpace(m.RunID) == "" {
		return fmt.Errorf("command: run id is required")
	}
	return nil
}

type SendEmailMessage struct {
	Email core.Email
}

func (SendEmailMessage) Type() string { return TypeSendEmail }

func (m SendEmailMessage) Validate() error {
	if strings.TrimSpace(m.Email.To) == "" {
		return fmt.Errorf("command: email recipient is required")
	}
	if strings.TrimSpace(m.Email.TemplateName) == "" {
		return fmt.Errorf("command: email template name is required")
	}
	return nil
}

type UpsertPreferenceMessage struct {
	Preference core.EmailPreference
}

func (UpsertPreferenceMessage) Type() string { return TypeUpsertPreference }

func (m UpsertPreferenceMessage) Validate() error {
	if strings.TrimSpace(m.Preference.UserID) == "" {
		return fmt.Errorf("command: preference user id is required")
	}
	return nil
}
