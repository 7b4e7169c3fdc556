package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/notify"
)

type DeadLetterReplayer interface {
	Replay(ctx context.Context, deadLetterID string) (core.InboundEvent, error)
}

type RunRetriggerer interface {
	Retrigger(ctx context.Context, runID string, clients core.ClientStore) (core.OnboardingRun, error)
}

type EmailSender interface {
	Send(ctx context.Context, email core.Email) (notify.SendResult, error)
}

type ReplayDeadLetterCommand struct {
	replayer DeadLetterReplayer
}

func NewReplayDeadLetterCommand(replayer DeadLetterReplayer) *ReplayDeadLetterCommand {
	return &ReplayDeadLetterCommand{replayer: replayer}
}

func (c *ReplayDeadLetterCommand) Execute(ctx context.Context, msg ReplayDeadLetterMessage) error {
	if c == nil || c.replayer == nil {
		return commandDependencyError("command: dead letter replayer is required")
	}
	out, err := c.replayer.Replay(ctx, msg.DeadLetterID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RetriggerRunCommand struct {
	orchestrator RunRetriggerer
	clients      core.ClientStore
}

func NewRetriggerRunCommand(orchestrator RunRetriggerer, clients core.ClientStore) *RetriggerRunCommand {
	return &RetriggerRunCommand{
		orchestrator: orchestrator,
		clients:      clients,
	}
}

func (c *RetriggerRunCommand) Execute(ctx context.Context, msg RetriggerRunMessage) error {
	if c == nil || c.orchestrator == nil || c.clients == nil {
		return commandDependencyError("command: onboarding orchestrator is required")
	}
	out, err := c.orchestrator.Retrigger(ctx, msg.RunID, c.clients)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SendEmailCommand struct {
	sender EmailSender
}

func NewSendEmailCommand(sender EmailSender) *SendEmailCommand {
	return &SendEmailCommand{sender: sender}
}

func (c *SendEmailCommand) Execute(ctx context.Context, msg SendEmailMessage) error {
	if c == nil || c.sender == nil {
		return commandDependencyError("command: email sender is required")
	}
	out, err := c.sender.Send(ctx, msg.Email)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpsertPreferenceCommand struct {
	preferences core.EmailPreferenceStore
}

func NewUpsertPreferenceCommand(preferences core.EmailPreferenceStore) *UpsertPreferenceCommand {
	return &UpsertPreferenceCommand{preferences: preferences}
}

func (c *UpsertPreferenceCommand) Execute(ctx context.Context, msg UpsertPreferenceMessage) error {
	if c == nil || c.preferences == nil {
		return commandDependencyError("command: preference store is required")
	}
	out, err := c.preferences.Upsert(ctx, msg.Preference)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
