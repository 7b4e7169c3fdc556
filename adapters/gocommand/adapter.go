// Package gocommand wires the onboarding command set into the
// go-command registry and dispatcher.
package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	onboardingcmd "github.com/goliatone/go-onboarding/command"
	"github.com/goliatone/go-onboarding/core"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.AddResolver(key, jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd command.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// OnboardingCommandSet bundles the operator command handlers.
type OnboardingCommandSet struct {
	Replayer     onboardingcmd.DeadLetterReplayer
	Orchestrator onboardingcmd.RunRetriggerer
	Sender       onboardingcmd.EmailSender
	Clients      core.ClientStore
	Preferences  core.EmailPreferenceStore
}

// RegisterOnboardingCommands registers and subscribes every operator
// command whose dependencies are present. It returns the subscriptions
// so the host can tear them down.
func RegisterOnboardingCommands(
	adapter *RegistryAdapter,
	set OnboardingCommandSet,
	runnerOpts ...runner.Option,
) ([]commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}

	var subscriptions []commanddispatcher.Subscription
	cleanup := func() {
		for _, subscription := range subscriptions {
			if subscription != nil {
				subscription.Unsubscribe()
			}
		}
	}

	if set.Replayer != nil {
		subscription, err := RegisterAndSubscribe(
			adapter,
			onboardingcmd.NewReplayDeadLetterCommand(set.Replayer),
			runnerOpts...,
		)
		if err != nil {
			cleanup()
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}

	if set.Orchestrator != nil && set.Clients != nil {
		subscription, err := RegisterAndSubscribe(
			adapter,
			onboardingcmd.NewRetriggerRunCommand(set.Orchestrator, set.Clients),
			runnerOpts...,
		)
		if err != nil {
			cleanup()
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}

	if set.Sender != nil {
		subscription, err := RegisterAndSubscribe(
			adapter,
			onboardingcmd.NewSendEmailCommand(set.Sender),
			runnerOpts...,
		)
		if err != nil {
			cleanup()
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}

	if set.Preferences != nil {
		subscription, err := RegisterAndSubscribe(
			adapter,
			onboardingcmd.NewUpsertPreferenceCommand(set.Preferences),
			runnerOpts...,
		)
		if err != nil {
			cleanup()
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}

	if len(subscriptions) == 0 {
		return nil, fmt.Errorf("gocommand: no command dependencies provided")
	}
	return subscriptions, nil
}
