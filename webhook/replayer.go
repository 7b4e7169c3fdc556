package webhook

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-onboarding/core"
)

// Replayer re-runs a dead-lettered event through the dispatcher. The
// original delivery already passed the signature, freshness and
// idempotency gates, so a replay skips them and goes straight to the
// handler.
type Replayer struct {
	DeadLetters core.DeadLetterStore
	Dispatcher  *Dispatcher
	Service     *core.Service
	Now         func() time.Time
}

func NewReplayer(deadLetters core.DeadLetterStore, dispatcher *Dispatcher) *Replayer {
	return &Replayer{
		DeadLetters: deadLetters,
		Dispatcher:  dispatcher,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Replay loads the stored payload snapshot and dispatches it again. A
// handler that fails again surfaces the error to the operator instead
// of writing another dead letter.
func (r *Replayer) Replay(ctx context.Context, deadLetterID string) (core.InboundEvent, error) {
	if r == nil || r.DeadLetters == nil || r.Dispatcher == nil {
		return core.InboundEvent{}, webhookInternal("webhook: replayer requires dead letter store and dispatcher", nil)
	}
	deadLetterID = strings.TrimSpace(deadLetterID)
	if deadLetterID == "" {
		return core.InboundEvent{}, webhookBadInput("webhook: dead letter id is required", nil)
	}
	startedAt := r.now()

	record, err := r.DeadLetters.Get(ctx, deadLetterID)
	if err != nil {
		return core.InboundEvent{}, err
	}

	event, err := parseEvent(record.PayloadSnapshot)
	if err != nil {
		return core.InboundEvent{}, err
	}

	fields := map[string]any{
		"event_id":   event.ID,
		"event_type": event.Type,
	}
	handled, err := r.Dispatcher.Dispatch(ctx, event)
	if r.Service != nil {
		r.Service.ObserveOperation(ctx, startedAt, "webhook_replay", err, fields)
	}
	if err != nil {
		return event, err
	}
	if !handled {
		return event, webhookBadInput("webhook: no handler registered for replayed event type", map[string]any{
			"event_type": event.Type,
		})
	}
	return event, nil
}

func (r *Replayer) now() time.Time {
	if r != nil && r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
