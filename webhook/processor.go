package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-onboarding/core"
	"github.com/google/uuid"
)

const (
	MessageProcessed        = "Event processed"
	MessageDuplicate        = "Duplicate event"
	MessageUnknownType      = "Event type not handled"
	MessageInvalidSignature = "Invalid signature"
	MessageBadPayload       = "Invalid payload"
	MessageExpired          = "Event expired"
	MessageHandlerFailed    = "Event received, processing failed"
)

// Receipt is the settled outcome of one delivery.
type Receipt struct {
	Processed bool
	Message   string
	Outcome   core.GateOutcome
}

// Processor runs the ingestion gates in a fixed order: signature,
// freshness, idempotency claim, dispatch. A later gate never runs when
// an earlier one rejects, so an invalid delivery can neither consume an
// idempotency slot nor reach a handler.
type Processor struct {
	Verifier    Verifier
	Guard       *ReplayGuard
	Ledger      core.IdempotencyLedger
	Dispatcher  *Dispatcher
	DeadLetters core.DeadLetterStore
	Service     *core.Service
	Now         func() time.Time
}

func NewProcessor(
	verifier Verifier,
	guard *ReplayGuard,
	ledger core.IdempotencyLedger,
	dispatcher *Dispatcher,
	deadLetters core.DeadLetterStore,
) *Processor {
	return &Processor{
		Verifier:    verifier,
		Guard:       guard,
		Ledger:      ledger,
		Dispatcher:  dispatcher,
		DeadLetters: deadLetters,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type eventEnvelope struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt string          `json:"created_at"`
	Created   int64           `json:"created"`
	Data      json.RawMessage `json:"data"`
}

// Process settles one raw delivery. Handler failures are absorbed into
// a dead letter and an acknowledged receipt; only infrastructure
// failures surface as errors.
func (p *Processor) Process(ctx context.Context, headers map[string]string, body []byte) (Receipt, error) {
	if p == nil || p.Ledger == nil || p.Dispatcher == nil {
		return Receipt{}, webhookInternal("webhook: processor requires ledger and dispatcher", nil)
	}
	startedAt := p.now()

	if p.Verifier != nil {
		if err := p.Verifier.Verify(ctx, headers, body); err != nil {
			p.observe(ctx, startedAt, "webhook_verify", err, map[string]any{})
			return Receipt{
				Processed: false,
				Message:   MessageInvalidSignature,
				Outcome:   core.GateOutcomeInvalid,
			}, err
		}
	}

	event, err := parseEvent(body)
	if err != nil {
		p.observe(ctx, startedAt, "webhook_parse", err, map[string]any{})
		return Receipt{
			Processed: false,
			Message:   MessageBadPayload,
			Outcome:   core.GateOutcomeInvalid,
		}, err
	}

	fields := map[string]any{
		"event_id":   event.ID,
		"event_type": event.Type,
	}

	if p.Guard != nil {
		if err := p.Guard.Check(event.CreatedAt); err != nil {
			p.observe(ctx, startedAt, "webhook_freshness", err, fields)
			return Receipt{
				Processed: false,
				Message:   MessageExpired,
				Outcome:   core.GateOutcomeExpired,
			}, err
		}
	}

	claimed, err := p.Ledger.Claim(ctx, event.ID)
	if err != nil {
		p.observe(ctx, startedAt, "webhook_claim", err, fields)
		return Receipt{Outcome: core.GateOutcomeVerified}, err
	}
	if !claimed {
		p.observe(ctx, startedAt, "webhook_dedupe", nil, fields)
		return Receipt{
			Processed: false,
			Message:   MessageDuplicate,
			Outcome:   core.GateOutcomeDuplicate,
		}, nil
	}

	handled, err := p.Dispatcher.Dispatch(ctx, event)
	if err != nil {
		p.recordDeadLetter(ctx, event, err)
		p.observe(ctx, startedAt, "webhook_handle", err, fields)
		return Receipt{
			Processed: true,
			Message:   MessageHandlerFailed,
			Outcome:   core.GateOutcomeVerified,
		}, nil
	}

	message := MessageProcessed
	if !handled {
		message = MessageUnknownType
	}
	p.observe(ctx, startedAt, "webhook_handle", nil, fields)
	return Receipt{
		Processed: true,
		Message:   message,
		Outcome:   core.GateOutcomeVerified,
	}, nil
}

func (p *Processor) recordDeadLetter(ctx context.Context, event core.InboundEvent, cause error) {
	if p == nil || p.DeadLetters == nil || cause == nil {
		return
	}
	record := core.DeadLetterRecord{
		ID:              uuid.NewString(),
		EventID:         event.ID,
		EventType:       event.Type,
		ErrorMessage:    cause.Error(),
		ErrorStack:      fmt.Sprintf("%+v", cause),
		PayloadSnapshot: append([]byte(nil), event.Payload...),
		RecordedAt:      p.now(),
	}
	if _, err := p.DeadLetters.Record(ctx, record); err != nil && p.Service != nil {
		p.Service.LogError(ctx, "dead letter write failed", map[string]any{
			"event_id": event.ID,
			"error":    err.Error(),
		})
	}
}

func parseEvent(body []byte) (core.InboundEvent, error) {
	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return core.InboundEvent{}, webhookWrapError(
			err,
			goerrors.CategoryBadInput,
			"webhook: invalid event payload",
			http.StatusBadRequest,
			core.OnboardingErrorBadInput,
			nil,
		)
	}
	createdAt := time.Time{}
	if raw := strings.TrimSpace(envelope.CreatedAt); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return core.InboundEvent{}, webhookBadInput("webhook: invalid event created_at", nil)
		}
		createdAt = parsed.UTC()
	} else if envelope.Created > 0 {
		createdAt = time.Unix(envelope.Created, 0).UTC()
	}
	event := core.InboundEvent{
		ID:        strings.TrimSpace(envelope.ID),
		Type:      strings.TrimSpace(envelope.Type),
		CreatedAt: createdAt,
		Payload:   append([]byte(nil), body...),
	}
	if err := event.Validate(); err != nil {
		return core.InboundEvent{}, webhookWrapError(
			err,
			goerrors.CategoryBadInput,
			"webhook: invalid event payload",
			http.StatusBadRequest,
			core.OnboardingErrorBadInput,
			nil,
		)
	}
	return event, nil
}

func (p *Processor) observe(ctx context.Context, startedAt time.Time, operation string, err error, fields map[string]any) {
	if p == nil || p.Service == nil {
		return
	}
	p.Service.ObserveOperation(ctx, startedAt, operation, err, fields)
}

func (p *Processor) now() time.Time {
	if p != nil && p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}
