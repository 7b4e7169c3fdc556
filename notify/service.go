package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-onboarding/core"
	"github.com/google/uuid"
)

const defaultBatchConcurrency = 5

type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeOptedOut    Outcome = "opted_out"
	OutcomeRateLimited Outcome = "rate_limited"
	OutcomeFailed      Outcome = "failed"
)

type SendResult struct {
	Outcome  Outcome
	LogID    string
	Attempts int
}

// Service runs the delivery pipeline: preference gate, per-recipient
// rate limit, render, provider send with bounded retries, delivery log.
// Skips are normal outcomes, not errors.
type Service struct {
	Preferences core.EmailPreferenceStore
	Limiter     core.RateLimiter
	Mailer      core.Mailer
	Log         core.EmailDeliveryLogStore
	Renderer    *TemplateRenderer
	Policy      RetryPolicy
	Sleep       Sleeper
	Concurrency int
	Pipeline    *core.Service
	Now         func() time.Time
}

func NewService(
	preferences core.EmailPreferenceStore,
	limiter core.RateLimiter,
	mailer core.Mailer,
	log core.EmailDeliveryLogStore,
	renderer *TemplateRenderer,
) *Service {
	return &Service{
		Preferences: preferences,
		Limiter:     limiter,
		Mailer:      mailer,
		Log:         log,
		Renderer:    renderer,
		Policy:      RetryPolicy{},
		Sleep:       DefaultSleeper,
		Concurrency: defaultBatchConcurrency,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *Service) Send(ctx context.Context, email core.Email) (SendResult, error) {
	if s == nil || s.Mailer == nil || s.Renderer == nil {
		return SendResult{}, fmt.Errorf("notify: service requires mailer and renderer")
	}
	recipient := strings.TrimSpace(email.To)
	if recipient == "" {
		return SendResult{}, fmt.Errorf("notify: recipient is required")
	}
	email.To = recipient
	startedAt := s.now()

	if s.Preferences != nil {
		preference, found, err := s.Preferences.Get(ctx, recipient)
		if err != nil {
			return SendResult{}, err
		}
		if found && !preference.Allows(email.Category) {
			result := SendResult{Outcome: OutcomeOptedOut}
			result.LogID = s.writeSkipLog(ctx, email, "recipient opted out")
			s.observe(ctx, startedAt, "notify_send", nil, map[string]any{
				"recipient": recipient,
				"outcome":   string(OutcomeOptedOut),
			})
			return result, nil
		}
	}

	if s.Limiter != nil {
		allowed, err := s.Limiter.Allow(ctx, recipient)
		if err != nil {
			return SendResult{}, err
		}
		if !allowed {
			result := SendResult{Outcome: OutcomeRateLimited}
			result.LogID = s.writeSkipLog(ctx, email, "rate limited")
			s.observe(ctx, startedAt, "notify_send", nil, map[string]any{
				"recipient": recipient,
				"outcome":   string(OutcomeRateLimited),
			})
			return result, nil
		}
	}

	html, err := s.Renderer.Render(email.TemplateName, email.Data)
	if err != nil {
		s.observe(ctx, startedAt, "notify_render", err, map[string]any{"recipient": recipient})
		return SendResult{Outcome: OutcomeFailed}, err
	}

	entry := core.EmailDeliveryLog{
		ID:        uuid.NewString(),
		Recipient: recipient,
		EmailType: strings.TrimSpace(email.TemplateName),
		Status:    core.EmailDeliveryStatusPending,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	if s.Log != nil {
		stored, err := s.Log.Create(ctx, entry)
		if err != nil {
			return SendResult{}, err
		}
		entry = stored
	}

	var receipt core.MailerReceipt
	attempts, sendErr := Run(ctx, s.Policy, s.Sleep, func(ctx context.Context) error {
		var attemptErr error
		receipt, attemptErr = s.Mailer.Send(ctx, email, html)
		return attemptErr
	})

	entry.RetryCount = attempts - 1
	if sendErr != nil {
		entry.Error = sendErr.Error()
		_ = entry.TransitionTo(core.EmailDeliveryStatusFailed, s.now())
		s.updateLog(ctx, entry)
		s.observe(ctx, startedAt, "notify_send", sendErr, map[string]any{
			"recipient": recipient,
			"attempts":  attempts,
		})
		return SendResult{Outcome: OutcomeFailed, LogID: entry.ID, Attempts: attempts}, sendErr
	}

	entry.ProviderMessageID = receipt.ProviderMessageID
	_ = entry.TransitionTo(core.EmailDeliveryStatusSent, s.now())
	s.updateLog(ctx, entry)
	s.observe(ctx, startedAt, "notify_send", nil, map[string]any{
		"recipient": recipient,
		"attempts":  attempts,
		"outcome":   string(OutcomeSent),
	})
	return SendResult{Outcome: OutcomeSent, LogID: entry.ID, Attempts: attempts}, nil
}

// SendBatch fans the emails out over a bounded worker pool. Results are
// positional; one recipient's failure never stops the others.
func (s *Service) SendBatch(ctx context.Context, emails []core.Email) []SendResult {
	results := make([]SendResult, len(emails))
	if s == nil || len(emails) == 0 {
		return results
	}
	concurrency := s.Concurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	if concurrency > len(emails) {
		concurrency = len(emails)
	}

	type indexed struct {
		index int
		email core.Email
	}
	work := make(chan indexed)
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				result, err := s.Send(ctx, item.email)
				if err != nil && result.Outcome == "" {
					result.Outcome = OutcomeFailed
				}
				results[item.index] = result
			}
		}()
	}
	for i, email := range emails {
		work <- indexed{index: i, email: email}
	}
	close(work)
	wg.Wait()
	return results
}

func (s *Service) writeSkipLog(ctx context.Context, email core.Email, reason string) string {
	if s == nil || s.Log == nil {
		return ""
	}
	entry := core.EmailDeliveryLog{
		ID:        uuid.NewString(),
		Recipient: email.To,
		EmailType: strings.TrimSpace(email.TemplateName),
		Status:    core.EmailDeliveryStatusSkipped,
		Error:     reason,
		CreatedAt: s.now(),
		UpdatedAt: s.now(),
	}
	stored, err := s.Log.Create(ctx, entry)
	if err != nil {
		s.logError(ctx, "skip log write failed", map[string]any{
			"recipient": email.To,
			"error":     err.Error(),
		})
		return ""
	}
	return stored.ID
}

func (s *Service) updateLog(ctx context.Context, entry core.EmailDeliveryLog) {
	if s == nil || s.Log == nil {
		return
	}
	if _, err := s.Log.Update(ctx, entry); err != nil {
		s.logError(ctx, "delivery log update failed", map[string]any{
			"log_id": entry.ID,
			"error":  err.Error(),
		})
	}
}

func (s *Service) observe(ctx context.Context, startedAt time.Time, operation string, err error, fields map[string]any) {
	if s == nil || s.Pipeline == nil {
		return
	}
	s.Pipeline.ObserveOperation(ctx, startedAt, operation, err, fields)
}

func (s *Service) logError(ctx context.Context, message string, fields map[string]any) {
	if s == nil || s.Pipeline == nil {
		return
	}
	s.Pipeline.LogError(ctx, message, fields)
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
