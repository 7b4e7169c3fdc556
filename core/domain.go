package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidClientStatusTransition       = errors.New("core: invalid client status transition")
	ErrInvalidSubscriptionStatusTransition = errors.New("core: invalid subscription status transition")
	ErrInvalidRunStatusTransition          = errors.New("core: invalid onboarding run status transition")
	ErrInvalidDeliveryStatusTransition     = errors.New("core: invalid email delivery status transition")
)

// InboundEvent is a billing provider webhook payload after the raw body
// has passed signature verification. It only lives for one request.
type InboundEvent struct {
	ID        string
	Type      string
	CreatedAt time.Time
	Payload   []byte
}

func (e InboundEvent) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("core: event id is required")
	}
	if strings.TrimSpace(e.Type) == "" {
		return fmt.Errorf("core: event type is required")
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("core: event created_at is required")
	}
	return nil
}

type IdempotencyRecord struct {
	EventID     string
	ProcessedAt time.Time
	Outcome     string
}

// DeadLetterRecord captures a handler failure with enough context for a
// manual replay. Append-only; the pipeline never deletes one.
type DeadLetterRecord struct {
	ID              string
	EventID         string
	EventType       string
	ErrorMessage    string
	ErrorStack      string
	PayloadSnapshot []byte
	RecordedAt      time.Time
}

type ClientStatus string

const (
	ClientStatusLead      ClientStatus = "lead"
	ClientStatusActive    ClientStatus = "active"
	ClientStatusPastDue   ClientStatus = "past_due"
	ClientStatusCancelled ClientStatus = "cancelled"
)

type Client struct {
	ID           string
	CompanyName  string
	ContactName  string
	ContactEmail string
	Status       ClientStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (c *Client) TransitionTo(status ClientStatus, now time.Time) error {
	if c == nil {
		return fmt.Errorf("core: client is required")
	}
	if c.Status == status {
		c.UpdatedAt = now.UTC()
		return nil
	}
	if !clientTransitionAllowed(c.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidClientStatusTransition, c.Status, status)
	}
	c.Status = status
	c.UpdatedAt = now.UTC()
	return nil
}

func clientTransitionAllowed(current, next ClientStatus) bool {
	allowed := map[ClientStatus]map[ClientStatus]struct{}{
		ClientStatusLead: {
			ClientStatusActive:    {},
			ClientStatusCancelled: {},
		},
		ClientStatusActive: {
			ClientStatusPastDue:   {},
			ClientStatusCancelled: {},
		},
		ClientStatusPastDue: {
			ClientStatusActive:    {},
			ClientStatusCancelled: {},
		},
		ClientStatusCancelled: {
			ClientStatusActive: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// BillingSubscription mirrors the billing provider subscription object
// as far as the handlers need it.
type BillingSubscription struct {
	ID                 string
	ClientID           string
	ProviderCustomerID string
	PlanCode           string
	Status             SubscriptionStatus
	CurrentPeriodEnd   *time.Time
	Metadata           map[string]any
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (s *BillingSubscription) TransitionTo(status SubscriptionStatus, now time.Time) error {
	if s == nil {
		return fmt.Errorf("core: subscription is required")
	}
	if s.Status == status {
		s.UpdatedAt = now.UTC()
		return nil
	}
	if !subscriptionTransitionAllowed(s.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidSubscriptionStatusTransition, s.Status, status)
	}
	s.Status = status
	s.UpdatedAt = now.UTC()
	return nil
}

func subscriptionTransitionAllowed(current, next SubscriptionStatus) bool {
	allowed := map[SubscriptionStatus]map[SubscriptionStatus]struct{}{
		SubscriptionStatusActive: {
			SubscriptionStatusPastDue:   {},
			SubscriptionStatusCancelled: {},
		},
		SubscriptionStatusPastDue: {
			SubscriptionStatusActive:    {},
			SubscriptionStatusCancelled: {},
		},
		SubscriptionStatusCancelled: {},
	}
	_, ok := allowed[current][next]
	return ok
}

type RunStatus string

const (
	RunStatusNotStarted RunStatus = "not_started"
	RunStatusRunning    RunStatus = "running"
	RunStatusCompleted  RunStatus = "completed"
)

// StepResult is the outcome of one provisioning step. Results are
// independent of their siblings: one failure never blanks another
// step's output.
type StepResult struct {
	StepName   string         `json:"step_name"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	OutputData map[string]any `json:"output_data,omitempty"`
}

type OnboardingRun struct {
	ID                string
	ClientID          string
	TriggeringEventID string
	Status            RunStatus
	Steps             []StepResult
	StartedAt         time.Time
	CompletedAt       *time.Time
	OverallSuccess    bool
}

func (r *OnboardingRun) TransitionTo(status RunStatus, now time.Time) error {
	if r == nil {
		return fmt.Errorf("core: onboarding run is required")
	}
	if r.Status == status {
		return nil
	}
	if !runTransitionAllowed(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidRunStatusTransition, r.Status, status)
	}
	r.Status = status
	if status == RunStatusCompleted {
		completed := now.UTC()
		r.CompletedAt = &completed
	}
	return nil
}

func runTransitionAllowed(current, next RunStatus) bool {
	allowed := map[RunStatus]map[RunStatus]struct{}{
		RunStatusNotStarted: {
			RunStatusRunning: {},
		},
		RunStatusRunning: {
			RunStatusCompleted: {},
		},
		RunStatusCompleted: {},
	}
	_, ok := allowed[current][next]
	return ok
}

// FailureSummaries collects the failed step messages, prefixed by step
// name, for operator alerts.
func (r OnboardingRun) FailureSummaries() []string {
	var out []string
	for _, step := range r.Steps {
		if step.Success {
			continue
		}
		message := strings.TrimSpace(step.Error)
		if message == "" {
			message = "step failed"
		}
		out = append(out, step.StepName+": "+message)
	}
	return out
}

type EmailDeliveryStatus string

const (
	EmailDeliveryStatusPending EmailDeliveryStatus = "pending"
	EmailDeliveryStatusSent    EmailDeliveryStatus = "sent"
	EmailDeliveryStatusFailed  EmailDeliveryStatus = "failed"
	EmailDeliveryStatusSkipped EmailDeliveryStatus = "skipped"
)

type EmailDeliveryLog struct {
	ID                string
	Recipient         string
	EmailType         string
	Status            EmailDeliveryStatus
	ProviderMessageID string
	Error             string
	RetryCount        int
	SentAt            *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (l *EmailDeliveryLog) TransitionTo(status EmailDeliveryStatus, now time.Time) error {
	if l == nil {
		return fmt.Errorf("core: email delivery log is required")
	}
	if l.Status == status {
		l.UpdatedAt = now.UTC()
		return nil
	}
	if !deliveryTransitionAllowed(l.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidDeliveryStatusTransition, l.Status, status)
	}
	l.Status = status
	l.UpdatedAt = now.UTC()
	if status == EmailDeliveryStatusSent {
		sent := now.UTC()
		l.SentAt = &sent
	}
	return nil
}

func deliveryTransitionAllowed(current, next EmailDeliveryStatus) bool {
	allowed := map[EmailDeliveryStatus]map[EmailDeliveryStatus]struct{}{
		EmailDeliveryStatusPending: {
			EmailDeliveryStatusSent:   {},
			EmailDeliveryStatusFailed: {},
		},
		EmailDeliveryStatusSent:    {},
		EmailDeliveryStatusFailed:  {},
		EmailDeliveryStatusSkipped: {},
	}
	_, ok := allowed[current][next]
	return ok
}

// EmailPreference gates non-critical sends. A missing preference row
// defaults to allowed.
type EmailPreference struct {
	UserID           string
	EmailEnabled     bool
	PerCategoryFlags map[string]bool
	UpdatedAt        time.Time
}

// Allows reports whether the recipient accepts the given category.
func (p EmailPreference) Allows(category string) bool {
	if !p.EmailEnabled {
		return false
	}
	category = strings.TrimSpace(strings.ToLower(category))
	if category == "" {
		return true
	}
	if enabled, ok := p.PerCategoryFlags[category]; ok {
		return enabled
	}
	return true
}
