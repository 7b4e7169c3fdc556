package orchestrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/notify"
)

// EmailAlerter notifies every admin recipient when a run finishes with
// failed steps. It sends through the notification service so alerts go
// through the same delivery log as everything else.
type EmailAlerter struct {
	Notifier   *notify.Service
	Recipients []string
}

func NewEmailAlerter(notifier *notify.Service, recipients []string) *EmailAlerter {
	return &EmailAlerter{
		Notifier:   notifier,
		Recipients: append([]string(nil), recipients...),
	}
}

func (a *EmailAlerter) Alert(ctx context.Context, run core.OnboardingRun) error {
	if a == nil || a.Notifier == nil {
		return fmt.Errorf("orchestrate: alerter requires a notification service")
	}
	if len(a.Recipients) == 0 {
		return fmt.Errorf("orchestrate: alerter requires at least one recipient")
	}

	succeeded := 0
	for _, step := range run.Steps {
		if step.Success {
			succeeded++
		}
	}
	data := map[string]any{
		"RunID":          run.ID,
		"ClientID":       run.ClientID,
		"Failures":       run.FailureSummaries(),
		"SucceededCount": succeeded,
		"TotalCount":     len(run.Steps),
	}

	emails := make([]core.Email, 0, len(a.Recipients))
	for _, recipient := range a.Recipients {
		recipient = strings.TrimSpace(recipient)
		if recipient == "" {
			continue
		}
		emails = append(emails, core.Email{
			To:           recipient,
			Subject:      fmt.Sprintf("Onboarding run %s needs attention", run.ID),
			TemplateName: notify.TemplateAdminAlert,
			Category:     "admin_alert",
			Data:         data,
		})
	}
	if len(emails) == 0 {
		return fmt.Errorf("orchestrate: alerter requires at least one recipient")
	}

	results := a.Notifier.SendBatch(ctx, emails)
	failed := 0
	for _, result := range results {
		if result.Outcome == notify.OutcomeFailed {
			failed++
		}
	}
	if failed == len(results) {
		return fmt.Errorf("orchestrate: every admin alert delivery failed")
	}
	return nil
}

var _ core.AdminAlerter = (*EmailAlerter)(nil)
