package orchestrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/notify"
)

const WelcomeStepName = "welcome_email"

// WelcomeEmailStep sends the client welcome email as the final
// provisioning step. Links from earlier steps appear when those steps
// succeeded; the email still goes out without them.
type WelcomeEmailStep struct {
	Notifier *notify.Service
}

func NewWelcomeEmailStep(notifier *notify.Service) *WelcomeEmailStep {
	return &WelcomeEmailStep{Notifier: notifier}
}

func (*WelcomeEmailStep) Name() string {
	return WelcomeStepName
}

func (s *WelcomeEmailStep) Create(ctx context.Context, req core.ProvisionRequest) (core.ProvisionResult, error) {
	if s == nil || s.Notifier == nil {
		return core.ProvisionResult{}, fmt.Errorf("orchestrate: welcome step requires a notification service")
	}
	recipient := strings.TrimSpace(req.Client.ContactEmail)
	if recipient == "" {
		return core.ProvisionResult{}, fmt.Errorf("orchestrate: client contact email is required")
	}

	result, err := s.Notifier.Send(ctx, core.Email{
		To:           recipient,
		Subject:      "Welcome to your new workspace",
		TemplateName: notify.TemplateWelcome,
		Category:     "onboarding",
		Data: map[string]any{
			"CompanyName":   req.Client.CompanyName,
			"ContactName":   req.Client.ContactName,
			"ProjectURL":    priorOutput(req.PriorOutputs, "linear_project", "project_url"),
			"DesignFileURL": priorOutput(req.PriorOutputs, "figma_file", "file_url"),
			"RepositoryURL": priorOutput(req.PriorOutputs, "github_repo", "repo_url"),
		},
	})
	if err != nil {
		return core.ProvisionResult{}, err
	}
	if result.Outcome == notify.OutcomeFailed {
		return core.ProvisionResult{}, fmt.Errorf("orchestrate: welcome email delivery failed")
	}

	return core.ProvisionResult{
		OutputData: map[string]any{
			"delivery_log_id": result.LogID,
			"outcome":         string(result.Outcome),
		},
	}, nil
}

func priorOutput(outputs map[string]map[string]any, step string, key string) string {
	values, ok := outputs[step]
	if !ok {
		return ""
	}
	text, _ := values[key].(string)
	return strings.TrimSpace(text)
}

var _ core.StepExecutor = (*WelcomeEmailStep)(nil)
