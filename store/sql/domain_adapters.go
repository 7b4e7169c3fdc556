package sqlstore

import (
	"time"

	"github.com/goliatone/go-onboarding/core"
)

func (r *deadLetterRecord) toDomain() core.DeadLetterRecord {
	if r == nil {
		return core.DeadLetterRecord{}
	}
	return core.DeadLetterRecord{
		ID:              r.ID,
		EventID:         r.EventID,
		EventType:       r.EventType,
		ErrorMessage:    r.ErrorMessage,
		ErrorStack:      r.ErrorStack,
		PayloadSnapshot: append([]byte(nil), r.PayloadSnapshot...),
		RecordedAt:      r.RecordedAt,
	}
}

func newDeadLetterRecord(in core.DeadLetterRecord) *deadLetterRecord {
	return &deadLetterRecord{
		ID:              in.ID,
		EventID:         in.EventID,
		EventType:       in.EventType,
		ErrorMessage:    in.ErrorMessage,
		ErrorStack:      in.ErrorStack,
		PayloadSnapshot: append([]byte(nil), in.PayloadSnapshot...),
		RecordedAt:      in.RecordedAt,
	}
}

func (r *onboardingRunRecord) toDomain() core.OnboardingRun {
	if r == nil {
		return core.OnboardingRun{}
	}
	steps := make([]core.StepResult, 0, len(r.Steps))
	for _, step := range r.Steps {
		steps = append(steps, core.StepResult{
			StepName:   step.StepName,
			Success:    step.Success,
			Error:      step.Error,
			OutputData: copyAnyMap(step.OutputData),
		})
	}
	return core.OnboardingRun{
		ID:                r.ID,
		ClientID:          r.ClientID,
		TriggeringEventID: r.TriggeringEventID,
		Status:            core.RunStatus(r.Status),
		Steps:             steps,
		StartedAt:         r.StartedAt,
		CompletedAt:       copyTimePtr(r.CompletedAt),
		OverallSuccess:    r.OverallSuccess,
	}
}

func newOnboardingRunRecord(in core.OnboardingRun) *onboardingRunRecord {
	steps := make([]stepResultJSON, 0, len(in.Steps))
	for _, step := range in.Steps {
		steps = append(steps, stepResultJSON{
			StepName:   step.StepName,
			Success:    step.Success,
			Error:      step.Error,
			OutputData: copyAnyMap(step.OutputData),
		})
	}
	return &onboardingRunRecord{
		ID:                in.ID,
		ClientID:          in.ClientID,
		TriggeringEventID: in.TriggeringEventID,
		Status:            string(in.Status),
		Steps:             steps,
		StartedAt:         in.StartedAt,
		CompletedAt:       copyTimePtr(in.CompletedAt),
		OverallSuccess:    in.OverallSuccess,
	}
}

func (r *emailLogRecord) toDomain() core.EmailDeliveryLog {
	if r == nil {
		return core.EmailDeliveryLog{}
	}
	return core.EmailDeliveryLog{
		ID:                r.ID,
		Recipient:         r.Recipient,
		EmailType:         r.EmailType,
		Status:            core.EmailDeliveryStatus(r.Status),
		ProviderMessageID: r.ProviderMessageID,
		Error:             r.Error,
		RetryCount:        r.RetryCount,
		SentAt:            copyTimePtr(r.SentAt),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func newEmailLogRecord(in core.EmailDeliveryLog) *emailLogRecord {
	return &emailLogRecord{
		ID:                in.ID,
		Recipient:         in.Recipient,
		EmailType:         in.EmailType,
		Status:            string(in.Status),
		ProviderMessageID: in.ProviderMessageID,
		Error:             in.Error,
		RetryCount:        in.RetryCount,
		SentAt:            copyTimePtr(in.SentAt),
		CreatedAt:         in.CreatedAt,
		UpdatedAt:         in.UpdatedAt,
	}
}

func (r *emailPreferenceRecord) toDomain() core.EmailPreference {
	if r == nil {
		return core.EmailPreference{}
	}
	return core.EmailPreference{
		UserID:           r.UserID,
		EmailEnabled:     r.EmailEnabled,
		PerCategoryFlags: copyBoolMap(r.PerCategoryFlags),
		UpdatedAt:        r.UpdatedAt,
	}
}

func newEmailPreferenceRecord(in core.EmailPreference) *emailPreferenceRecord {
	return &emailPreferenceRecord{
		UserID:           in.UserID,
		EmailEnabled:     in.EmailEnabled,
		PerCategoryFlags: copyBoolMap(in.PerCategoryFlags),
		UpdatedAt:        in.UpdatedAt,
	}
}

func (r *clientRecord) toDomain() core.Client {
	if r == nil {
		return core.Client{}
	}
	return core.Client{
		ID:           r.ID,
		CompanyName:  r.CompanyName,
		ContactName:  r.ContactName,
		ContactEmail: r.ContactEmail,
		Status:       core.ClientStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func newClientRecord(in core.Client) *clientRecord {
	return &clientRecord{
		ID:           in.ID,
		CompanyName:  in.CompanyName,
		ContactName:  in.ContactName,
		ContactEmail: in.ContactEmail,
		Status:       string(in.Status),
		CreatedAt:    in.CreatedAt,
		UpdatedAt:    in.UpdatedAt,
	}
}

func (r *subscriptionRecord) toDomain() core.BillingSubscription {
	if r == nil {
		return core.BillingSubscription{}
	}
	return core.BillingSubscription{
		ID:                 r.ID,
		ClientID:           r.ClientID,
		ProviderCustomerID: r.ProviderCustomerID,
		PlanCode:           r.PlanCode,
		Status:             core.SubscriptionStatus(r.Status),
		CurrentPeriodEnd:   copyTimePtr(r.CurrentPeriodEnd),
		Metadata:           copyAnyMap(r.Metadata),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func newSubscriptionRecord(in core.BillingSubscription) *subscriptionRecord {
	metadata := copyAnyMap(in.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &subscriptionRecord{
		ID:                 in.ID,
		ClientID:           in.ClientID,
		ProviderCustomerID: in.ProviderCustomerID,
		PlanCode:           in.PlanCode,
		Status:             string(in.Status),
		CurrentPeriodEnd:   copyTimePtr(in.CurrentPeriodEnd),
		Metadata:           metadata,
		CreatedAt:          in.CreatedAt,
		UpdatedAt:          in.UpdatedAt,
	}
}

func copyAnyMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyBoolMap(in map[string]bool) map[string]bool {
	if in == nil {
		return nil
	}
	out := make(map[string]bool, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func copyTimePtr(in *time.Time) *time.Time {
	if in == nil {
		return nil
	}
	value := *in
	return &value
}
