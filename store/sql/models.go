package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type processedEventRecord struct {
	bun.BaseModel `bun:"table:onboarding_processed_events,alias:ope"`

	ID          string    `bun:"id,pk"`
	EventID     string    `bun:"event_id,notnull,unique"`
	Outcome     string    `bun:"outcome"`
	ProcessedAt time.Time `bun:"processed_at,nullzero,notnull,default:current_timestamp"`
}

type deadLetterRecord struct {
	bun.BaseModel `bun:"table:onboarding_dead_letters,alias:odl"`

	ID              string    `bun:"id,pk"`
	EventID         string    `bun:"event_id,notnull"`
	EventType       string    `bun:"event_type,notnull"`
	ErrorMessage    string    `bun:"error_message,notnull"`
	ErrorStack      string    `bun:"error_stack"`
	PayloadSnapshot []byte    `bun:"payload_snapshot"`
	RecordedAt      time.Time `bun:"recorded_at,nullzero,notnull,default:current_timestamp"`
}

type onboardingRunRecord struct {
	bun.BaseModel `bun:"table:onboarding_runs,alias:orn"`

	ID                string           `bun:"id,pk"`
	ClientID          string           `bun:"client_id,notnull"`
	TriggeringEventID string           `bun:"triggering_event_id"`
	Status            string           `bun:"status,notnull"`
	Steps             []stepResultJSON `bun:"steps,type:jsonb,notnull"`
	StartedAt         time.Time        `bun:"started_at,nullzero,notnull"`
	CompletedAt       *time.Time       `bun:"completed_at,nullzero"`
	OverallSuccess    bool             `bun:"overall_success,notnull"`
}

type stepResultJSON struct {
	StepName   string         `json:"step_name"`
	Success    bool           `json:"success"`
	Error      string         `json:"error,omitempty"`
	OutputData map[string]any `json:"output_data,omitempty"`
}

type emailLogRecord struct {
	bun.BaseModel `bun:"table:onboarding_email_log,alias:oel"`

	ID                string     `bun:"id,pk"`
	Recipient         string     `bun:"recipient,notnull"`
	EmailType         string     `bun:"email_type,notnull"`
	Status            string     `bun:"status,notnull"`
	ProviderMessageID string     `bun:"provider_message_id"`
	Error             string     `bun:"error"`
	RetryCount        int        `bun:"retry_count,notnull"`
	SentAt            *time.Time `bun:"sent_at,nullzero"`
	CreatedAt         time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt         time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type emailPreferenceRecord struct {
	bun.BaseModel `bun:"table:onboarding_email_preferences,alias:oep"`

	UserID           string          `bun:"user_id,pk"`
	EmailEnabled     bool            `bun:"email_enabled,notnull"`
	PerCategoryFlags map[string]bool `bun:"per_category_flags,type:jsonb,notnull"`
	UpdatedAt        time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type clientRecord struct {
	bun.BaseModel `bun:"table:onboarding_clients,alias:ocl"`

	ID           string    `bun:"id,pk"`
	CompanyName  string    `bun:"company_name,notnull"`
	ContactName  string    `bun:"contact_name"`
	ContactEmail string    `bun:"contact_email,notnull"`
	Status       string    `bun:"status,notnull"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type subscriptionRecord struct {
	bun.BaseModel `bun:"table:onboarding_subscriptions,alias:osb"`

	ID                 string         `bun:"id,pk"`
	ClientID           string         `bun:"client_id,notnull"`
	ProviderCustomerID string         `bun:"provider_customer_id"`
	PlanCode           string         `bun:"plan_code"`
	Status             string         `bun:"status,notnull"`
	CurrentPeriodEnd   *time.Time     `bun:"current_period_end,nullzero"`
	Metadata           map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt          time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt          time.Time      `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
