package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// IdempotencyLedger claims an event id exactly once. The claim must be
// a single atomic insert so that concurrent deliveries of the same
// event settle on one winner.
type IdempotencyLedger interface {
	Claim(ctx context.Context, eventID string) (bool, error)
}

type DeadLetterStore interface {
	Record(ctx context.Context, record DeadLetterRecord) (DeadLetterRecord, error)
	Get(ctx context.Context, id string) (DeadLetterRecord, error)
	List(ctx context.Context, limit int, offset int) ([]DeadLetterRecord, int, error)
}

type OnboardingRunStore interface {
	Create(ctx context.Context, run OnboardingRun) (OnboardingRun, error)
	Update(ctx context.Context, run OnboardingRun) (OnboardingRun, error)
	Get(ctx context.Context, id string) (OnboardingRun, error)
	GetByClient(ctx context.Context, clientID string) ([]OnboardingRun, error)
}

type EmailDeliveryLogStore interface {
	Create(ctx context.Context, entry EmailDeliveryLog) (EmailDeliveryLog, error)
	Update(ctx context.Context, entry EmailDeliveryLog) (EmailDeliveryLog, error)
	Get(ctx context.Context, id string) (EmailDeliveryLog, error)
}

type EmailPreferenceStore interface {
	// Get returns found=false when the recipient has no stored
	// preference, which callers treat as allowed.
	Get(ctx context.Context, userID string) (EmailPreference, bool, error)
	Upsert(ctx context.Context, preference EmailPreference) (EmailPreference, error)
}

type ClientStore interface {
	Create(ctx context.Context, client Client) (Client, error)
	Update(ctx context.Context, client Client) (Client, error)
	Get(ctx context.Context, id string) (Client, error)
	GetByEmail(ctx context.Context, email string) (Client, bool, error)
}

type SubscriptionStore interface {
	Create(ctx context.Context, subscription BillingSubscription) (BillingSubscription, error)
	Update(ctx context.Context, subscription BillingSubscription) (BillingSubscription, error)
	Get(ctx context.Context, id string) (BillingSubscription, error)
	GetByClient(ctx context.Context, clientID string) ([]BillingSubscription, error)
}

// ProvisionRequest carries the client plus the accumulated outputs of
// earlier steps so later steps can reference them.
type ProvisionRequest struct {
	Client       Client
	RunID        string
	PriorOutputs map[string]map[string]any
}

type ProvisionResult struct {
	OutputData map[string]any
}

// StepExecutor is one provisioning integration. A failing executor
// returns an error; it never panics the run.
type StepExecutor interface {
	Name() string
	Create(ctx context.Context, req ProvisionRequest) (ProvisionResult, error)
}

type Email struct {
	To           string
	Subject      string
	TemplateName string
	Category     string
	Data         map[string]any
}

type MailerReceipt struct {
	ProviderMessageID string
}

type Mailer interface {
	Send(ctx context.Context, email Email, html string) (MailerReceipt, error)
}

type AdminAlerter interface {
	Alert(ctx context.Context, run OnboardingRun) error
}

// RateLimiter is a best-effort sliding window. Idempotency never rides
// on it; correctness-critical dedupe stays database-backed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type StoreProvider interface {
	IdempotencyLedger() IdempotencyLedger
	DeadLetterStore() DeadLetterStore
	OnboardingRunStore() OnboardingRunStore
	EmailDeliveryLogStore() EmailDeliveryLogStore
	EmailPreferenceStore() EmailPreferenceStore
	ClientStore() ClientStore
	SubscriptionStore() SubscriptionStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

type TransportRequest struct {
	Method               string
	URL                  string
	Headers              map[string]string
	Query                map[string]string
	Body                 []byte
	Metadata             map[string]any
	Timeout              time.Duration
	Idempotency          string
	MaxResponseBodyBytes int64
}

type TransportResponse struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Metadata   map[string]any
}

type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (TransportResponse, error)
}

type JobExecutionMessage struct {
	JobID          string
	ScriptPath     string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}
