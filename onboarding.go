package onboarding

import "github.com/goliatone/go-onboarding/core"

type Config = core.Config

type WebhookConfig = core.WebhookConfig

type NotifyConfig = core.NotifyConfig

type OrchestrateConfig = core.OrchestrateConfig

type Option = core.Option

type Service = core.Service

type Client = core.Client
type BillingSubscription = core.BillingSubscription
type OnboardingRun = core.OnboardingRun
type StepResult = core.StepResult
type EmailDeliveryLog = core.EmailDeliveryLog
type EmailPreference = core.EmailPreference
type DeadLetterRecord = core.DeadLetterRecord
type InboundEvent = core.InboundEvent

type StoreProvider = core.StoreProvider
type IdempotencyLedger = core.IdempotencyLedger
type DeadLetterStore = core.DeadLetterStore
type OnboardingRunStore = core.OnboardingRunStore
type EmailDeliveryLogStore = core.EmailDeliveryLogStore
type EmailPreferenceStore = core.EmailPreferenceStore
type ClientStore = core.ClientStore
type SubscriptionStore = core.SubscriptionStore
type BillingEventApplier = core.BillingEventApplier
type StepExecutor = core.StepExecutor
type Mailer = core.Mailer
type AdminAlerter = core.AdminAlerter
type RateLimiter = core.RateLimiter
type MetricsRecorder = core.MetricsRecorder
type TransportAdapter = core.TransportAdapter

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorFactory    = core.WithErrorFactory
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithStores          = core.WithStores
	WithRateLimiter     = core.WithRateLimiter
	WithAdminAlerter    = core.WithAdminAlerter
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	return core.NewService(cfg, options...)
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return core.Setup(cfg, options...)
}
