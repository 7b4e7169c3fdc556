package onboarding

import (
	"fmt"

	"github.com/goliatone/go-onboarding/core"
	"github.com/goliatone/go-onboarding/notify"
	"github.com/goliatone/go-onboarding/orchestrate"
	"github.com/goliatone/go-onboarding/ratelimit"
	"github.com/goliatone/go-onboarding/webhook"
)

// Pipeline bundles the wired webhook ingestion path, the provisioning
// orchestrator and the notification service behind one build call.
type Pipeline struct {
	Service      *core.Service
	Processor    *webhook.Processor
	HTTPHandler  *webhook.Handler
	Dispatcher   *webhook.Dispatcher
	Replayer     *webhook.Replayer
	Orchestrator *orchestrate.Orchestrator
	Notifier     *notify.Service
}

// PipelineDeps carries the pieces the service cannot build on its own:
// the transactional billing applier, the outbound mail transport and
// any provisioning steps to run before the welcome email.
type PipelineDeps struct {
	Applier core.BillingEventApplier
	Mailer  core.Mailer
	Steps   []core.StepExecutor
}

// NewPipeline composes the full ingestion path from a configured
// service. The welcome email step is always appended last so its
// message can reference the outputs of the steps before it.
func NewPipeline(service *core.Service, deps PipelineDeps) (*Pipeline, error) {
	if service == nil {
		return nil, fmt.Errorf("onboarding: service is required")
	}
	if deps.Applier == nil {
		return nil, fmt.Errorf("onboarding: billing event applier is required")
	}
	if deps.Mailer == nil {
		return nil, fmt.Errorf("onboarding: mailer is required")
	}
	stores := service.Stores()
	if stores == nil {
		return nil, fmt.Errorf("onboarding: service has no store provider")
	}
	cfg := service.Config()

	limiter := service.RateLimiter()
	if limiter == nil {
		limiter = ratelimit.NewMemoryWindow(cfg.Notify.RateLimitWindow, cfg.Notify.RateLimitPerKey)
	}

	renderer, err := notify.NewTemplateRenderer()
	if err != nil {
		return nil, err
	}
	notifier := notify.NewService(
		stores.EmailPreferenceStore(),
		limiter,
		deps.Mailer,
		stores.EmailDeliveryLogStore(),
		renderer,
	)
	notifier.Policy = notify.RetryPolicy{
		MaxAttempts: cfg.Notify.MaxAttempts,
		Initial:     cfg.Notify.InitialBackoff,
		Max:         cfg.Notify.MaxBackoff,
	}
	notifier.Concurrency = cfg.Notify.BatchConcurrency
	notifier.Pipeline = service

	alerter := service.AdminAlerter()
	if alerter == nil && len(cfg.Orchestrate.AdminRecipients) > 0 {
		alerter = orchestrate.NewEmailAlerter(notifier, cfg.Orchestrate.AdminRecipients)
	}

	steps := append([]core.StepExecutor(nil), deps.Steps...)
	steps = append(steps, orchestrate.NewWelcomeEmailStep(notifier))
	orchestrator := orchestrate.NewOrchestrator(steps, stores.OnboardingRunStore(), alerter)
	orchestrator.StepTimeout = cfg.Orchestrate.StepTimeout
	orchestrator.Service = service

	dispatcher := webhook.NewDispatcher()
	handlers := webhook.NewHandlers(deps.Applier, orchestrator)
	handlers.Service = service
	handlers.Notifier = &notify.PaymentFailedNotifier{
		Service: notifier,
		Clients: stores.ClientStore(),
	}
	if err := handlers.RegisterAll(dispatcher); err != nil {
		return nil, err
	}

	verifier := webhook.HeaderHMACVerifier{
		Header:   cfg.Webhook.SignatureHeader,
		Prefix:   cfg.Webhook.SignaturePrefix,
		Secret:   cfg.Webhook.Secret,
		Encoding: cfg.Webhook.SignatureEncoding,
	}
	guard := webhook.NewReplayGuard(cfg.Webhook.FreshnessWindow)
	processor := webhook.NewProcessor(
		verifier,
		guard,
		stores.IdempotencyLedger(),
		dispatcher,
		stores.DeadLetterStore(),
	)
	processor.Service = service

	replayer := webhook.NewReplayer(stores.DeadLetterStore(), dispatcher)
	replayer.Service = service

	return &Pipeline{
		Service:      service,
		Processor:    processor,
		HTTPHandler:  webhook.NewHandler(processor),
		Dispatcher:   dispatcher,
		Replayer:     replayer,
		Orchestrator: orchestrator,
		Notifier:     notifier,
	}, nil
}
