package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type pipelineBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	stores          StoreProvider
	rateLimiter     RateLimiter
	alerter         AdminAlerter
}

type Option func(*pipelineBuilder)

func WithLogger(logger Logger) Option {
	return func(b *pipelineBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *pipelineBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *pipelineBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *pipelineBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *pipelineBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *pipelineBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *pipelineBuilder) {
		b.optionsResolver = resolver
	}
}

func WithStores(stores StoreProvider) Option {
	return func(b *pipelineBuilder) {
		b.stores = stores
	}
}

func WithRateLimiter(limiter RateLimiter) Option {
	return func(b *pipelineBuilder) {
		b.rateLimiter = limiter
	}
}

func WithAdminAlerter(alerter AdminAlerter) Option {
	return func(b *pipelineBuilder) {
		b.alerter = alerter
	}
}

func defaultPipelineBuilder(runtime Config) pipelineBuilder {
	loggerProvider, logger := glog.Resolve("onboarding", nil, nil)
	return pipelineBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return pipelineErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	webhook := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Webhook.SignatureHeader) != "" {
		webhook["signature_header"] = cfg.Webhook.SignatureHeader
	}
	if includeZero || strings.TrimSpace(cfg.Webhook.SignaturePrefix) != "" {
		webhook["signature_prefix"] = cfg.Webhook.SignaturePrefix
	}
	if includeZero || strings.TrimSpace(cfg.Webhook.SignatureEncoding) != "" {
		webhook["signature_encoding"] = cfg.Webhook.SignatureEncoding
	}
	if includeZero || strings.TrimSpace(cfg.Webhook.Secret) != "" {
		webhook["secret"] = cfg.Webhook.Secret
	}
	if includeZero || cfg.Webhook.FreshnessWindow > 0 {
		webhook["freshness_window"] = cfg.Webhook.FreshnessWindow
	}
	if len(webhook) > 0 {
		layer["webhook"] = webhook
	}

	notify := map[string]any{}
	if includeZero || cfg.Notify.MaxAttempts > 0 {
		notify["max_attempts"] = cfg.Notify.MaxAttempts
	}
	if includeZero || cfg.Notify.InitialBackoff > 0 {
		notify["initial_backoff"] = cfg.Notify.InitialBackoff
	}
	if includeZero || cfg.Notify.MaxBackoff > 0 {
		notify["max_backoff"] = cfg.Notify.MaxBackoff
	}
	if includeZero || cfg.Notify.RateLimitWindow > 0 {
		notify["rate_limit_window"] = cfg.Notify.RateLimitWindow
	}
	if includeZero || cfg.Notify.RateLimitPerKey > 0 {
		notify["rate_limit_per_key"] = cfg.Notify.RateLimitPerKey
	}
	if includeZero || cfg.Notify.BatchConcurrency > 0 {
		notify["batch_concurrency"] = cfg.Notify.BatchConcurrency
	}
	if len(notify) > 0 {
		layer["notify"] = notify
	}

	orchestrate := map[string]any{}
	if includeZero || cfg.Orchestrate.StepTimeout > 0 {
		orchestrate["step_timeout"] = cfg.Orchestrate.StepTimeout
	}
	if includeZero || len(cfg.Orchestrate.AdminRecipients) > 0 {
		orchestrate["admin_recipients"] = append([]string(nil), cfg.Orchestrate.AdminRecipients...)
	}
	if len(orchestrate) > 0 {
		layer["orchestrate"] = orchestrate
	}

	return layer
}
