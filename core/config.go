package core

import (
	"fmt"
	"strings"
	"time"
)

type WebhookConfig struct {
	SignatureHeader   string        `koanf:"signature_header" mapstructure:"signature_header"`
	SignaturePrefix   string        `koanf:"signature_prefix" mapstructure:"signature_prefix"`
	SignatureEncoding string        `koanf:"signature_encoding" mapstructure:"signature_encoding"`
	Secret            string        `koanf:"secret" mapstructure:"secret"`
	FreshnessWindow   time.Duration `koanf:"freshness_window" mapstructure:"freshness_window"`
}

type NotifyConfig struct {
	MaxAttempts      int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff   time.Duration `koanf:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff       time.Duration `koanf:"max_backoff" mapstructure:"max_backoff"`
	RateLimitWindow  time.Duration `koanf:"rate_limit_window" mapstructure:"rate_limit_window"`
	RateLimitPerKey  int           `koanf:"rate_limit_per_key" mapstructure:"rate_limit_per_key"`
	BatchConcurrency int           `koanf:"batch_concurrency" mapstructure:"batch_concurrency"`
}

type OrchestrateConfig struct {
	StepTimeout     time.Duration `koanf:"step_timeout" mapstructure:"step_timeout"`
	AdminRecipients []string      `koanf:"admin_recipients" mapstructure:"admin_recipients"`
}

type Config struct {
	ServiceName string            `koanf:"service_name" mapstructure:"service_name"`
	Webhook     WebhookConfig     `koanf:"webhook" mapstructure:"webhook"`
	Notify      NotifyConfig      `koanf:"notify" mapstructure:"notify"`
	Orchestrate OrchestrateConfig `koanf:"orchestrate" mapstructure:"orchestrate"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "onboarding",
		Webhook: WebhookConfig{
			SignatureHeader:   "X-Webhook-Signature",
			SignatureEncoding: "hex",
			FreshnessWindow:   5 * time.Minute,
		},
		Notify: NotifyConfig{
			MaxAttempts:      4,
			InitialBackoff:   time.Second,
			MaxBackoff:       4 * time.Second,
			RateLimitWindow:  time.Minute,
			RateLimitPerKey:  100,
			BatchConcurrency: 5,
		},
		Orchestrate: OrchestrateConfig{
			StepTimeout: 30 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Webhook.SignatureHeader) == "" {
		return fmt.Errorf("core: webhook.signature_header is required")
	}
	switch strings.ToLower(strings.TrimSpace(c.Webhook.SignatureEncoding)) {
	case "", "hex", "base64":
	default:
		return fmt.Errorf("core: webhook.signature_encoding must be hex or base64")
	}
	if c.Webhook.FreshnessWindow < 0 {
		return fmt.Errorf("core: webhook.freshness_window must not be negative")
	}
	if c.Notify.MaxAttempts < 1 {
		return fmt.Errorf("core: notify.max_attempts must be at least 1")
	}
	if c.Notify.RateLimitPerKey < 1 {
		return fmt.Errorf("core: notify.rate_limit_per_key must be at least 1")
	}
	if c.Notify.BatchConcurrency < 1 {
		return fmt.Errorf("core: notify.batch_concurrency must be at least 1")
	}
	return nil
}
