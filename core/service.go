package core

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service resolves configuration and holds the shared collaborators of
// the pipeline packages: logger, metrics, error mapper, and stores.
type Service struct {
	config          Config
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

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultPipelineBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("onboarding", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("onboarding"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	return &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		stores:          builder.stores,
		rateLimiter:     builder.rateLimiter,
		alerter:         builder.alerter,
	}, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Logger() Logger {
	if s == nil {
		return nil
	}
	return s.logger
}

func (s *Service) LoggerProvider() LoggerProvider {
	if s == nil {
		return nil
	}
	return s.loggerProvider
}

func (s *Service) MetricsRecorder() MetricsRecorder {
	if s == nil {
		return nil
	}
	return s.metricsRecorder
}

func (s *Service) ErrorMapper() ErrorMapper {
	if s == nil {
		return nil
	}
	return s.errorMapper
}

func (s *Service) Stores() StoreProvider {
	if s == nil {
		return nil
	}
	return s.stores
}

func (s *Service) RateLimiter() RateLimiter {
	if s == nil {
		return nil
	}
	return s.rateLimiter
}

func (s *Service) AdminAlerter() AdminAlerter {
	if s == nil {
		return nil
	}
	return s.alerter
}

// MapError normalizes any error through the configured mapper.
func (s *Service) MapError(err error) error {
	if s == nil {
		return err
	}
	return mapBuildError(s.errorMapper, err)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}
