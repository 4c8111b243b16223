package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Service owns the token lifecycle: status resolution, refresh, and the
// process-wide token cache. One instance is constructed at process start
// and shared by every outbound call path.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	tokenCache      TokenCache
	transport       TransportAdapter
	now             func() time.Time

	refreshMu sync.Mutex
	inflight  map[string]*refreshCall
}

func New(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("instagram", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("instagram"); named != nil {
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
	if builder.tokenCache == nil {
		builder.tokenCache = NewMemoryTokenCache()
	}
	if builder.now == nil {
		builder.now = func() time.Time { return time.Now().UTC() }
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
		tokenCache:      builder.tokenCache,
		transport:       builder.transport,
		now:             builder.now,
		inflight:        map[string]*refreshCall{},
	}, nil
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// ClearCache drops the cached token state for one credential.
func (s *Service) ClearCache(credentialID string) {
	if s == nil || s.tokenCache == nil {
		return
	}
	credentialID = strings.TrimSpace(credentialID)
	if credentialID == "" {
		credentialID = DefaultCredentialID
	}
	s.tokenCache.Clear(credentialID)
}

func (s *Service) refreshThresholdSeconds(cred Credential) int64 {
	days := cred.RefreshThresholdDays
	if days <= 0 {
		days = s.config.Tokens.RefreshThresholdDays
	}
	if days <= 0 {
		days = DefaultConfig().Tokens.RefreshThresholdDays
	}
	return int64(days) * secondsPerDay
}

func (s *Service) nowUnix() int64 {
	if s != nil && s.now != nil {
		return s.now().Unix()
	}
	return time.Now().Unix()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
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

func validateCredential(cred Credential) error {
	if strings.TrimSpace(cred.AccessToken) == "" {
		return fmt.Errorf("core: credential access token is required")
	}
	return nil
}
