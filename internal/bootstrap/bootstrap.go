// Package bootstrap turns a loaded config into a ready service.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/himanishpuri/EchoCommand/internal/config"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand/audio"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand/cache"
	"github.com/himanishpuri/EchoCommand/pkg/echocommand/oracle"
	"github.com/himanishpuri/EchoCommand/pkg/logger"
)

// Service bundles the service with everything that must be closed alongside it.
type Service struct {
	echocommand.Service
	Provider string

	closers []func() error
}

// Close closes the service and then any cache connection.
func (s *Service) Close() error {
	err := s.Service.Close()
	for _, c := range s.closers {
		if cerr := c(); err == nil {
			err = cerr
		}
	}
	return err
}

// NewLogger configures the global logger from cfg and returns it.
func NewLogger(cfg *config.Config) *logger.Logger {
	lc := logger.DefaultConfig()
	lc.Level = logger.ParseLevel(cfg.Log.Level)
	lc.Format = cfg.Log.Format
	return logger.Configure(lc)
}

// NewOracle builds the configured oracle. A missing API key is not fatal: it
// returns a nil oracle so the service runs with matching disabled.
func NewOracle(ctx context.Context, cfg *config.Config, log echocommand.Logger) (echocommand.Oracle, error) {
	switch cfg.Oracle.Provider {
	case "local":
		return oracle.NewOrdered(), nil

	case "gemini":
		if cfg.Oracle.APIKey == "" {
			log.Warnf("GEMINI_API_KEY not set, guess checking is disabled")
			return nil, nil
		}
		g, err := oracle.NewGeminiWithURL(ctx, cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.BaseURL)
		if err != nil {
			return nil, err
		}
		return g.WithLogger(log), nil

	case "openai":
		if cfg.Oracle.APIKey == "" {
			log.Warnf("OPENAI_API_KEY not set, guess checking is disabled")
			return nil, nil
		}
		return oracle.NewOpenAIWithURL(cfg.Oracle.APIKey, cfg.Oracle.Model, cfg.Oracle.BaseURL, cfg.Oracle.Timeout).
			WithLogger(log), nil

	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Oracle.Provider)
	}
}

// cacheNamespace separates cached verdicts by provider, resolved model and
// prompt version.
func cacheNamespace(provider string, o echocommand.Oracle) string {
	model := ""
	if m, ok := o.(interface{ Model() string }); ok {
		model = m.Model()
	}
	return oracle.CacheNamespace(provider, model)
}

// NewService wires config, oracle and optional verdict cache into a service.
func NewService(ctx context.Context, cfg *config.Config, log echocommand.Logger) (*Service, error) {
	o, err := NewOracle(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create oracle: %w", err)
	}

	var closers []func() error
	if o != nil && cfg.Cache.RedisAddr != "" {
		vc, err := cache.NewRedisVerdictCache(ctx, cache.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			log.Warnf("Verdict cache disabled: %v", err)
		} else {
			log.Infof("Verdict cache enabled at %s (ttl %s)", cfg.Cache.RedisAddr, cfg.Cache.TTL)
			o = oracle.NewCached(o, vc, cacheNamespace(cfg.Oracle.Provider, o)).WithLogger(log)
			closers = append(closers, vc.Close)
		}
	}

	opts := []echocommand.Option{
		echocommand.WithMediaDir(cfg.Media.Dir),
		echocommand.WithMediaURLPrefix(cfg.Media.URLPrefix),
		echocommand.WithUploadExt(cfg.Media.UploadExt),
		echocommand.WithMergedFormat(cfg.Media.MergedFormat),
		echocommand.WithDBPath(cfg.Database.Path),
		echocommand.WithAudioFormat(audio.ConvertWAVConfig{
			SampleRate: cfg.Media.SampleRate,
			Channels:   cfg.Media.Channels,
		}),
		echocommand.WithInstructions(cfg.Instructions),
		echocommand.WithLogger(log),
	}
	if o != nil {
		opts = append(opts, echocommand.WithOracle(o))
	}

	svc, err := echocommand.NewService(opts...)
	if err != nil {
		for _, c := range closers {
			_ = c()
		}
		return nil, err
	}

	return &Service{Service: svc, Provider: cfg.Oracle.Provider, closers: closers}, nil
}
