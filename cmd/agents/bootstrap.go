package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"

	"stock-agents/internal/agentlog"
	"stock-agents/internal/agents"
	"stock-agents/internal/interfaces"
	"stock-agents/internal/llm"
	"stock-agents/internal/llm/claude"
	"stock-agents/internal/llm/gemini"
	"stock-agents/internal/llm/llmobs"
	"stock-agents/internal/llm/noop"
	"stock-agents/internal/llm/openai"
	"stock-agents/internal/logger"
	"stock-agents/internal/market"
	"stock-agents/internal/market/marketobs"
	"stock-agents/internal/orchestrator"
	"stock-agents/internal/orchestrator/orchestratorobs"
	"stock-agents/internal/store"
	"stock-agents/internal/trace"
)

// system holds everything a command needs, plus what must be closed on exit.
type system struct {
	cfg   *store.Config
	data  interfaces.MarketDataProvider
	orch  interfaces.Orchestrator
	audit *agentlog.Writer

	closers []io.Closer
}

func (s *system) Close(ctx context.Context) {
	if err := trace.Shutdown(ctx); err != nil {
		logger.Warn(ctx, "Failed to flush traces", "error", err)
	}
	for _, c := range s.closers {
		_ = c.Close()
	}
}

// loadConfig reads path; a missing default config file falls back to defaults.
func loadConfig(path string, explicit bool) (*store.Config, error) {
	cfg, err := store.LoadConfig(path)
	if err == nil {
		return cfg, nil
	}
	if !explicit && os.IsNotExist(err) {
		return store.Default(), nil
	}
	return nil, fmt.Errorf("load config %s: %w", path, err)
}

// initializeSystem loads .env and config, then sets up logging, tracing and
// the orchestrator with its observability wrappers.
func initializeSystem(ctx context.Context, configPath string, explicit bool) (*system, error) {
	_ = godotenv.Load()

	cfg, err := loadConfig(configPath, explicit)
	if err != nil {
		return nil, err
	}
	sys := &system{cfg: cfg}

	if err := initializeLogger(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := initializeTracer(cfg, sys); err != nil {
		logger.ErrorWithErr(ctx, "Failed to initialize tracer, continuing without spans", err)
	}

	compressOldLogs(ctx, cfg)
	sys.audit = agentlog.New(cfg.Audit.Dir)
	sys.closers = append(sys.closers, sys.audit)

	sys.data, err = initializeMarket(ctx, cfg)
	if err != nil {
		return nil, err
	}
	chat := initializeChat(ctx, cfg)
	sys.orch = initializeOrchestrator(cfg, sys.data, chat, sys.audit)
	return sys, nil
}

func initializeLogger(cfg *store.Config) error {
	lc := logger.LoadConfigFromEnv()
	if os.Getenv("LOG_LEVEL") == "" {
		lc.Level = cfg.Log.Level
	}
	if os.Getenv("LOG_FORMAT") == "" {
		lc.Format = cfg.Log.Format
	}
	lc.DetailedLogging = lc.DetailedLogging || cfg.Log.Detailed
	return logger.InitWithConfig(lc)
}

func initializeTracer(cfg *store.Config, sys *system) error {
	tc := trace.ConfigFromEnv()
	tc.Enabled = tc.Enabled || cfg.Trace.Enabled
	tc.PrettyPrint = cfg.Trace.Pretty
	if tc.Enabled && cfg.Trace.Output != "" {
		f, err := os.OpenFile(cfg.Trace.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		tc.Output = f
		sys.closers = append(sys.closers, f)
	}
	return trace.Init(tc)
}

func compressOldLogs(ctx context.Context, cfg *store.Config) {
	if err := agentlog.CompressOlder(cfg.Audit.Dir, cfg.Audit.RetentionDays); err != nil {
		logger.Warn(ctx, "Failed to compress old audit logs", "error", err)
	}
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}

func initializeMarket(ctx context.Context, cfg *store.Config) (interfaces.MarketDataProvider, error) {
	mc := cfg.Market

	var data interfaces.MarketDataProvider
	switch mc.DataSource {
	case "REMOTE":
		remote, err := market.NewRemoteProvider(market.RemoteConfig{
			BaseURL: mc.BaseURL,
			Token:   os.Getenv(mc.TokenEnv),
			Timeout: seconds(mc.TimeoutSeconds, 15*time.Second),
		})
		if err != nil {
			return nil, err
		}
		logger.Info(ctx, "Using REMOTE market data", "base_url", mc.BaseURL)
		data = remote
	default:
		logger.Info(ctx, "Using STATIC market snapshots", "dir", mc.StaticDir)
		data = market.NewStaticProvider(mc.StaticDir)
	}

	if mc.Cache.Enabled {
		def := market.DefaultCacheTTLs()
		data = market.NewCachedProvider(data, market.CacheTTLs{
			Quote:    seconds(mc.Cache.QuoteSeconds, def.Quote),
			KLine:    seconds(mc.Cache.KLineSeconds, def.KLine),
			Minute:   seconds(mc.Cache.MinuteSeconds, def.Minute),
			Messages: seconds(mc.Cache.MessagesSeconds, def.Messages),
		})
	}

	return marketobs.Wrap(data), nil
}

// initializeChat registers every configured provider. A provider that cannot
// be constructed is replaced by a stand-in that reports why.
func initializeChat(ctx context.Context, cfg *store.Config) interfaces.ChatClient {
	svc := llm.NewService()
	svc.Register(noop.New(), llm.Settings{Enabled: true})

	for name, pc := range cfg.LLM.Providers {
		p, err := newProvider(ctx, name, pc)
		if err != nil {
			logger.Warn(ctx, "LLM provider unavailable", "provider", name, "error", err)
			p = noop.Named(name, err.Error())
		}
		svc.Register(p, llm.Settings{
			Enabled:           pc.Enabled,
			Model:             pc.Model,
			SystemPrompt:      pc.System,
			ForceChinese:      pc.ForceChinese,
			Temperature:       pc.Temperature,
			RequestsPerMinute: pc.RequestsPerMinute,
			Burst:             pc.Burst,
		})
	}

	if _, ok := cfg.LLM.Providers[cfg.LLM.DefaultProvider]; !ok && cfg.LLM.DefaultProvider != "noop" {
		logger.Warn(ctx, "Default LLM provider is not configured - agent runs will fail",
			"provider", cfg.LLM.DefaultProvider)
	}

	return llmobs.Wrap(svc)
}

func newProvider(ctx context.Context, name string, pc store.ProviderConfig) (llm.Provider, error) {
	key := pc.ResolveAPIKey()
	switch name {
	case openai.Name:
		p, err := openai.New(openai.Config{APIKey: key, BaseURL: pc.BaseURL, Organization: pc.Organization})
		if err != nil {
			return nil, err
		}
		return p, nil
	case gemini.Name:
		p, err := gemini.New(ctx, gemini.Config{APIKey: key, BaseURL: pc.BaseURL})
		if err != nil {
			return nil, err
		}
		return p, nil
	case claude.Name:
		p, err := claude.New(claude.Config{APIKey: key, BaseURL: pc.BaseURL, MaxTokens: pc.MaxTokens, Timeout: pc.Timeout()})
		if err != nil {
			return nil, err
		}
		return p, nil
	case "noop":
		return noop.New(), nil
	}
	return nil, fmt.Errorf("%w: %q", llm.ErrUnknownProvider, name)
}

func initializeOrchestrator(cfg *store.Config, data interfaces.MarketDataProvider, chat interfaces.ChatClient, audit interfaces.LogWriter) interfaces.Orchestrator {
	runner := agents.NewRunner(chat, audit, agents.RunnerConfig{
		DefaultProvider:   cfg.LLM.DefaultProvider,
		Temperature:       cfg.Agents.Temperature,
		Temperatures:      cfg.Agents.KindTemperatures(),
		RepairTemperature: cfg.Agents.RepairTemperature,
		LocalRepair:       cfg.Agents.LocalRepair,
	})
	orch := orchestrator.New(data, runner, orchestrator.Config{MaxParallel: cfg.Agents.MaxParallel})
	return orchestratorobs.Wrap(orch)
}
