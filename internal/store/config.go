package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"stock-agents/internal/agents"
)

// Known provider names.
var providerNames = []string{"openai", "gemini", "claude", "noop"}

type Config struct {
	Log struct {
		Level    string `yaml:"level"`
		Format   string `yaml:"format"`
		Detailed bool   `yaml:"detailed"`
	} `yaml:"log"`
	Trace struct {
		Enabled bool   `yaml:"enabled"`
		Pretty  bool   `yaml:"pretty"`
		Output  string `yaml:"output"`
	} `yaml:"trace"`
	Market MarketConfig `yaml:"market"`
	LLM    struct {
		DefaultProvider string                    `yaml:"default_provider"`
		Providers       map[string]ProviderConfig `yaml:"providers"`
	} `yaml:"llm"`
	Agents AgentsConfig `yaml:"agents"`
	Audit  struct {
		Dir           string `yaml:"dir"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"audit"`
}

type MarketConfig struct {
	DataSource     string `yaml:"data_source"`
	StaticDir      string `yaml:"static_dir"`
	BaseURL        string `yaml:"base_url"`
	TokenEnv       string `yaml:"token_env"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Cache          struct {
		Enabled         bool `yaml:"enabled"`
		QuoteSeconds    int  `yaml:"quote_seconds"`
		KLineSeconds    int  `yaml:"kline_seconds"`
		MinuteSeconds   int  `yaml:"minute_seconds"`
		MessagesSeconds int  `yaml:"messages_seconds"`
	} `yaml:"cache"`
}

type ProviderConfig struct {
	Enabled           bool     `yaml:"enabled"`
	APIKey            string   `yaml:"api_key"`
	APIKeyEnv         string   `yaml:"api_key_env"`
	BaseURL           string   `yaml:"base_url"`
	Organization      string   `yaml:"organization"`
	Model             string   `yaml:"model"`
	System            string   `yaml:"system"`
	ForceChinese      bool     `yaml:"force_chinese"`
	Temperature       *float64 `yaml:"temperature"`
	MaxTokens         int      `yaml:"max_tokens"`
	TimeoutSeconds    int      `yaml:"timeout_seconds"`
	RequestsPerMinute int      `yaml:"requests_per_minute"`
	Burst             int      `yaml:"burst"`
}

// ResolveAPIKey returns the inline key, or the value of the named env var.
func (p ProviderConfig) ResolveAPIKey() string {
	if k := strings.TrimSpace(p.APIKey); k != "" {
		return k
	}
	if p.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(p.APIKeyEnv))
	}
	return ""
}

func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

type AgentsConfig struct {
	MaxParallel       int                `yaml:"max_parallel"`
	Temperature       float64            `yaml:"temperature"`
	RepairTemperature float64            `yaml:"repair_temperature"`
	Temperatures      map[string]float64 `yaml:"temperatures"`
	LocalRepair       bool               `yaml:"local_repair"`
	Interval          string             `yaml:"interval"`
	Count             int                `yaml:"count"`
	TimeoutSeconds    int                `yaml:"timeout_seconds"`
}

// KindTemperatures maps the configured per-agent temperatures to kinds.
// Unknown ids are rejected by Validate.
func (a AgentsConfig) KindTemperatures() map[agents.Kind]float64 {
	out := make(map[agents.Kind]float64, len(a.Temperatures))
	for id, t := range a.Temperatures {
		if k, ok := agents.Lookup(id); ok {
			out[k] = t
		}
	}
	return out
}

func (a AgentsConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "INFO"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Market.DataSource == "" {
		c.Market.DataSource = "STATIC"
	}
	c.Market.DataSource = strings.ToUpper(c.Market.DataSource)
	if c.Market.StaticDir == "" {
		c.Market.StaticDir = "data/snapshots"
	}
	if c.Market.TimeoutSeconds == 0 {
		c.Market.TimeoutSeconds = 15
	}
	if c.LLM.DefaultProvider == "" {
		c.LLM.DefaultProvider = agents.DefaultProvider
	}
	c.LLM.DefaultProvider = strings.ToLower(strings.TrimSpace(c.LLM.DefaultProvider))
	if c.Agents.MaxParallel == 0 {
		c.Agents.MaxParallel = 4
	}
	if c.Agents.Temperature == 0 {
		c.Agents.Temperature = agents.DefaultTemperature
	}
	if c.Agents.RepairTemperature == 0 {
		c.Agents.RepairTemperature = agents.DefaultRepairTemperature
	}
	if c.Agents.Interval == "" {
		c.Agents.Interval = "day"
	}
	if c.Agents.Count == 0 {
		c.Agents.Count = 60
	}
	if c.Agents.TimeoutSeconds == 0 {
		c.Agents.TimeoutSeconds = 300
	}
	if c.Audit.Dir == "" {
		c.Audit.Dir = "logs"
	}
}

func (c *Config) Validate() error {
	switch c.Market.DataSource {
	case "STATIC":
		if c.Market.StaticDir == "" {
			return errors.New("market.static_dir cannot be empty for STATIC data source")
		}
	case "REMOTE":
		if c.Market.BaseURL == "" {
			return errors.New("market.base_url is required for REMOTE data source")
		}
	default:
		return fmt.Errorf("invalid market.data_source '%s': must be 'STATIC' or 'REMOTE'", c.Market.DataSource)
	}

	for name, p := range c.LLM.Providers {
		if !isKnownProvider(name) {
			return fmt.Errorf("unknown llm provider '%s': must be one of %s", name, strings.Join(providerNames, ", "))
		}
		if p.Temperature != nil && (*p.Temperature < 0 || *p.Temperature > 2) {
			return fmt.Errorf("llm.providers.%s.temperature must be between 0-2, got %.2f", name, *p.Temperature)
		}
		if p.RequestsPerMinute < 0 {
			return fmt.Errorf("llm.providers.%s.requests_per_minute cannot be negative", name)
		}
	}
	if !isKnownProvider(c.LLM.DefaultProvider) {
		return fmt.Errorf("llm.default_provider '%s' is not a known provider", c.LLM.DefaultProvider)
	}

	if c.Agents.MaxParallel < 1 {
		return fmt.Errorf("agents.max_parallel must be at least 1, got %d", c.Agents.MaxParallel)
	}
	if c.Agents.Temperature < 0 || c.Agents.Temperature > 2 {
		return fmt.Errorf("agents.temperature must be between 0-2, got %.2f", c.Agents.Temperature)
	}
	for id, t := range c.Agents.Temperatures {
		if _, ok := agents.Lookup(id); !ok {
			return fmt.Errorf("agents.temperatures: unknown agent id '%s'", id)
		}
		if t < 0 || t > 2 {
			return fmt.Errorf("agents.temperatures.%s must be between 0-2, got %.2f", id, t)
		}
	}
	if c.Audit.RetentionDays < 0 {
		return fmt.Errorf("audit.retention_days cannot be negative, got %d", c.Audit.RetentionDays)
	}
	return nil
}

func isKnownProvider(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range providerNames {
		if n == name {
			return true
		}
	}
	return false
}

// Default returns a configuration with every default applied, for runs
// without a config file.
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
