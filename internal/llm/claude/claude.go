package claude

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stock-agents/internal/api"
	"stock-agents/internal/llm"
)

const (
	Name             = "claude"
	DefaultModel     = "claude-sonnet-4-5"
	DefaultBaseURL   = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
	defaultMaxTokens = 4096
)

type Config struct {
	APIKey    string
	BaseURL   string
	MaxTokens int
	Timeout   time.Duration
}

// Provider calls the Anthropic Messages API.
type Provider struct {
	client    *api.Client
	maxTokens int
}

var _ llm.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("claude api key missing")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	return &Provider{
		client: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(cfg.Timeout),
			api.WithHeader("x-api-key", cfg.APIKey),
			api.WithHeader("anthropic-version", anthropicVersion),
			api.WithLogging(true),
		),
		maxTokens: cfg.MaxTokens,
	}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) DefaultModel() string { return DefaultModel }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	Messages    []message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	body := messagesRequest{
		Model:       req.Model,
		MaxTokens:   p.maxTokens,
		System:      strings.TrimSpace(req.System),
		Temperature: req.Temperature,
		Messages:    []message{{Role: "user", Content: req.Prompt}},
	}

	resp, err := p.client.POST(ctx, "/v1/messages", body)
	if err != nil {
		return "", err
	}

	var out messagesResponse
	if err := resp.ParseJSON(&out); err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content (stop_reason=%s)", out.StopReason)
	}
	return strings.TrimSpace(sb.String()), nil
}
