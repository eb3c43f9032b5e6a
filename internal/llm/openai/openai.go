package openai

import (
	"context"
	"errors"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"stock-agents/internal/llm"
	"stock-agents/internal/logger"
)

const (
	Name         = "openai"
	DefaultModel = "gpt-4o-mini"
)

type Config struct {
	APIKey       string
	BaseURL      string
	Organization string
}

// Provider talks to any OpenAI-compatible chat completions endpoint.
type Provider struct {
	client oai.Client
}

var _ llm.Provider = (*Provider)(nil)

func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai api key missing")
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Organization != "" {
		opts = append(opts, option.WithOrganization(cfg.Organization))
	}
	return &Provider{client: oai.NewClient(opts...)}, nil
}

func (p *Provider) Name() string { return Name }

func (p *Provider) DefaultModel() string { return DefaultModel }

func (p *Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	if req.UseInternet {
		logger.Debug(ctx, "Internet access is not available through chat completions", "provider", Name)
	}

	params := oai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: messages(req),
	}
	if req.Temperature != nil {
		params.Temperature = oai.Float(*req.Temperature)
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func messages(req llm.Request) []oai.ChatCompletionMessageParamUnion {
	var msgs []oai.ChatCompletionMessageParamUnion
	if strings.TrimSpace(req.System) != "" {
		msgs = append(msgs, oai.SystemMessage(req.System))
	}
	return append(msgs, oai.UserMessage(req.Prompt))
}
