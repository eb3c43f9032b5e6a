package noop

import (
	"context"
	"fmt"

	"stock-agents/internal/llm"
	"stock-agents/internal/logger"
)

// Provider stands in when no real provider is configured. Every call fails
// with llm.ErrNoProviderConfigured.
type Provider struct {
	name   string
	reason string
}

var _ llm.Provider = Provider{}

func New() Provider { return Provider{name: "noop"} }

// Named returns a stand-in registered under name, for providers whose
// configuration could not be used. reason is reported on every call.
func Named(name, reason string) Provider {
	return Provider{name: name, reason: reason}
}

func (p Provider) Name() string { return p.name }

func (Provider) DefaultModel() string { return "none" }

func (p Provider) Complete(ctx context.Context, req llm.Request) (string, error) {
	logger.Debug(ctx, "Noop provider called", "provider", p.name, "prompt_length", len(req.Prompt))
	if p.reason != "" {
		return "", fmt.Errorf("%w: %s", llm.ErrNoProviderConfigured, p.reason)
	}
	return "", llm.ErrNoProviderConfigured
}
