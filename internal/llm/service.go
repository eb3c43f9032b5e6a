// Package llm routes chat requests to named language-model providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"stock-agents/internal/interfaces"
	"stock-agents/internal/types"
)

var (
	ErrUnknownProvider      = errors.New("unknown llm provider")
	ErrProviderDisabled     = errors.New("llm provider disabled")
	ErrNoProviderConfigured = errors.New("no llm provider configured")
)

// ChineseHint is appended to prompts of providers with ForceChinese set.
const ChineseHint = "请使用中文回答。"

// Request is what a Provider sees after the service resolved model,
// temperature and system prompt.
type Request struct {
	System      string
	Prompt      string
	Model       string
	Temperature *float64
	UseInternet bool
}

// Provider is one language-model backend.
type Provider interface {
	Name() string
	DefaultModel() string
	Complete(ctx context.Context, req Request) (string, error)
}

// Settings are the per-provider knobs read from configuration.
type Settings struct {
	Enabled      bool
	Model        string
	SystemPrompt string
	ForceChinese bool
	// Temperature applies when the request does not carry one.
	Temperature *float64
	// RequestsPerMinute of zero disables rate limiting.
	RequestsPerMinute int
	Burst             int
}

type registration struct {
	provider Provider
	settings Settings
	limiter  *RateLimiter
}

// Service implements interfaces.ChatClient over a set of registered providers.
type Service struct {
	mu        sync.RWMutex
	providers map[string]*registration
}

var _ interfaces.ChatClient = (*Service)(nil)

func NewService() *Service {
	return &Service{providers: make(map[string]*registration)}
}

func providerKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds or replaces p under its name.
func (s *Service) Register(p Provider, settings Settings) {
	reg := &registration{provider: p, settings: settings}
	if settings.RequestsPerMinute > 0 {
		reg.limiter = NewRateLimiter(settings.RequestsPerMinute, settings.Burst)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.providers[providerKey(p.Name())] = reg
}

// Providers lists registered provider names, sorted.
func (s *Service) Providers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.providers))
	for name := range s.providers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (s *Service) lookup(name string) (*registration, error) {
	s.mu.RLock()
	reg, ok := s.providers[providerKey(name)]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	if !reg.settings.Enabled {
		return nil, fmt.Errorf("%w: %q", ErrProviderDisabled, name)
	}
	return reg, nil
}

// Chat sends req to the named provider.
func (s *Service) Chat(ctx context.Context, provider string, req types.ChatRequest) (types.ChatResult, error) {
	reg, err := s.lookup(provider)
	if err != nil {
		return types.ChatResult{}, err
	}
	if reg.limiter != nil {
		if err := reg.limiter.Wait(ctx); err != nil {
			return types.ChatResult{}, fmt.Errorf("%s rate limit: %w", reg.provider.Name(), err)
		}
	}

	resolved := reg.resolve(req)
	content, err := reg.provider.Complete(ctx, resolved)
	if err != nil {
		return types.ChatResult{}, fmt.Errorf("%s: %w", reg.provider.Name(), err)
	}
	return types.ChatResult{
		Content:  content,
		Model:    resolved.Model,
		Provider: reg.provider.Name(),
	}, nil
}

func (r *registration) resolve(req types.ChatRequest) Request {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = r.settings.Model
	}
	if model == "" {
		model = r.provider.DefaultModel()
	}

	temperature := req.Temperature
	if temperature == nil {
		temperature = r.settings.Temperature
	}

	prompt := req.Prompt
	if r.settings.ForceChinese {
		prompt += "\n\n" + ChineseHint
	}

	return Request{
		System:      r.settings.SystemPrompt,
		Prompt:      prompt,
		Model:       model,
		Temperature: temperature,
		UseInternet: req.UseInternet,
	}
}
