package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stock-agents/internal/agents"
	"stock-agents/internal/interfaces"
	"stock-agents/internal/types"
)

// AgentRunner runs one agent to a terminal envelope.
type AgentRunner interface {
	Run(ctx context.Context, k agents.Kind, contextJSON string, opts types.RunOptions, deps []types.AgentResult) types.AgentResult
}

var _ AgentRunner = (*agents.Runner)(nil)

const DefaultMaxParallel = 4

type Config struct {
	// MaxParallel caps concurrently running sub-agents.
	MaxParallel int
}

type Option func(*Orchestrator)

// WithClock sets the clock used for context timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRunID sets the run id generator.
func WithRunID(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

type Orchestrator struct {
	data   interfaces.MarketDataProvider
	runner AgentRunner
	cfg    Config
	now    func() time.Time
	newID  func() string
}

var _ interfaces.Orchestrator = (*Orchestrator)(nil)

func New(data interfaces.MarketDataProvider, runner AgentRunner, cfg Config, opts ...Option) *Orchestrator {
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	o := &Orchestrator{
		data:   data,
		runner: runner,
		cfg:    cfg,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunFull runs the four sub-agents concurrently and then the commander over
// their envelopes. Provider failures are reported per agent; only validation,
// context build errors and cancellation fail the call.
func (o *Orchestrator) RunFull(ctx context.Context, req types.RunRequest) (*types.OrchestrationResponse, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return nil, ErrBlankSymbol
	}

	actx, err := NewContextBuilder(o.data, o.now).Build(ctx, symbol, req.Interval, req.Count, req.Source)
	if err != nil {
		return nil, err
	}
	full, slim, err := projections(actx)
	if err != nil {
		return nil, err
	}
	opts := runOptions(req)

	subKinds := agents.SubAgents()
	subResults := make([]types.AgentResult, len(subKinds))

	var g errgroup.Group
	g.SetLimit(o.cfg.MaxParallel)
	for i, k := range subKinds {
		contextJSON := slim
		if k.Definition().FullContext {
			contextJSON = full
		}
		g.Go(func() error {
			subResults[i] = o.runner.Run(ctx, k, contextJSON, opts, nil)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("orchestration aborted: %w", err)
	}

	commander := o.runner.Run(ctx, agents.Commander, full, opts, subResults)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("orchestration aborted: %w", err)
	}

	results := make([]types.AgentResult, 0, 1+len(subResults))
	results = append(results, commander)
	results = append(results, subResults...)

	respSymbol := actx.Quote.Symbol
	if respSymbol == "" {
		respSymbol = symbol
	}
	return &types.OrchestrationResponse{
		RunID:     o.newID(),
		Symbol:    respSymbol,
		Name:      actx.Quote.Name,
		Timestamp: actx.RequestTime,
		Agents:    results,
	}, nil
}

// RunSingle runs one agent by id. The request's dependency results are passed
// through; only the commander uses them.
func (o *Orchestrator) RunSingle(ctx context.Context, req types.SingleRequest) (*types.AgentResult, error) {
	symbol := strings.TrimSpace(req.Symbol)
	if symbol == "" {
		return nil, ErrBlankSymbol
	}
	kind, ok := agents.Lookup(req.AgentID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAgent, req.AgentID)
	}

	actx, err := NewContextBuilder(o.data, o.now).Build(ctx, symbol, req.Interval, req.Count, req.Source)
	if err != nil {
		return nil, err
	}
	contextJSON, err := ContextJSON(actx, kind.Definition().FullContext)
	if err != nil {
		return nil, err
	}

	result := o.runner.Run(ctx, kind, contextJSON, runOptions(req.RunRequest), req.DependencyResults)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("agent run aborted: %w", err)
	}
	return &result, nil
}

func projections(actx types.AnalysisContext) (full, slim string, err error) {
	if full, err = ContextJSON(actx, true); err != nil {
		return "", "", fmt.Errorf("encode context: %w", err)
	}
	if slim, err = ContextJSON(actx, false); err != nil {
		return "", "", fmt.Errorf("encode context: %w", err)
	}
	return full, slim, nil
}

func runOptions(req types.RunRequest) types.RunOptions {
	return types.RunOptions{
		Provider:    strings.TrimSpace(req.Provider),
		Model:       strings.TrimSpace(req.Model),
		UseInternet: req.UseInternet,
	}
}
