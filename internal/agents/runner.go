package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"stock-agents/internal/interfaces"
	"stock-agents/internal/jsondoc"
	"stock-agents/internal/logger"
	"stock-agents/internal/types"
)

// MaxRepairAttempts bounds the extra provider calls spent on repairing one
// unparseable response.
const MaxRepairAttempts = 2

const (
	DefaultProvider          = "openai"
	DefaultTemperature       = 0.4
	DefaultRepairTemperature = 0.2

	auditCategory = "LLM"
)

type RunnerConfig struct {
	DefaultProvider   string
	Temperature       float64
	Temperatures      map[Kind]float64 // per-kind override of Temperature
	RepairTemperature float64
	// LocalRepair tries a syntactic JSON repair before asking the model again.
	LocalRepair bool
}

func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		DefaultProvider:   DefaultProvider,
		Temperature:       DefaultTemperature,
		RepairTemperature: DefaultRepairTemperature,
	}
}

// Runner drives one agent call through prompt, provider, extraction, repair
// and normalization. It is safe for concurrent use if the ChatClient is.
type Runner struct {
	chat  interfaces.ChatClient
	audit interfaces.LogWriter
	cfg   RunnerConfig
}

type discardWriter struct{}

func (discardWriter) Write(string, string) {}

func NewRunner(chat interfaces.ChatClient, audit interfaces.LogWriter, cfg RunnerConfig) *Runner {
	if audit == nil {
		audit = discardWriter{}
	}
	if cfg.DefaultProvider == "" {
		cfg.DefaultProvider = DefaultProvider
	}
	return &Runner{chat: chat, audit: audit, cfg: cfg}
}

func (r *Runner) temperature(k Kind) float64 {
	if t, ok := r.cfg.Temperatures[k]; ok {
		return t
	}
	return r.cfg.Temperature
}

// Run executes agent k and always returns an envelope. Provider errors and
// exhausted repairs become failed envelopes.
func (r *Runner) Run(ctx context.Context, k Kind, contextJSON string, opts types.RunOptions, deps []types.AgentResult) types.AgentResult {
	def := k.Definition()
	provider := strings.TrimSpace(opts.Provider)
	if provider == "" {
		provider = r.cfg.DefaultProvider
	}

	timer := logger.StartOperation(ctx, "agents.Run", "agent", def.ID, "provider", provider)
	ctx = timer.GetContext()

	calls := 1
	res, err := r.chat.Chat(ctx, provider, types.ChatRequest{
		Prompt:      BuildPrompt(k, contextJSON, deps),
		Model:       opts.Model,
		Temperature: types.Float(r.temperature(k)),
		UseInternet: opts.UseInternet,
	})
	if err != nil {
		timer.EndWithError(err, "stage", "initial")
		logger.AgentOutcome(ctx, def.ID, false, calls, "error", err.Error())
		return types.FailedResult(def.ID, def.Name, err.Error(), "")
	}

	raw := strings.TrimSpace(res.Content)
	doc, parseErr := ParseOutput(raw)
	if parseErr == nil {
		timer.End("calls", calls)
		logger.AgentOutcome(ctx, def.ID, true, calls)
		return types.SucceededResult(def.ID, def.Name, Normalize(k, doc), raw)
	}

	r.audit.Write(auditCategory, fmt.Sprintf("parse_error agent=%s message=%s raw=%s", def.ID, parseErr, raw))
	logger.Warn(ctx, "Agent output is not valid JSON", "agent", def.ID, "error", parseErr, "raw_length", len(raw))

	if r.cfg.LocalRepair {
		if repaired, ok := localRepair(raw); ok {
			logger.Info(ctx, "Agent output repaired locally", "agent", def.ID)
			timer.End("calls", calls, "repair", "local")
			logger.AgentOutcome(ctx, def.ID, true, calls)
			return types.SucceededResult(def.ID, def.Name, Normalize(k, repaired), raw)
		}
	}

	current := raw
	for attempt := 1; attempt <= MaxRepairAttempts; attempt++ {
		calls++
		res, err := r.chat.Chat(ctx, provider, types.ChatRequest{
			Prompt:      BuildRepairPrompt(k, current),
			Model:       opts.Model,
			Temperature: types.Float(r.cfg.RepairTemperature),
			UseInternet: false,
		})
		if err != nil {
			timer.EndWithError(err, "stage", "repair", "attempt", attempt)
			logger.AgentOutcome(ctx, def.ID, false, calls, "error", err.Error())
			return types.FailedResult(def.ID, def.Name, err.Error(), current)
		}

		repairRaw := strings.TrimSpace(res.Content)
		repaired, err := ParseOutput(repairRaw)
		if err == nil {
			timer.End("calls", calls, "repair", "model")
			logger.AgentOutcome(ctx, def.ID, true, calls)
			return types.SucceededResult(def.ID, def.Name, Normalize(k, repaired), repairRaw)
		}

		r.audit.Write(auditCategory, fmt.Sprintf("parse_error agent=%s stage=repair attempt=%d message=%s raw=%s",
			def.ID, attempt, err, repairRaw))
		current = repairRaw
	}

	timer.EndWithError(parseErr, "stage", "repair_exhausted")
	logger.AgentOutcome(ctx, def.ID, false, calls, "error", parseErr.Error())
	return types.FailedResult(def.ID, def.Name, parseErr.Error(), current)
}

// localRepair runs a syntactic repair over the JSON-looking part of raw.
// Truncated output without a closing brace is repaired from its first "{".
func localRepair(raw string) (jsondoc.Value, bool) {
	text := stripFence(strings.TrimSpace(raw))
	if candidate, ok := ExtractJSON(text); ok {
		text = candidate
	} else if i := strings.IndexByte(text, '{'); i >= 0 {
		text = text[i:]
	} else {
		return jsondoc.Value{}, false
	}

	fixed, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return jsondoc.Value{}, false
	}
	doc, err := parseCandidate(fixed)
	return doc, err == nil
}
