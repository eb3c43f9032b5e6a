package orchestratorobs

import (
	"context"
	"time"

	"stock-agents/internal/interfaces"
	"stock-agents/internal/logger"
	"stock-agents/internal/trace"
	"stock-agents/internal/types"
)

type observableOrchestrator struct {
	orch interfaces.Orchestrator
}

var _ interfaces.Orchestrator = (*observableOrchestrator)(nil)

func Wrap(orch interfaces.Orchestrator) interfaces.Orchestrator {
	return &observableOrchestrator{orch: orch}
}

func (oo *observableOrchestrator) RunFull(ctx context.Context, req types.RunRequest) (*types.OrchestrationResponse, error) {
	ctx, span := trace.StartSpan(ctx, "orchestrator.RunFull")
	defer span.End()

	start := time.Now()
	logger.InfoSkip(ctx, 1, "Starting orchestration",
		"symbol", req.Symbol,
		"provider", req.Provider,
		"use_internet", req.UseInternet,
	)

	resp, err := oo.orch.RunFull(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Orchestration failed", err,
			"symbol", req.Symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	var failed []string
	for _, a := range resp.Agents {
		if !a.Success {
			failed = append(failed, a.AgentID)
		}
	}
	if len(failed) > 0 {
		logger.WarnSkip(ctx, 1, "Orchestration completed with failed agents",
			"run_id", resp.RunID,
			"symbol", resp.Symbol,
			"failed", failed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return resp, nil
	}
	logger.InfoSkip(ctx, 1, "Orchestration completed",
		"run_id", resp.RunID,
		"symbol", resp.Symbol,
		"agents", len(resp.Agents),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (oo *observableOrchestrator) RunSingle(ctx context.Context, req types.SingleRequest) (*types.AgentResult, error) {
	ctx, span := trace.StartSpan(ctx, "orchestrator.RunSingle")
	defer span.End()

	start := time.Now()
	logger.DebugSkip(ctx, 1, "Running single agent",
		"symbol", req.Symbol,
		"agent", req.AgentID,
		"dependencies", len(req.DependencyResults),
	)

	res, err := oo.orch.RunSingle(ctx, req)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Single agent run failed", err,
			"symbol", req.Symbol,
			"agent", req.AgentID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Single agent run completed",
		"agent", res.AgentID,
		"success", res.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
