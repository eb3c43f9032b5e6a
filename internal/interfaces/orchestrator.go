package interfaces

import (
	"context"

	"stock-agents/internal/types"
)

type Orchestrator interface {
	RunFull(ctx context.Context, req types.RunRequest) (*types.OrchestrationResponse, error)
	RunSingle(ctx context.Context, req types.SingleRequest) (*types.AgentResult, error)
}
