package orchestratorobs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-agents/internal/logger"
	"stock-agents/internal/types"
)

type stubOrchestrator struct {
	resp *types.OrchestrationResponse
	err  error
}

func (s stubOrchestrator) RunFull(context.Context, types.RunRequest) (*types.OrchestrationResponse, error) {
	return s.resp, s.err
}

func (s stubOrchestrator) RunSingle(context.Context, types.SingleRequest) (*types.AgentResult, error) {
	return nil, s.err
}

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, logger.InitWithConfig(logger.LogConfig{Level: "INFO", Format: "text", Output: &buf}))
	t.Cleanup(func() { _ = logger.InitWithConfig(logger.LogConfig{Level: "INFO"}) })
	return &buf
}

func TestRunFullWarnsAboutFailedAgents(t *testing.T) {
	buf := captureLogs(t)
	resp := &types.OrchestrationResponse{
		RunID:  "run-1",
		Symbol: "sh600519",
		Agents: []types.AgentResult{
			{AgentID: "commander", Success: true},
			types.FailedResult("trend_analysis", "走势分析Agent", "invalid JSON", ""),
		},
	}

	got, err := Wrap(stubOrchestrator{resp: resp}).RunFull(context.Background(), types.RunRequest{Symbol: "600519"})
	require.NoError(t, err)
	assert.Same(t, resp, got)
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "trend_analysis")
}

func TestRunFullLogsFailure(t *testing.T) {
	buf := captureLogs(t)
	boom := errors.New("quote unavailable")

	_, err := Wrap(stubOrchestrator{err: boom}).RunFull(context.Background(), types.RunRequest{Symbol: "600519"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "quote unavailable")
}
