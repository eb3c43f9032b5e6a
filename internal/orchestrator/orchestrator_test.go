package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-agents/internal/agents"
	"stock-agents/internal/types"
)

func TestRunFull_OrderAndShape(t *testing.T) {
	market := newFakeMarket()
	chat := &routedChat{handler: echoSummary}
	o := newTestOrchestrator(market, chat)

	resp, err := o.RunFull(context.Background(), types.RunRequest{Symbol: " 600519 ", Provider: "gemini", UseInternet: true})
	require.NoError(t, err)

	assert.Equal(t, "run-1", resp.RunID)
	assert.Equal(t, "sh600519", resp.Symbol)
	assert.Equal(t, "贵州茅台", resp.Name)
	assert.Equal(t, day0.Add(10*time.Hour), resp.Timestamp)

	require.Len(t, resp.Agents, 5)
	for i, k := range agents.All() {
		got := resp.Agents[i]
		assert.Equal(t, k.ID(), got.AgentID)
		assert.Equal(t, k.Name(), got.AgentName)
		assert.True(t, got.Success, k.ID())
		require.NotNil(t, got.Data)
		assert.Equal(t, k.ID()+" done", stringField(got.Data, "summary"))
		assert.Equal(t, k.ID(), stringField(got.Data, "agent"))
	}
	assert.Equal(t, 5, chat.total())

	for _, call := range chat.calls {
		assert.True(t, call.req.UseInternet)
	}
}

func TestRunFull_ContextProjections(t *testing.T) {
	chat := &routedChat{handler: echoSummary}
	_, err := newTestOrchestrator(newFakeMarket(), chat).RunFull(context.Background(), types.RunRequest{Symbol: "sh600519"})
	require.NoError(t, err)

	for _, k := range agents.All() {
		calls := chat.callsFor(k)
		require.Len(t, calls, 1, k.ID())
		prompt := calls[0].req.Prompt
		if k.Definition().FullContext {
			assert.Contains(t, prompt, `"kLines"`, k.ID())
			assert.Contains(t, prompt, `"minuteLines"`, k.ID())
		} else {
			assert.NotContains(t, prompt, `"kLines"`, k.ID())
			assert.NotContains(t, prompt, `"minuteLines"`, k.ID())
		}
		assert.Contains(t, prompt, `"messages"`, k.ID())
	}
}

func TestRunFull_CommanderSeesSubAgentResults(t *testing.T) {
	chat := &routedChat{handler: func(ctx context.Context, k agents.Kind, repair bool) (string, error) {
		if k == agents.SectorNews {
			return "", errors.New("quota exceeded")
		}
		return echoSummary(ctx, k, repair)
	}}
	resp, err := newTestOrchestrator(newFakeMarket(), chat).RunFull(context.Background(), types.RunRequest{Symbol: "sh600519"})
	require.NoError(t, err)

	calls := chat.callsFor(agents.Commander)
	require.Len(t, calls, 1)
	_, deps, found := strings.Cut(calls[0].req.Prompt, "其他Agent输出JSON：\n")
	require.True(t, found)

	idx := -1
	for _, k := range agents.SubAgents() {
		next := strings.Index(deps, `"agentId":"`+k.ID()+`"`)
		require.GreaterOrEqual(t, next, 0, k.ID())
		assert.Greater(t, next, idx, "sub-agent order")
		idx = next
	}
	assert.Contains(t, deps, `"error":"quota exceeded"`)
	assert.Contains(t, deps, `"summary":"trend_analysis done"`)

	sector := resp.Agents[2]
	assert.Equal(t, "sector_news", sector.AgentID)
	assert.False(t, sector.Success)
	assert.Equal(t, "quota exceeded", sector.Error)
	assert.Nil(t, sector.Data)
	assert.True(t, resp.Agents[0].Success)
}

func TestRunFull_AllProvidersFail(t *testing.T) {
	chat := &routedChat{handler: func(context.Context, agents.Kind, bool) (string, error) {
		return "", errors.New("provider down")
	}}
	resp, err := newTestOrchestrator(newFakeMarket(), chat).RunFull(context.Background(), types.RunRequest{Symbol: "sh600519"})
	require.NoError(t, err)

	require.Len(t, resp.Agents, 5)
	for _, r := range resp.Agents {
		assert.False(t, r.Success, r.AgentID)
		assert.Equal(t, "provider down", r.Error)
	}
	assert.Equal(t, 5, chat.total())
}

func TestRunFull_RepairIsPerAgent(t *testing.T) {
	chat := &routedChat{handler: func(ctx context.Context, k agents.Kind, repair bool) (string, error) {
		switch {
		case k == agents.FinancialAnalysis && !repair:
			return "分析如下：估值偏高", nil
		case k == agents.FinancialAnalysis:
			return `{"summary":"repaired"}`, nil
		case k == agents.TrendAnalysis:
			return "not json at all", nil
		}
		return echoSummary(ctx, k, repair)
	}}
	resp, err := newTestOrchestrator(newFakeMarket(), chat).RunFull(context.Background(), types.RunRequest{Symbol: "sh600519"})
	require.NoError(t, err)

	financial := resp.Agents[3]
	assert.True(t, financial.Success)
	assert.Equal(t, "repaired", stringField(financial.Data, "summary"))
	assert.Len(t, chat.callsFor(agents.FinancialAnalysis), 2)

	trend := resp.Agents[4]
	assert.False(t, trend.Success)
	assert.Equal(t, "not json at all", trend.RawContent)
	assert.Len(t, chat.callsFor(agents.TrendAnalysis), 1+agents.MaxRepairAttempts)

	for _, k := range []agents.Kind{agents.Commander, agents.StockNews, agents.SectorNews} {
		assert.Len(t, chat.callsFor(k), 1, k.ID())
	}
}

func TestRunFull_BlankSymbol(t *testing.T) {
	market := newFakeMarket()
	chat := &routedChat{handler: echoSummary}

	_, err := newTestOrchestrator(market, chat).RunFull(context.Background(), types.RunRequest{Symbol: "   "})
	require.ErrorIs(t, err, ErrBlankSymbol)
	assert.True(t, IsValidation(err))
	assert.Zero(t, market.calls)
	assert.Zero(t, chat.total())
}

func TestRunFull_UpstreamFailureSkipsAgents(t *testing.T) {
	market := newFakeMarket()
	market.minuteErr = errors.New("timeout")
	chat := &routedChat{handler: echoSummary}

	resp, err := newTestOrchestrator(market, chat).RunFull(context.Background(), types.RunRequest{Symbol: "sh600519"})
	require.Error(t, err)
	assert.Nil(t, resp)

	var upstream *UpstreamError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "minute", upstream.Op)
	assert.Zero(t, chat.total())
}

func TestRunFull_CancelledDuringSubAgents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	chat := &routedChat{handler: func(ctx context.Context, k agents.Kind, repair bool) (string, error) {
		if k == agents.StockNews {
			cancel()
			return "", ctx.Err()
		}
		return echoSummary(ctx, k, repair)
	}}
	resp, err := newTestOrchestrator(newFakeMarket(), chat).RunFull(ctx, types.RunRequest{Symbol: "sh600519"})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, resp)
	assert.Empty(t, chat.callsFor(agents.Commander))
}

func TestRunFull_SubAgentsRunConcurrently(t *testing.T) {
	var arrived atomic.Int32
	release := make(chan struct{})

	chat := &routedChat{handler: func(ctx context.Context, k agents.Kind, repair bool) (string, error) {
		if k != agents.Commander && arrived.Add(1) == int32(len(agents.SubAgents())) {
			close(release)
		}
		if k != agents.Commander {
			select {
			case <-release:
			case <-time.After(5 * time.Second):
				return "", errors.New("sub-agents were serialized")
			}
		}
		return echoSummary(ctx, k, repair)
	}}
	resp, err := newTestOrchestrator(newFakeMarket(), chat).RunFull(context.Background(), types.RunRequest{Symbol: "sh600519"})
	require.NoError(t, err)

	for _, r := range resp.Agents {
		assert.True(t, r.Success, r.AgentID+": "+r.Error)
	}
}

func TestRunFull_CommanderRunsLast(t *testing.T) {
	var finished atomic.Int32
	var seenAtCommander int32

	chat := &routedChat{handler: func(ctx context.Context, k agents.Kind, repair bool) (string, error) {
		if k == agents.Commander {
			seenAtCommander = finished.Load()
		} else {
			defer finished.Add(1)
		}
		return echoSummary(ctx, k, repair)
	}}
	_, err := newTestOrchestrator(newFakeMarket(), chat).RunFull(context.Background(), types.RunRequest{Symbol: "sh600519"})
	require.NoError(t, err)
	assert.Equal(t, int32(4), seenAtCommander)
}

func TestRunSingle(t *testing.T) {
	t.Run("unknown agent", func(t *testing.T) {
		market := newFakeMarket()
		chat := &routedChat{handler: echoSummary}

		_, err := newTestOrchestrator(market, chat).RunSingle(context.Background(), types.SingleRequest{
			RunRequest: types.RunRequest{Symbol: "sh600519"},
			AgentID:    "macro",
		})
		require.ErrorIs(t, err, ErrUnknownAgent)
		assert.Contains(t, err.Error(), `"macro"`)
		assert.Zero(t, market.calls)
		assert.Zero(t, chat.total())
	})

	t.Run("blank symbol", func(t *testing.T) {
		chat := &routedChat{handler: echoSummary}
		_, err := newTestOrchestrator(newFakeMarket(), chat).RunSingle(context.Background(), types.SingleRequest{
			AgentID: "commander",
		})
		require.ErrorIs(t, err, ErrBlankSymbol)
	})

	t.Run("id is case insensitive", func(t *testing.T) {
		chat := &routedChat{handler: echoSummary}
		res, err := newTestOrchestrator(newFakeMarket(), chat).RunSingle(context.Background(), types.SingleRequest{
			RunRequest: types.RunRequest{Symbol: "sh600519"},
			AgentID:    " Trend_Analysis ",
		})
		require.NoError(t, err)
		assert.Equal(t, "trend_analysis", res.AgentID)
		assert.True(t, res.Success)

		calls := chat.callsFor(agents.TrendAnalysis)
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].req.Prompt, `"kLines"`)
	})

	t.Run("slim context for news agents", func(t *testing.T) {
		chat := &routedChat{handler: echoSummary}
		_, err := newTestOrchestrator(newFakeMarket(), chat).RunSingle(context.Background(), types.SingleRequest{
			RunRequest: types.RunRequest{Symbol: "sh600519"},
			AgentID:    "stock_news",
		})
		require.NoError(t, err)
		calls := chat.callsFor(agents.StockNews)
		require.Len(t, calls, 1)
		assert.NotContains(t, calls[0].req.Prompt, `"kLines"`)
	})

	t.Run("commander with supplied dependencies", func(t *testing.T) {
		chat := &routedChat{handler: echoSummary}
		deps := []types.AgentResult{types.FailedResult("stock_news", "个股资讯Agent", "timeout", "")}

		res, err := newTestOrchestrator(newFakeMarket(), chat).RunSingle(context.Background(), types.SingleRequest{
			RunRequest:        types.RunRequest{Symbol: "sh600519"},
			AgentID:           "commander",
			DependencyResults: deps,
		})
		require.NoError(t, err)
		assert.True(t, res.Success)

		calls := chat.callsFor(agents.Commander)
		require.Len(t, calls, 1)
		assert.Contains(t, calls[0].req.Prompt, `"agentId":"stock_news"`)
		assert.Contains(t, calls[0].req.Prompt, `"error":"timeout"`)
	})

	t.Run("upstream error", func(t *testing.T) {
		market := newFakeMarket()
		market.quoteErr = errors.New("404")
		chat := &routedChat{handler: echoSummary}

		_, err := newTestOrchestrator(market, chat).RunSingle(context.Background(), types.SingleRequest{
			RunRequest: types.RunRequest{Symbol: "sh600519"},
			AgentID:    "commander",
		})
		var upstream *UpstreamError
		require.ErrorAs(t, err, &upstream)
		assert.Equal(t, "quote", upstream.Op)
		assert.Zero(t, chat.total())
	})
}
