package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock-agents/internal/types"
)

type reply struct {
	content string
	err     error
}

type chatCall struct {
	provider string
	req      types.ChatRequest
}

// scriptedChat answers calls with replies in order.
type scriptedChat struct {
	mu      sync.Mutex
	replies []reply
	calls   []chatCall
}

func (s *scriptedChat) Chat(_ context.Context, provider string, req types.ChatRequest) (types.ChatResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, chatCall{provider: provider, req: req})
	if len(s.replies) == 0 {
		return types.ChatResult{}, errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return types.ChatResult{Content: r.content}, r.err
}

type recordingWriter struct {
	mu    sync.Mutex
	lines []string
}

func (w *recordingWriter) Write(category, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = append(w.lines, "["+category+"] "+message)
}

func newTestRunner(chat *scriptedChat, audit *recordingWriter) *Runner {
	if audit == nil {
		return NewRunner(chat, nil, DefaultRunnerConfig())
	}
	return NewRunner(chat, audit, DefaultRunnerConfig())
}

func TestRunFirstAttemptSuccess(t *testing.T) {
	chat := &scriptedChat{replies: []reply{{content: "  {\"agent\":\"stock_news\",\"summary\":\"ok\"}  "}}}
	audit := &recordingWriter{}
	r := newTestRunner(chat, audit)

	res := r.Run(context.Background(), StockNews, `{"quote":{}}`, types.RunOptions{Model: "m1", UseInternet: true}, nil)

	require.True(t, res.Success)
	assert.Equal(t, "stock_news", res.AgentID)
	assert.Equal(t, "个股资讯Agent", res.AgentName)
	assert.Empty(t, res.Error)
	require.NotNil(t, res.Data)
	assert.Equal(t, FieldNames(StockNews), res.Data.Keys())
	assert.Equal(t, `{"agent":"stock_news","summary":"ok"}`, res.RawContent)

	require.Len(t, chat.calls, 1)
	call := chat.calls[0]
	assert.Equal(t, DefaultProvider, call.provider)
	assert.Equal(t, "m1", call.req.Model)
	assert.True(t, call.req.UseInternet)
	require.NotNil(t, call.req.Temperature)
	assert.Equal(t, DefaultTemperature, *call.req.Temperature)
	assert.Empty(t, audit.lines)
}

func TestRunProviderErrorFailsImmediately(t *testing.T) {
	chat := &scriptedChat{replies: []reply{{err: errors.New("rate limited")}}}
	r := newTestRunner(chat, &recordingWriter{})

	res := r.Run(context.Background(), SectorNews, "{}", types.RunOptions{Provider: "gemini"}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, "rate limited", res.Error)
	assert.Nil(t, res.Data)
	assert.Empty(t, res.RawContent)
	require.Len(t, chat.calls, 1)
	assert.Equal(t, "gemini", chat.calls[0].provider)
}

func TestRunRepairSucceedsOnFirstRepair(t *testing.T) {
	chat := &scriptedChat{replies: []reply{
		{content: "not json"},
		{content: "```json\n{\"summary\":\"fixed\"}\n```"},
	}}
	audit := &recordingWriter{}
	r := newTestRunner(chat, audit)

	res := r.Run(context.Background(), StockNews, "{}", types.RunOptions{UseInternet: true}, nil)

	require.True(t, res.Success)
	assert.Equal(t, "fixed", mustString(t, get(t, *res.Data, "summary")))
	assert.Equal(t, "stock_news", mustString(t, get(t, *res.Data, "agent")))
	assert.Equal(t, "```json\n{\"summary\":\"fixed\"}\n```", res.RawContent)

	require.Len(t, chat.calls, 2)
	repair := chat.calls[1].req
	assert.False(t, repair.UseInternet)
	assert.Equal(t, DefaultRepairTemperature, *repair.Temperature)
	assert.True(t, strings.HasSuffix(repair.Prompt, "原始输出：\nnot json"))

	require.Len(t, audit.lines, 1)
	assert.Equal(t, "[LLM] parse_error agent=stock_news message=no JSON found raw=not json", audit.lines[0])
}

func TestRunRepairExhausted(t *testing.T) {
	chat := &scriptedChat{replies: []reply{
		{content: "first"},
		{content: "second"},
		{content: "third"},
		{content: `{"never":"reached"}`},
	}}
	audit := &recordingWriter{}
	r := newTestRunner(chat, audit)

	res := r.Run(context.Background(), TrendAnalysis, "{}", types.RunOptions{}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, "no JSON found", res.Error)
	assert.Nil(t, res.Data)
	assert.Equal(t, "third", res.RawContent)
	assert.Len(t, chat.calls, 1+MaxRepairAttempts)

	assert.True(t, strings.HasSuffix(chat.calls[2].req.Prompt, "原始输出：\nsecond"), "each repair is seeded with the latest raw output")

	require.Len(t, audit.lines, 3)
	assert.Contains(t, audit.lines[1], "stage=repair attempt=1")
	assert.Contains(t, audit.lines[2], "stage=repair attempt=2")
}

func TestRunRepairKeepsOriginalParseError(t *testing.T) {
	chat := &scriptedChat{replies: []reply{
		{content: `{"a": tru}`},
		{content: "nothing"},
		{content: ""},
	}}
	res := newTestRunner(chat, nil).Run(context.Background(), Commander, "{}", types.RunOptions{}, nil)

	assert.False(t, res.Success)
	assert.True(t, strings.HasPrefix(res.Error, "invalid JSON: "), res.Error)
}

func TestRunRepairProviderError(t *testing.T) {
	chat := &scriptedChat{replies: []reply{
		{content: "garbage"},
		{err: errors.New("connection reset")},
	}}
	res := newTestRunner(chat, &recordingWriter{}).Run(context.Background(), FinancialAnalysis, "{}", types.RunOptions{}, nil)

	assert.False(t, res.Success)
	assert.Equal(t, "connection reset", res.Error)
	assert.Equal(t, "garbage", res.RawContent)
	assert.Len(t, chat.calls, 2)
}

func TestRunLocalRepair(t *testing.T) {
	chat := &scriptedChat{replies: []reply{{content: `{"agent":"stock_news","summary":"ok",}`}}}
	cfg := DefaultRunnerConfig()
	cfg.LocalRepair = true
	r := NewRunner(chat, &recordingWriter{}, cfg)

	res := r.Run(context.Background(), StockNews, "{}", types.RunOptions{}, nil)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "ok", mustString(t, get(t, *res.Data, "summary")))
	assert.Len(t, chat.calls, 1)
}

func TestRunPerKindTemperature(t *testing.T) {
	chat := &scriptedChat{replies: []reply{{content: "{}"}}}
	cfg := DefaultRunnerConfig()
	cfg.Temperatures = map[Kind]float64{TrendAnalysis: 0.1}
	r := NewRunner(chat, nil, cfg)

	res := r.Run(context.Background(), TrendAnalysis, "{}", types.RunOptions{}, nil)

	require.True(t, res.Success)
	assert.Equal(t, 0.1, *chat.calls[0].req.Temperature)
}

func TestRunCommanderReceivesDependencies(t *testing.T) {
	chat := &scriptedChat{replies: []reply{{content: "{}"}}}
	deps := []types.AgentResult{types.FailedResult("stock_news", "个股资讯Agent", "boom", "")}

	res := newTestRunner(chat, nil).Run(context.Background(), Commander, "{}", types.RunOptions{}, deps)

	require.True(t, res.Success)
	assert.Contains(t, chat.calls[0].req.Prompt, `"error":"boom"`)
}
