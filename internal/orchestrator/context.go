package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"stock-agents/internal/interfaces"
	"stock-agents/internal/types"
)

const (
	DefaultInterval = "day"
	DefaultBarCount = 60
	MinBarCount     = 10
	MaxBarCount     = 120

	KLineWindow      = 60
	MinuteLineWindow = 120
	MessageWindow    = 20
)

// ClampCount maps a requested bar count into [MinBarCount, MaxBarCount].
// Non-positive input selects DefaultBarCount.
func ClampCount(n int) int {
	if n <= 0 {
		n = DefaultBarCount
	}
	return min(max(n, MinBarCount), MaxBarCount)
}

// ContextBuilder assembles the AnalysisContext for one request.
type ContextBuilder struct {
	data interfaces.MarketDataProvider
	now  func() time.Time
}

func NewContextBuilder(data interfaces.MarketDataProvider, now func() time.Time) *ContextBuilder {
	if now == nil {
		now = time.Now
	}
	return &ContextBuilder{data: data, now: now}
}

// Build fetches all market data for symbol and trims it to the prompt
// windows. Any fetch error fails the whole build.
func (b *ContextBuilder) Build(ctx context.Context, symbol, interval string, count int, source string) (types.AnalysisContext, error) {
	interval = strings.TrimSpace(interval)
	if interval == "" {
		interval = DefaultInterval
	}
	count = ClampCount(count)

	quote, err := b.data.GetQuote(ctx, symbol, source)
	if err != nil {
		return types.AnalysisContext{}, &UpstreamError{Op: "quote", Symbol: symbol, Err: err}
	}
	kLines, err := b.data.GetKLine(ctx, symbol, interval, count, source)
	if err != nil {
		return types.AnalysisContext{}, &UpstreamError{Op: "kline", Symbol: symbol, Err: err}
	}
	minuteLines, err := b.data.GetMinuteLine(ctx, symbol, source)
	if err != nil {
		return types.AnalysisContext{}, &UpstreamError{Op: "minute", Symbol: symbol, Err: err}
	}
	messages, err := b.data.GetIntradayMessages(ctx, symbol, source)
	if err != nil {
		return types.AnalysisContext{}, &UpstreamError{Op: "messages", Symbol: symbol, Err: err}
	}

	return types.AnalysisContext{
		Quote:       quote,
		KLines:      trimKLines(kLines),
		MinuteLines: trimMinuteLines(minuteLines),
		Messages:    trimMessages(messages),
		RequestTime: b.now(),
	}, nil
}

func trimKLines(in []types.KLinePoint) []types.KLinePoint {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b types.KLinePoint) int {
		return a.Date.Compare(b.Date.Time)
	})
	return lastN(out, KLineWindow)
}

func trimMinuteLines(in []types.MinuteLinePoint) []types.MinuteLinePoint {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b types.MinuteLinePoint) int {
		if c := a.Date.Compare(b.Date.Time); c != 0 {
			return c
		}
		return strings.Compare(clockKey(a.Time), clockKey(b.Time))
	})
	return lastN(out, MinuteLineWindow)
}

func trimMessages(in []types.IntradayMessage) []types.IntradayMessage {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b types.IntradayMessage) int {
		return b.PublishedAt.Compare(a.PublishedAt.Time)
	})
	if len(out) > MessageWindow {
		out = out[:MessageWindow]
	}
	if out == nil {
		out = []types.IntradayMessage{}
	}
	return out
}

func lastN[T any](s []T, n int) []T {
	if len(s) > n {
		s = s[len(s)-n:]
	}
	if s == nil {
		s = []T{}
	}
	return s
}

// clockKey zero pads the hour so "9:31" sorts before "10:00".
func clockKey(clock string) string {
	clock = strings.TrimSpace(clock)
	if i := strings.IndexByte(clock, ':'); i == 1 {
		return "0" + clock
	}
	return clock
}

type fullContext struct {
	Quote       types.Quote             `json:"quote"`
	KLines      []types.KLinePoint      `json:"kLines"`
	MinuteLines []types.MinuteLinePoint `json:"minuteLines"`
	Messages    []types.IntradayMessage `json:"messages"`
	RequestTime time.Time               `json:"requestTime"`
}

type slimContext struct {
	Quote       types.Quote             `json:"quote"`
	Messages    []types.IntradayMessage `json:"messages"`
	RequestTime time.Time               `json:"requestTime"`
}

// ContextJSON renders the full projection (quote, bars, ticks, messages) or
// the slim one (quote and messages only).
func ContextJSON(actx types.AnalysisContext, full bool) (string, error) {
	var v any = slimContext{
		Quote:       actx.Quote,
		Messages:    actx.Messages,
		RequestTime: actx.RequestTime,
	}
	if full {
		v = fullContext{
			Quote:       actx.Quote,
			KLines:      actx.KLines,
			MinuteLines: actx.MinuteLines,
			Messages:    actx.Messages,
			RequestTime: actx.RequestTime,
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
