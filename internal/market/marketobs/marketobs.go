package marketobs

import (
	"context"

	"stock-agents/internal/interfaces"
	"stock-agents/internal/logger"
	"stock-agents/internal/trace"
	"stock-agents/internal/types"
)

// observableMarket wraps a MarketDataProvider with logging and tracing
type observableMarket struct {
	data interfaces.MarketDataProvider
}

var _ interfaces.MarketDataProvider = (*observableMarket)(nil)

func Wrap(data interfaces.MarketDataProvider) interfaces.MarketDataProvider {
	return &observableMarket{data: data}
}

func (om *observableMarket) GetQuote(ctx context.Context, symbol, source string) (types.Quote, error) {
	ctx, span := trace.StartSpan(ctx, "market.GetQuote")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching quote", "symbol", symbol, "source", source)

	q, err := om.data.GetQuote(ctx, symbol, source)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch quote", err, "symbol", symbol)
		return types.Quote{}, err
	}

	logger.DebugSkip(ctx, 1, "Quote fetched", "symbol", q.Symbol, "price", q.Price.String())
	return q, nil
}

func (om *observableMarket) GetKLine(ctx context.Context, symbol, interval string, count int, source string) ([]types.KLinePoint, error) {
	ctx, span := trace.StartSpan(ctx, "market.GetKLine")
	defer span.End()

	logger.DebugSkip(ctx, 1, "Fetching k-lines", "symbol", symbol, "interval", interval, "count", count)

	bars, err := om.data.GetKLine(ctx, symbol, interval, count, source)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch k-lines", err, "symbol", symbol, "interval", interval)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "K-lines fetched", "symbol", symbol, "count", len(bars))
	return bars, nil
}

func (om *observableMarket) GetMinuteLine(ctx context.Context, symbol, source string) ([]types.MinuteLinePoint, error) {
	ctx, span := trace.StartSpan(ctx, "market.GetMinuteLine")
	defer span.End()

	ticks, err := om.data.GetMinuteLine(ctx, symbol, source)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch minute-lines", err, "symbol", symbol)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Minute-lines fetched", "symbol", symbol, "count", len(ticks))
	return ticks, nil
}

func (om *observableMarket) GetIntradayMessages(ctx context.Context, symbol, source string) ([]types.IntradayMessage, error) {
	ctx, span := trace.StartSpan(ctx, "market.GetIntradayMessages")
	defer span.End()

	msgs, err := om.data.GetIntradayMessages(ctx, symbol, source)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Failed to fetch intraday messages", err, "symbol", symbol)
		return nil, err
	}

	logger.DebugSkip(ctx, 1, "Intraday messages fetched", "symbol", symbol, "count", len(msgs))
	return msgs, nil
}
