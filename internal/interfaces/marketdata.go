package interfaces

import (
	"context"

	"stock-agents/internal/types"
)

// MarketDataProvider fetches raw market data for one symbol. source is an
// optional upstream hint and may be empty.
type MarketDataProvider interface {
	GetQuote(ctx context.Context, symbol, source string) (types.Quote, error)
	GetKLine(ctx context.Context, symbol, interval string, count int, source string) ([]types.KLinePoint, error)
	GetMinuteLine(ctx context.Context, symbol, source string) ([]types.MinuteLinePoint, error)
	GetIntradayMessages(ctx context.Context, symbol, source string) ([]types.IntradayMessage, error)
}
