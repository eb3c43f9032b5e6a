package market

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"stock-agents/internal/interfaces"
	"stock-agents/internal/types"
)

// CacheTTLs sets how long each kind of response is reused.
type CacheTTLs struct {
	Quote    time.Duration
	KLine    time.Duration
	Minute   time.Duration
	Messages time.Duration
}

// DefaultCacheTTLs keeps quotes briefly and daily bars for an hour.
func DefaultCacheTTLs() CacheTTLs {
	return CacheTTLs{
		Quote:    5 * time.Second,
		KLine:    time.Hour,
		Minute:   30 * time.Second,
		Messages: time.Minute,
	}
}

type cacheEntry struct {
	value     any
	expiresAt time.Time
}

// CachedProvider memoizes another provider's successful responses. Entries
// expire lazily on read; errors are never cached.
type CachedProvider struct {
	next interfaces.MarketDataProvider
	ttls CacheTTLs
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]cacheEntry
}

var _ interfaces.MarketDataProvider = (*CachedProvider)(nil)

func NewCachedProvider(next interfaces.MarketDataProvider, ttls CacheTTLs) *CachedProvider {
	return &CachedProvider{
		next:    next,
		ttls:    ttls,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}

func (c *CachedProvider) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

func (c *CachedProvider) set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
}

// Len reports the number of stored entries, expired ones included.
func (c *CachedProvider) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func cached[T any](c *CachedProvider, key string, ttl time.Duration, fetch func() (T, error)) (T, error) {
	if v, ok := c.get(key); ok {
		return v.(T), nil
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.set(key, v, ttl)
	return v, nil
}

func (c *CachedProvider) GetQuote(ctx context.Context, symbol, source string) (types.Quote, error) {
	key := cacheKey("quote", source, NormalizeSymbol(symbol))
	return cached(c, key, c.ttls.Quote, func() (types.Quote, error) {
		return c.next.GetQuote(ctx, symbol, source)
	})
}

func (c *CachedProvider) GetKLine(ctx context.Context, symbol, interval string, count int, source string) ([]types.KLinePoint, error) {
	key := cacheKey("kline", source, NormalizeSymbol(symbol), interval, strconv.Itoa(count))
	return cached(c, key, c.ttls.KLine, func() ([]types.KLinePoint, error) {
		return c.next.GetKLine(ctx, symbol, interval, count, source)
	})
}

func (c *CachedProvider) GetMinuteLine(ctx context.Context, symbol, source string) ([]types.MinuteLinePoint, error) {
	key := cacheKey("minute", source, NormalizeSymbol(symbol))
	return cached(c, key, c.ttls.Minute, func() ([]types.MinuteLinePoint, error) {
		return c.next.GetMinuteLine(ctx, symbol, source)
	})
}

func (c *CachedProvider) GetIntradayMessages(ctx context.Context, symbol, source string) ([]types.IntradayMessage, error) {
	key := cacheKey("messages", source, NormalizeSymbol(symbol))
	return cached(c, key, c.ttls.Messages, func() ([]types.IntradayMessage, error) {
		return c.next.GetIntradayMessages(ctx, symbol, source)
	})
}
