package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"stock-agents/internal/api"
	"stock-agents/internal/interfaces"
	"stock-agents/internal/types"
)

type RemoteConfig struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token   string
	Timeout time.Duration
	Retry   *api.RetryConfig
}

// RemoteProvider reads market data from an HTTP quote service exposing
// GET /quote, /kline, /minute and /messages, all keyed by ?symbol=.
type RemoteProvider struct {
	client *api.Client
	retry  *api.RetryConfig
}

var _ interfaces.MarketDataProvider = (*RemoteProvider)(nil)

func NewRemoteProvider(cfg RemoteConfig) (*RemoteProvider, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("market base url missing")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	opts := []api.ClientOption{
		api.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		api.WithTimeout(cfg.Timeout),
		api.WithLogging(true),
	}
	for k, v := range api.JSONHeaders() {
		opts = append(opts, api.WithHeader(k, v))
	}
	if cfg.Token != "" {
		opts = append(opts, api.WithHeader("Authorization", "Bearer "+cfg.Token))
	}
	retry := cfg.Retry
	if retry == nil {
		retry = api.DefaultRetryConfig()
	}
	return &RemoteProvider{client: api.NewClient(opts...), retry: retry}, nil
}

func (p *RemoteProvider) get(ctx context.Context, path, symbol, source string, out any, params ...string) error {
	req := api.NewRequest(http.MethodGet, path).
		WithContext(ctx).
		WithParam("symbol", NormalizeSymbol(symbol)).
		WithParam("source", strings.TrimSpace(source))
	for i := 0; i+1 < len(params); i += 2 {
		req.WithParam(params[i], params[i+1])
	}

	resp, err := p.client.DoWithRetry(req, p.retry)
	if err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrSymbolNotFound, NormalizeSymbol(symbol))
		}
		return err
	}
	return resp.ParseJSON(out)
}

func (p *RemoteProvider) GetQuote(ctx context.Context, symbol, source string) (types.Quote, error) {
	var q types.Quote
	if err := p.get(ctx, "/quote", symbol, source, &q); err != nil {
		return types.Quote{}, err
	}
	return q, nil
}

func (p *RemoteProvider) GetKLine(ctx context.Context, symbol, interval string, count int, source string) ([]types.KLinePoint, error) {
	var bars []types.KLinePoint
	err := p.get(ctx, "/kline", symbol, source, &bars,
		"interval", interval,
		"count", strconv.Itoa(count),
	)
	return bars, err
}

func (p *RemoteProvider) GetMinuteLine(ctx context.Context, symbol, source string) ([]types.MinuteLinePoint, error) {
	var ticks []types.MinuteLinePoint
	err := p.get(ctx, "/minute", symbol, source, &ticks)
	return ticks, err
}

func (p *RemoteProvider) GetIntradayMessages(ctx context.Context, symbol, source string) ([]types.IntradayMessage, error) {
	var msgs []types.IntradayMessage
	err := p.get(ctx, "/messages", symbol, source, &msgs)
	return msgs, err
}
