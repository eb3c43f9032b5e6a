package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"stock-agents/internal/interfaces"
	"stock-agents/internal/types"
)

// Snapshot is the on-disk layout of one symbol's data, stored as
// <dir>/<symbol>.json.
type Snapshot struct {
	Quote       types.Quote             `json:"quote"`
	KLines      []types.KLinePoint      `json:"kLines"`
	MinuteLines []types.MinuteLinePoint `json:"minuteLines"`
	Messages    []types.IntradayMessage `json:"messages"`
}

// StaticProvider serves snapshot files from a directory. It is used for
// offline runs and tests; interval and source are ignored.
type StaticProvider struct {
	dir string
}

var _ interfaces.MarketDataProvider = (*StaticProvider)(nil)

func NewStaticProvider(dir string) *StaticProvider {
	return &StaticProvider{dir: dir}
}

func (p *StaticProvider) load(ctx context.Context, symbol string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := NormalizeSymbol(symbol)
	if !validFileSymbol(s) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}

	data, err := os.ReadFile(filepath.Join(p.dir, s+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSymbolNotFound, s)
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s, err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", s, err)
	}
	if snap.Quote.Symbol == "" {
		snap.Quote.Symbol = s
	}
	return &snap, nil
}

func (p *StaticProvider) GetQuote(ctx context.Context, symbol, _ string) (types.Quote, error) {
	snap, err := p.load(ctx, symbol)
	if err != nil {
		return types.Quote{}, err
	}
	return snap.Quote, nil
}

// GetKLine returns the last count bars of the snapshot.
func (p *StaticProvider) GetKLine(ctx context.Context, symbol, _ string, count int, _ string) ([]types.KLinePoint, error) {
	snap, err := p.load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	bars := snap.KLines
	if count > 0 && len(bars) > count {
		bars = bars[len(bars)-count:]
	}
	return slices.Clone(bars), nil
}

func (p *StaticProvider) GetMinuteLine(ctx context.Context, symbol, _ string) ([]types.MinuteLinePoint, error) {
	snap, err := p.load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return snap.MinuteLines, nil
}

func (p *StaticProvider) GetIntradayMessages(ctx context.Context, symbol, _ string) ([]types.IntradayMessage, error) {
	snap, err := p.load(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return snap.Messages, nil
}
