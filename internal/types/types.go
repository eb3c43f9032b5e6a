package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prompt payloads carry prices as bare JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// China Standard Time, used for timestamps that arrive without an offset.
var marketZone = time.FixedZone("CST", 8*3600)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.9999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Time accepts RFC 3339 as well as the offset-less layouts market feeds use.
// It always encodes as RFC 3339.
type Time struct {
	time.Time
}

func NewTime(t time.Time) Time { return Time{Time: t} }

func ParseTime(s string) (Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, marketZone); err == nil {
			return Time{Time: t}, nil
		}
	}
	return Time{}, fmt.Errorf("unrecognized time %q", s)
}

func (t Time) MarshalJSON() ([]byte, error) {
	return t.Time.MarshalJSON()
}

func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" || s == `""` {
		*t = Time{}
		return nil
	}
	parsed, err := ParseTime(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"changePercent"`
	Timestamp     Time            `json:"timestamp"`
	News          []NewsItem      `json:"news,omitempty"`
	Indicators    []Indicator     `json:"indicators,omitempty"`
}

type NewsItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedAt Time   `json:"publishedAt"`
}

type Indicator struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
	Unit  string          `json:"unit,omitempty"`
}

// KLinePoint is one OHLCV bar.
type KLinePoint struct {
	Date   Time            `json:"date"`
	Open   decimal.Decimal `json:"open"`
	Close  decimal.Decimal `json:"close"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Volume decimal.Decimal `json:"volume"`
}

// MinuteLinePoint is one intraday tick. Time is the zero padded clock time
// ("09:31" or "09:31:00") within Date.
type MinuteLinePoint struct {
	Date         Time            `json:"date"`
	Time         string          `json:"time"`
	Price        decimal.Decimal `json:"price"`
	AveragePrice decimal.Decimal `json:"averagePrice"`
	Volume       decimal.Decimal `json:"volume"`
}

type IntradayMessage struct {
	Title       string `json:"title"`
	Source      string `json:"source"`
	PublishedAt Time   `json:"publishedAt"`
	URL         string `json:"url,omitempty"`
}

// AnalysisContext is the shared, read-only bundle every agent prompt is built
// from. Built once per request.
type AnalysisContext struct {
	Quote       Quote
	KLines      []KLinePoint
	MinuteLines []MinuteLinePoint
	Messages    []IntradayMessage
	RequestTime time.Time
}
