// Package ta computes classic technical indicators over daily K-lines.
package ta

import (
	"math"

	"stock-agents/internal/types"
)

func SMA(closes []float64, n int) float64 {
	if len(closes) < n || n <= 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, c := range closes[len(closes)-n:] {
		sum += c
	}
	return sum / float64(n)
}

// RSI is the simple-average relative strength index over the last period
// changes.
func RSI(closes []float64, period int) float64 {
	if len(closes) < period+1 || period <= 0 {
		return math.NaN()
	}
	gain, loss := 0.0, 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := gain / loss
	return 100.0 - (100.0 / (1.0 + rs))
}

func StdDev(vals []float64, n int) float64 {
	if len(vals) < n || n <= 0 {
		return math.NaN()
	}
	m := SMA(vals, n)
	s := 0.0
	for _, v := range vals[len(vals)-n:] {
		d := v - m
		s += d * d
	}
	return math.Sqrt(s / float64(n))
}

func Bollinger(closes []float64, n int, k float64) (mid, up, low float64) {
	mid = SMA(closes, n)
	sd := StdDev(closes, n)
	return mid, mid + k*sd, mid - k*sd
}

// ATR averages the true range of the last period bars. The series must have
// equal lengths.
func ATR(highs, lows, closes []float64, period int) float64 {
	if len(highs) != len(lows) || len(lows) != len(closes) || period <= 0 {
		return math.NaN()
	}
	if len(closes) < period+1 {
		return math.NaN()
	}
	sum := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		tr := math.Max(highs[i]-lows[i], math.Max(
			math.Abs(highs[i]-closes[i-1]),
			math.Abs(lows[i]-closes[i-1]),
		))
		sum += tr
	}
	return sum / float64(period)
}

// Snapshot holds the indicators for the latest bar. A nil field means the
// series was too short.
type Snapshot struct {
	Bars    int      `json:"bars"`
	Close   *float64 `json:"close"`
	MA5     *float64 `json:"ma5"`
	MA10    *float64 `json:"ma10"`
	MA20    *float64 `json:"ma20"`
	RSI14   *float64 `json:"rsi14"`
	BollMid *float64 `json:"bollMid"`
	BollUp  *float64 `json:"bollUp"`
	BollLow *float64 `json:"bollLow"`
	ATR14   *float64 `json:"atr14"`
}

// Summarize computes a Snapshot from bars in ascending date order.
func Summarize(bars []types.KLinePoint) Snapshot {
	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close.InexactFloat64()
		highs[i] = b.High.InexactFloat64()
		lows[i] = b.Low.InexactFloat64()
	}

	s := Snapshot{Bars: len(bars)}
	if len(closes) > 0 {
		s.Close = finite(closes[len(closes)-1])
	}
	s.MA5 = finite(SMA(closes, 5))
	s.MA10 = finite(SMA(closes, 10))
	s.MA20 = finite(SMA(closes, 20))
	s.RSI14 = finite(RSI(closes, 14))
	mid, up, low := Bollinger(closes, 20, 2)
	s.BollMid, s.BollUp, s.BollLow = finite(mid), finite(up), finite(low)
	s.ATR14 = finite(ATR(highs, lows, closes, 14))
	return s
}

func finite(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	r := math.Round(f*1e4) / 1e4
	return &r
}
