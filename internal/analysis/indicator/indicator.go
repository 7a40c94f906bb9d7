// Package indicator derives per-leg technical context for a pair from
// resampled candles.
package indicator

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"

	"pairlab/internal/market"
)

type Settings struct {
	Symbol    string
	Timeframe string
	EMAFast   int
	EMASlow   int
	RSIPeriod int
	ATRPeriod int
}

func (s Settings) withDefaults() Settings {
	if s.EMAFast <= 0 {
		s.EMAFast = 21
	}
	if s.EMASlow <= 0 {
		s.EMASlow = 50
	}
	if s.RSIPeriod <= 0 {
		s.RSIPeriod = 14
	}
	if s.ATRPeriod <= 0 {
		s.ATRPeriod = 14
	}
	return s
}

// Value holds one indicator's latest reading plus its series.
type Value struct {
	Latest float64   `json:"latest"`
	Series []float64 `json:"series,omitempty"`
	State  string    `json:"state,omitempty"`
	Note   string    `json:"note,omitempty"`
}

// Report bundles the indicator outputs of one symbol at one timeframe.
type Report struct {
	Symbol    string           `json:"symbol"`
	Timeframe string           `json:"timeframe"`
	Count     int              `json:"count"`
	Values    map[string]Value `json:"values"`
}

// Compute evaluates the standard indicator set over the candles.
func Compute(candles []market.Candle, cfg Settings) (Report, error) {
	cfg = cfg.withDefaults()
	rep := Report{
		Symbol:    cfg.Symbol,
		Timeframe: cfg.Timeframe,
		Count:     len(candles),
		Values:    make(map[string]Value),
	}
	if len(candles) == 0 {
		return rep, fmt.Errorf("no candles")
	}
	closes := make([]float64, len(candles))
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
		highs[i] = c.High
		lows[i] = c.Low
	}
	lastClose := closes[len(closes)-1]

	emaFast := trimLeadingZeros(sanitize(talib.Ema(closes, cfg.EMAFast)))
	emaSlow := trimLeadingZeros(sanitize(talib.Ema(closes, cfg.EMASlow)))
	rep.Values["ema_fast"] = Value{
		Latest: lastValid(emaFast),
		Series: emaFast,
		State:  relativeState(lastClose, lastValid(emaFast)),
		Note:   fmt.Sprintf("EMA%d vs price", cfg.EMAFast),
	}
	rep.Values["ema_slow"] = Value{
		Latest: lastValid(emaSlow),
		Series: emaSlow,
		State:  relativeState(lastClose, lastValid(emaSlow)),
		Note:   fmt.Sprintf("EMA%d vs price", cfg.EMASlow),
	}

	rsi := sanitize(talib.Rsi(closes, cfg.RSIPeriod))
	rsiVal := lastValid(rsi)
	rsiState := "neutral"
	switch {
	case rsiVal >= 70:
		rsiState = "overbought"
	case rsiVal <= 30 && rsiVal > 0:
		rsiState = "oversold"
	}
	rep.Values["rsi"] = Value{
		Latest: rsiVal,
		Series: rsi,
		State:  rsiState,
		Note:   fmt.Sprintf("period=%d", cfg.RSIPeriod),
	}

	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	histSeries := sanitize(hist)
	macdState := "flat"
	switch {
	case lastValid(histSeries) > 0:
		macdState = "bullish"
	case lastValid(histSeries) < 0:
		macdState = "bearish"
	}
	rep.Values["macd"] = Value{
		Latest: lastValid(sanitize(macd)),
		Series: histSeries,
		State:  macdState,
		Note:   fmt.Sprintf("signal=%.4f", lastValid(sanitize(signal))),
	}

	atr := sanitize(talib.Atr(highs, lows, closes, cfg.ATRPeriod))
	rep.Values["atr"] = Value{
		Latest: lastValid(atr),
		Series: atr,
		State:  "volatility",
		Note:   fmt.Sprintf("period=%d", cfg.ATRPeriod),
	}

	return rep, nil
}

func sanitize(src []float64) []float64 {
	out := make([]float64, 0, len(src))
	for _, v := range src {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// trimLeadingZeros drops TALib's zero-seeded EMA warmup values.
func trimLeadingZeros(series []float64) []float64 {
	start := 0
	for start < len(series) && math.Abs(series[start]) <= 1e-9 {
		start++
	}
	return series[start:]
}

func lastValid(series []float64) float64 {
	for i := len(series) - 1; i >= 0; i-- {
		if !math.IsNaN(series[i]) && !math.IsInf(series[i], 0) {
			return series[i]
		}
	}
	return 0
}

func relativeState(price, ref float64) string {
	if ref == 0 {
		return "unknown"
	}
	if price >= ref {
		return "above"
	}
	return "below"
}
