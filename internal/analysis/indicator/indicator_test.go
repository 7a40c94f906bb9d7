package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairlab/internal/market"
)

func trendCandles(n int) []market.Candle {
	out := make([]market.Candle, 0, n)
	price := 100.0
	for i := 0; i < n; i++ {
		// gentle uptrend with a small oscillation so ATR is nonzero
		price += 0.5
		wobble := 0.3 * math.Sin(float64(i))
		close := price + wobble
		out = append(out, market.Candle{
			Symbol:   "btcusdt",
			OpenTime: int64(i) * 1000,
			Open:     close - 0.1,
			High:     close + 0.4,
			Low:      close - 0.4,
			Close:    close,
			Volume:   1,
			Trades:   1,
		})
	}
	return out
}

func TestComputeReportShape(t *testing.T) {
	rep, err := Compute(trendCandles(120), Settings{Symbol: "btcusdt", Timeframe: "1s"})
	require.NoError(t, err)

	assert.Equal(t, "btcusdt", rep.Symbol)
	assert.Equal(t, "1s", rep.Timeframe)
	assert.Equal(t, 120, rep.Count)

	for _, key := range []string{"ema_fast", "ema_slow", "rsi", "macd", "atr"} {
		v, ok := rep.Values[key]
		require.True(t, ok, key)
		assert.False(t, math.IsNaN(v.Latest), key)
		assert.NotEmpty(t, v.Series, key)
	}

	// a steady uptrend keeps price above both EMAs and RSI elevated
	assert.Equal(t, "above", rep.Values["ema_fast"].State)
	assert.Equal(t, "above", rep.Values["ema_slow"].State)
	assert.Greater(t, rep.Values["rsi"].Latest, 50.0)
	assert.Equal(t, "bullish", rep.Values["macd"].State)
	assert.Greater(t, rep.Values["atr"].Latest, 0.0)
}

func TestComputeEmptyCandles(t *testing.T) {
	_, err := Compute(nil, Settings{Symbol: "btcusdt"})
	assert.Error(t, err)
}

func TestSanitizeAndTrim(t *testing.T) {
	assert.Equal(t, []float64{1, 2}, sanitize([]float64{1, math.NaN(), math.Inf(1), 2}))
	assert.Equal(t, []float64{3, 0, 4}, trimLeadingZeros([]float64{0, 0, 3, 0, 4}))
	assert.Equal(t, 4.0, lastValid([]float64{1, 4, math.NaN()}))
	assert.Zero(t, lastValid(nil))
	assert.Equal(t, "unknown", relativeState(10, 0))
	assert.Equal(t, "below", relativeState(5, 10))
}
