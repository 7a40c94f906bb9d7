package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pairlab/internal/market"
)

func TestParseInstant(t *testing.T) {
	wantMS := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).UnixMilli()

	cases := []struct {
		name string
		raw  string
		want int64
		ok   bool
	}{
		{"epoch millis", "1700000000000", 1700000000000, true},
		{"rfc3339", "2024-01-02T03:04:05Z", wantMS, true},
		{"zoneless iso", "2024-01-02T03:04:05", wantMS, true},
		{"space separated", "2024-01-02 03:04:05", wantMS, true},
		{"fractional seconds", "2024-01-02T03:04:05.250Z", wantMS + 250, true},
		{"empty", "", 0, false},
		{"garbage", "not-a-time", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseInstant(tc.raw)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}

func mustTimeframe(t *testing.T, key string) Timeframe {
	t.Helper()
	tf, err := ParseTimeframe(key)
	require.NoError(t, err)
	return tf
}

func TestResampleFillsGaps(t *testing.T) {
	tf := mustTimeframe(t, "1s")
	ticks := []market.Tick{
		{Symbol: "btcusdt", Timestamp: "1000", Price: 100, Size: 1},
		{Symbol: "btcusdt", Timestamp: "1500", Price: 102, Size: 2},
		{Symbol: "btcusdt", Timestamp: "3500", Price: 101, Size: 1},
	}
	bySymbol, rejected := Resample(ticks, tf)
	require.Zero(t, rejected)
	candles := bySymbol["btcusdt"]
	require.Len(t, candles, 3)

	first := candles[0]
	assert.Equal(t, int64(1000), first.OpenTime)
	assert.Equal(t, 100.0, first.Open)
	assert.Equal(t, 102.0, first.High)
	assert.Equal(t, 100.0, first.Low)
	assert.Equal(t, 102.0, first.Close)
	assert.Equal(t, 3.0, first.Volume)
	assert.Equal(t, int64(2), first.Trades)

	gap := candles[1]
	assert.Equal(t, int64(2000), gap.OpenTime)
	assert.Equal(t, 102.0, gap.Open)
	assert.Equal(t, 102.0, gap.Close)
	assert.Zero(t, gap.Volume)
	assert.Zero(t, gap.Trades)
	assert.True(t, gap.Synthetic())

	last := candles[2]
	assert.Equal(t, int64(3000), last.OpenTime)
	assert.Equal(t, 101.0, last.Close)
	assert.False(t, last.Synthetic())
}

func TestResampleRejectsMalformedTicks(t *testing.T) {
	tf := mustTimeframe(t, "1s")
	ticks := []market.Tick{
		{Symbol: "btcusdt", Timestamp: "1000", Price: 100, Size: 1},
		{Symbol: "btcusdt", Timestamp: "broken", Price: 100, Size: 1},
		{Symbol: "btcusdt", Timestamp: "2000", Price: -5, Size: 1},
		{Symbol: "btcusdt", Timestamp: "2100", Price: 0, Size: 1},
	}
	bySymbol, rejected := Resample(ticks, tf)
	assert.Equal(t, 3, rejected)
	require.Len(t, bySymbol["btcusdt"], 1)
}

func TestResampleTieBreaksInInputOrder(t *testing.T) {
	tf := mustTimeframe(t, "1s")
	ticks := []market.Tick{
		{Symbol: "ethusdt", Timestamp: "1000", Price: 10, Size: 1},
		{Symbol: "ethusdt", Timestamp: "1000", Price: 12, Size: 1},
		{Symbol: "ethusdt", Timestamp: "1000", Price: 11, Size: 1},
	}
	bySymbol, _ := Resample(ticks, tf)
	candles := bySymbol["ethusdt"]
	require.Len(t, candles, 1)
	assert.Equal(t, 10.0, candles[0].Open)
	assert.Equal(t, 11.0, candles[0].Close)
	assert.Equal(t, 12.0, candles[0].High)
}

func TestResampleSplitsSymbols(t *testing.T) {
	tf := mustTimeframe(t, "1s")
	ticks := []market.Tick{
		{Symbol: "btcusdt", Timestamp: "1000", Price: 100, Size: 1},
		{Symbol: "ethusdt", Timestamp: "1000", Price: 10, Size: 1},
	}
	bySymbol, _ := Resample(ticks, tf)
	assert.Len(t, bySymbol, 2)
	assert.Len(t, bySymbol["btcusdt"], 1)
	assert.Len(t, bySymbol["ethusdt"], 1)
}

func TestResampleCandlesIdempotent(t *testing.T) {
	tf := mustTimeframe(t, "1s")
	ticks := []market.Tick{
		{Symbol: "btcusdt", Timestamp: "1000", Price: 100, Size: 1},
		{Symbol: "btcusdt", Timestamp: "1500", Price: 101, Size: 1},
		{Symbol: "btcusdt", Timestamp: "4200", Price: 99, Size: 2},
	}
	bySymbol, _ := Resample(ticks, tf)
	candles := bySymbol["btcusdt"]
	again := ResampleCandles(candles, tf)
	assert.Equal(t, candles, again)
}

func TestResampleCandlesCoarsens(t *testing.T) {
	fine := mustTimeframe(t, "1s")
	coarse := mustTimeframe(t, "5s")
	ticks := []market.Tick{
		{Symbol: "btcusdt", Timestamp: "0", Price: 100, Size: 1},
		{Symbol: "btcusdt", Timestamp: "1000", Price: 105, Size: 1},
		{Symbol: "btcusdt", Timestamp: "4000", Price: 95, Size: 1},
		{Symbol: "btcusdt", Timestamp: "6000", Price: 98, Size: 1},
	}
	bySymbol, _ := Resample(ticks, fine)
	merged := ResampleCandles(bySymbol["btcusdt"], coarse)
	require.Len(t, merged, 2)
	assert.Equal(t, int64(0), merged[0].OpenTime)
	assert.Equal(t, 100.0, merged[0].Open)
	assert.Equal(t, 105.0, merged[0].High)
	assert.Equal(t, 95.0, merged[0].Low)
	assert.Equal(t, 95.0, merged[0].Close)
	assert.Equal(t, int64(5000), merged[1].OpenTime)
}
