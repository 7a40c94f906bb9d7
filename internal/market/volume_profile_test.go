package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVolumeProfileBuckets(t *testing.T) {
	ticks := []Tick{
		{Symbol: "btcusdt", Price: 100, Size: 1},
		{Symbol: "btcusdt", Price: 101, Size: 2},
		{Symbol: "btcusdt", Price: 109, Size: 3},
		{Symbol: "btcusdt", Price: 110, Size: 4},
	}
	profile := VolumeProfile(ticks, 2)
	require.Len(t, profile, 2)

	low := profile[0]
	assert.Equal(t, 0, low.Bin)
	assert.InDelta(t, 3.0, low.Volume, 1e-9)
	assert.InDelta(t, 100.5, low.PriceLevel, 1e-9)

	high := profile[1]
	assert.Equal(t, 1, high.Bin)
	assert.InDelta(t, 7.0, high.Volume, 1e-9)
	assert.InDelta(t, 109.5, high.PriceLevel, 1e-9)
}

func TestVolumeProfileSkipsBadPrices(t *testing.T) {
	ticks := []Tick{
		{Price: -1, Size: 10},
		{Price: 0, Size: 10},
		{Price: 100, Size: 1},
		{Price: 110, Size: 1},
	}
	profile := VolumeProfile(ticks, 2)
	require.Len(t, profile, 2)
	total := profile[0].Volume + profile[1].Volume
	assert.InDelta(t, 2.0, total, 1e-9)
}

func TestVolumeProfileDegenerate(t *testing.T) {
	assert.Nil(t, VolumeProfile(nil, 10))
	assert.Nil(t, VolumeProfile([]Tick{{Price: 100, Size: 1}}, 10))
	flat := []Tick{{Price: 100, Size: 1}, {Price: 100, Size: 2}}
	assert.Nil(t, VolumeProfile(flat, 10))
}

func TestVolumeProfileSkipsEmptyBins(t *testing.T) {
	ticks := []Tick{
		{Price: 100, Size: 1},
		{Price: 200, Size: 1},
	}
	profile := VolumeProfile(ticks, 10)
	require.Len(t, profile, 2)
	assert.Equal(t, 0, profile[0].Bin)
	assert.Equal(t, 9, profile[1].Bin)
}
