package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lcgNoise produces deterministic pseudo-noise in [-1, 1).
func lcgNoise(seed uint64, n int) []float64 {
	out := make([]float64, n)
	state := seed
	for i := 0; i < n; i++ {
		state = state*6364136223846793005 + 1442695040888963407
		out[i] = float64(state>>11)/float64(1<<53)*2 - 1
	}
	return out
}

func TestADFTooFewObservations(t *testing.T) {
	assert.Nil(t, ADFTest([]float64{1, 2, 3}))
	assert.Nil(t, ADFTest(make([]float64, 9)))
}

func TestADFDropsNonFinite(t *testing.T) {
	series := lcgNoise(42, 30)
	series = append(series, math.NaN(), math.Inf(1))
	res := ADFTest(series)
	require.NotNil(t, res)
	assert.LessOrEqual(t, res.NObs, 30)
}

func TestADFStationarySeries(t *testing.T) {
	noise := lcgNoise(7, 200)
	series := make([]float64, 200)
	for i := 1; i < 200; i++ {
		series[i] = 0.1*series[i-1] + noise[i]
	}
	res := ADFTest(series)
	require.NotNil(t, res)
	assert.Less(t, res.Statistic, -3.5)
	assert.Less(t, res.PValue, 0.05)
	assert.True(t, res.IsStationary)
}

func TestADFExplosiveSeries(t *testing.T) {
	noise := lcgNoise(11, 120)
	series := make([]float64, 120)
	for i := 0; i < 120; i++ {
		series[i] = math.Pow(1.05, float64(i)) + noise[i]
	}
	res := ADFTest(series)
	require.NotNil(t, res)
	assert.Greater(t, res.Statistic, 0.0)
	assert.Greater(t, res.PValue, 0.5)
	assert.False(t, res.IsStationary)
}

func TestADFCriticalValues(t *testing.T) {
	noise := lcgNoise(3, 100)
	res := ADFTest(noise)
	require.NotNil(t, res)

	cv1, ok := res.CriticalValues["1%"]
	require.True(t, ok)
	cv5, ok := res.CriticalValues["5%"]
	require.True(t, ok)
	cv10, ok := res.CriticalValues["10%"]
	require.True(t, ok)

	assert.Less(t, cv1, cv5)
	assert.Less(t, cv5, cv10)
	assert.InDelta(t, -2.89, cv5, 0.1)

	// the 5% verdict agrees with the 5% critical value
	assert.Equal(t, res.Statistic < cv5, res.PValue < 0.05)
	assert.GreaterOrEqual(t, res.PValue, 1e-4)
	assert.LessOrEqual(t, res.PValue, 0.99)
}
