package analytics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollingZScoreWarmup(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	z := RollingZScore(values, 2)
	require.Len(t, z, 5)
	// first full window ends at index window-1
	assert.Zero(t, z[0])
	// window [1,2]: mean 1.5, sample std sqrt(0.5)
	expected := 0.5 / math.Sqrt(0.5)
	for i := 1; i < 5; i++ {
		assert.InDelta(t, expected, z[i], 1e-9)
	}
}

func TestRollingZScoreExactWindowLength(t *testing.T) {
	// a series of exactly window points gets a value at its last index
	z := RollingZScore([]float64{1, 2, 3}, 3)
	require.Len(t, z, 3)
	assert.Zero(t, z[0])
	assert.Zero(t, z[1])
	assert.InDelta(t, 1.0, z[2], 1e-9)
}

func TestRollingZScoreShortSeries(t *testing.T) {
	z := RollingZScore([]float64{1, 2}, 5)
	assert.Equal(t, []float64{0, 0}, z)
}

func TestRollingZScoreZeroVariance(t *testing.T) {
	values := []float64{7, 7, 7, 7, 7, 7}
	for _, v := range RollingZScore(values, 3) {
		assert.Zero(t, v)
	}
}

func TestRollingCorrelation(t *testing.T) {
	a := []float64{1, 2, 3, 4, 5, 6}
	b := []float64{2, 4, 6, 8, 10, 12}
	corr := RollingCorrelation(a, b, 3)
	require.Len(t, corr, 6)
	assert.Zero(t, corr[0])
	assert.Zero(t, corr[1])
	for i := 2; i < 6; i++ {
		assert.InDelta(t, 1.0, corr[i], 1e-9)
	}

	inverse := []float64{12, 10, 8, 6, 4, 2}
	anti := RollingCorrelation(a, inverse, 3)
	for i := 2; i < 6; i++ {
		assert.InDelta(t, -1.0, anti[i], 1e-9)
	}
}

func TestRollingCorrelationDegenerate(t *testing.T) {
	a := []float64{1, 2, 3, 4}
	flat := []float64{5, 5, 5, 5}
	for _, v := range RollingCorrelation(a, flat, 3) {
		assert.Zero(t, v)
	}
}

func TestReturns(t *testing.T) {
	r := Returns([]float64{100, 110, 99})
	require.Len(t, r, 3)
	assert.Zero(t, r[0])
	assert.InDelta(t, 0.10, r[1], 1e-9)
	assert.InDelta(t, -0.10, r[2], 1e-9)
}

func TestReturnsZeroPrice(t *testing.T) {
	r := Returns([]float64{0, 10, 20})
	assert.Zero(t, r[1])
	assert.InDelta(t, 1.0, r[2], 1e-9)
}

func TestRollingVolatility(t *testing.T) {
	returns := []float64{0.01, -0.01, 0.01, -0.01, 0.01}
	vol := RollingVolatility(returns, 3)
	require.Len(t, vol, 5)
	assert.Zero(t, vol[0])
	assert.Zero(t, vol[1])
	for i := 2; i < 5; i++ {
		assert.Greater(t, vol[i], 0.0)
	}
	// flat returns have zero volatility
	flat := RollingVolatility([]float64{0.01, 0.01, 0.01, 0.01}, 3)
	assert.Zero(t, flat[3])
}

func TestSharpeRatio(t *testing.T) {
	assert.Zero(t, SharpeRatio(nil, 0))
	assert.Zero(t, SharpeRatio([]float64{0.01}, 0))
	// zero dispersion reports 0, not infinity
	assert.Zero(t, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0))

	up := SharpeRatio([]float64{0.01, -0.005, 0.02, 0.0, 0.01}, 0)
	assert.Greater(t, up, 0.0)
	down := SharpeRatio([]float64{-0.01, 0.005, -0.02, 0.0, -0.01}, 0)
	assert.Less(t, down, 0.0)
}
