package analytics

import (
	"math"
)

// tradingDaysPerYear is the annualization convention used for volatility
// and Sharpe figures.
const tradingDaysPerYear = 252

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// sampleStd is the n-1 denominator standard deviation, matching the
// estimators the rest of the pipeline is calibrated against.
func sampleStd(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	m := mean(xs)
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(n-1))
}

// RollingZScore computes the trailing z-score of a series. The first
// value appears once a full window exists, at index window-1; earlier
// indices report 0 (insufficient history is not an error state), and a
// zero-variance window also reports 0 rather than propagating NaN. That
// collapses "no dispersion" into "at the mean"; see DESIGN.md before
// changing it.
func RollingZScore(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	for i := window - 1; i < len(values); i++ {
		win := values[i-window+1 : i+1]
		std := sampleStd(win)
		if std == 0 {
			continue
		}
		out[i] = (values[i] - mean(win)) / std
	}
	return out
}

// RollingCorrelation computes trailing Pearson correlation over two
// aligned series. Indices with insufficient history or a degenerate
// window report 0.
func RollingCorrelation(a, b []float64, window int) []float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float64, n)
	if window < 2 || n < window {
		return out
	}
	for i := window - 1; i < n; i++ {
		out[i] = pearson(a[i-window+1:i+1], b[i-window+1:i+1])
	}
	return out
}

func pearson(xs, ys []float64) float64 {
	n := len(xs)
	if n < 2 || len(ys) != n {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		dy := ys[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0
	}
	return cov / math.Sqrt(vx*vy)
}

// Returns computes percentage returns with the first element pinned to 0.
// A zero previous price also yields 0 instead of an infinity.
func Returns(prices []float64) []float64 {
	out := make([]float64, len(prices))
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			continue
		}
		out[i] = prices[i]/prices[i-1] - 1
	}
	return out
}

// RollingVolatility is the trailing sample std of returns, annualized by
// the 252 trading-day convention. Indices with insufficient history
// report 0.
func RollingVolatility(returns []float64, window int) []float64 {
	out := make([]float64, len(returns))
	if window < 2 || len(returns) < window {
		return out
	}
	factor := math.Sqrt(tradingDaysPerYear)
	for i := window - 1; i < len(returns); i++ {
		out[i] = sampleStd(returns[i-window+1:i+1]) * factor
	}
	return out
}

// SharpeRatio annualizes mean excess return over its own dispersion.
// Fewer than 2 observations or a flat excess series report exactly 0.
func SharpeRatio(returns []float64, riskFreeRate float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	dailyRF := riskFreeRate / tradingDaysPerYear
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - dailyRF
	}
	std := sampleStd(excess)
	if std == 0 {
		return 0
	}
	return math.Sqrt(tradingDaysPerYear) * mean(excess) / std
}
