package analytics

// Spread builds the spread series p1 - ratio*p2 over two aligned price
// series. The ratio may be static or time-varying; both are read through
// RatioSeries.At so the caller never branches. Inputs of unequal length
// are truncated to the shorter one.
func Spread(p1, p2 Series, ratio RatioSeries) Series {
	n := p1.Len()
	if p2.Len() < n {
		n = p2.Len()
	}
	out := Series{
		Index:  make([]int64, n),
		Values: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		hr := ratio.At(i)
		out.Index[i] = p1.Index[i]
		out.Values[i] = p1.Values[i] - hr.Ratio*p2.Values[i]
	}
	return out
}

// SpreadZScore derives the rolling z-score of a spread, keeping the
// spread's index.
func SpreadZScore(spread Series, window int) Series {
	return Series{
		Index:  spread.Index,
		Values: RollingZScore(spread.Values, window),
	}
}
