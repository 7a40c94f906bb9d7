package analytics

import (
	"pairlab/internal/market"
)

// Series is an ordered mapping from epoch-ms instants to values. Index
// and Values always have the same length and Index is strictly
// increasing.
type Series struct {
	Index  []int64
	Values []float64
}

func (s Series) Len() int { return len(s.Values) }

// Last returns the most recent value, or (0, false) when empty.
func (s Series) Last() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// CloseSeries extracts the close price series from a candle stream.
func CloseSeries(candles []market.Candle) Series {
	s := Series{
		Index:  make([]int64, 0, len(candles)),
		Values: make([]float64, 0, len(candles)),
	}
	for _, c := range candles {
		s.Index = append(s.Index, c.OpenTime)
		s.Values = append(s.Values, c.Close)
	}
	return s
}

// Align intersects two series on their shared instants, preserving order.
// Both inputs must already be sorted by index, which holds for anything
// the resampler produced.
func Align(a, b Series) (Series, Series) {
	outA := Series{}
	outB := Series{}
	i, j := 0, 0
	for i < a.Len() && j < b.Len() {
		switch {
		case a.Index[i] < b.Index[j]:
			i++
		case a.Index[i] > b.Index[j]:
			j++
		default:
			outA.Index = append(outA.Index, a.Index[i])
			outA.Values = append(outA.Values, a.Values[i])
			outB.Index = append(outB.Index, b.Index[j])
			outB.Values = append(outB.Values, b.Values[j])
			i++
			j++
		}
	}
	return outA, outB
}
