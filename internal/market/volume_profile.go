package market

import (
	"github.com/shopspring/decimal"
)

// VolumeBin is one price level of a volume profile.
type VolumeBin struct {
	Bin        int     `json:"bin"`
	PriceLevel float64 `json:"price_level"`
	Volume     float64 `json:"volume"`
}

// VolumeProfile buckets traded volume into price bins for one symbol's
// ticks. Volume is accumulated with decimals so long runs of small sizes
// do not drift. Ticks with non-positive price are skipped. Returns nil
// when there is nothing to profile or the price range is degenerate.
func VolumeProfile(ticks []Tick, bins int) []VolumeBin {
	if bins <= 0 {
		bins = 20
	}
	minPrice, maxPrice := 0.0, 0.0
	seen := false
	for _, t := range ticks {
		if t.Price <= 0 {
			continue
		}
		if !seen {
			minPrice, maxPrice = t.Price, t.Price
			seen = true
			continue
		}
		if t.Price < minPrice {
			minPrice = t.Price
		}
		if t.Price > maxPrice {
			maxPrice = t.Price
		}
	}
	if !seen || maxPrice <= minPrice {
		return nil
	}
	binSize := (maxPrice - minPrice) / float64(bins)

	volumes := make([]decimal.Decimal, bins)
	priceSums := make([]decimal.Decimal, bins)
	counts := make([]int64, bins)
	for _, t := range ticks {
		if t.Price <= 0 {
			continue
		}
		idx := int((t.Price - minPrice) / binSize)
		if idx < 0 {
			idx = 0
		}
		if idx >= bins {
			idx = bins - 1
		}
		volumes[idx] = volumes[idx].Add(decimal.NewFromFloat(t.Size))
		priceSums[idx] = priceSums[idx].Add(decimal.NewFromFloat(t.Price))
		counts[idx]++
	}

	out := make([]VolumeBin, 0, bins)
	for i := 0; i < bins; i++ {
		if counts[i] == 0 {
			continue
		}
		level := priceSums[i].Div(decimal.NewFromInt(counts[i]))
		out = append(out, VolumeBin{
			Bin:        i,
			PriceLevel: level.InexactFloat64(),
			Volume:     volumes[i].InexactFloat64(),
		})
	}
	return out
}
