package analytics

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"pairlab/internal/market"
)

// isoLayouts covers the timestamp shapes the feeds actually produce.
// Epoch-millisecond integers are detected before these are tried.
var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseInstant normalizes a tick timestamp into epoch milliseconds.
// Accepts an epoch-ms integer rendered as text, or ISO-8601 text with or
// without zone and fractional seconds (zoneless text is taken as UTC).
func ParseInstant(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if isAllDigits(s) {
		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, false
		}
		return ms, true
	}
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

func isAllDigits(s string) bool {
	if strings.HasPrefix(s, "-") {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

type stampedTick struct {
	ts    int64
	price float64
	size  float64
}

// Resample converts raw ticks into gap-free OHLCV candles per symbol.
// Ticks with non-positive price or an unparseable timestamp are rejected;
// the second return value counts them so the caller can log. Within a
// bucket, ticks sharing a timestamp resolve in input order (first seen
// opens, last seen closes). The output for each symbol covers every
// bucket between its first and last trade, with synthetic flat candles
// (O=H=L=C=previous close, V=0) filling the gaps.
func Resample(ticks []market.Tick, tf Timeframe) (map[string][]market.Candle, int) {
	out := make(map[string][]market.Candle)
	if len(ticks) == 0 {
		return out, 0
	}
	step := tf.durationMillis()
	if step <= 0 {
		return out, 0
	}

	rejected := 0
	grouped := make(map[string][]stampedTick)
	for _, t := range ticks {
		if t.Price <= 0 {
			rejected++
			continue
		}
		ts, ok := ParseInstant(t.Timestamp)
		if !ok {
			rejected++
			continue
		}
		grouped[t.Symbol] = append(grouped[t.Symbol], stampedTick{ts: ts, price: t.Price, size: t.Size})
	}

	for symbol, sts := range grouped {
		sort.SliceStable(sts, func(i, j int) bool { return sts[i].ts < sts[j].ts })
		out[symbol] = bucketSymbol(symbol, sts, step)
	}
	return out, rejected
}

func bucketSymbol(symbol string, ticks []stampedTick, step int64) []market.Candle {
	if len(ticks) == 0 {
		return nil
	}
	firstBucket := alignDown(ticks[0].ts, step)
	lastBucket := alignDown(ticks[len(ticks)-1].ts, step)

	traded := make(map[int64]*market.Candle)
	for _, t := range ticks {
		bucket := alignDown(t.ts, step)
		c, ok := traded[bucket]
		if !ok {
			traded[bucket] = &market.Candle{
				Symbol:   symbol,
				OpenTime: bucket,
				Open:     t.price,
				High:     t.price,
				Low:      t.price,
				Close:    t.price,
				Volume:   t.size,
				Trades:   1,
			}
			continue
		}
		if t.price > c.High {
			c.High = t.price
		}
		if t.price < c.Low {
			c.Low = t.price
		}
		c.Close = t.price
		c.Volume += t.size
		c.Trades++
	}

	out := make([]market.Candle, 0, (lastBucket-firstBucket)/step+1)
	prevClose := 0.0
	for bucket := firstBucket; bucket <= lastBucket; bucket += step {
		if c, ok := traded[bucket]; ok {
			out = append(out, *c)
			prevClose = c.Close
			continue
		}
		// No trade in this bucket: forward-fill a flat candle.
		out = append(out, market.Candle{
			Symbol:   symbol,
			OpenTime: bucket,
			Open:     prevClose,
			High:     prevClose,
			Low:      prevClose,
			Close:    prevClose,
			Volume:   0,
			Trades:   0,
		})
	}
	return out
}

// ResampleCandles re-buckets an existing candle stream onto a coarser (or
// equal) granularity. Resampling a contiguous stream at its own
// granularity returns it unchanged. Gaps in the target calendar are
// filled the same way Resample fills them.
func ResampleCandles(candles []market.Candle, tf Timeframe) []market.Candle {
	if len(candles) == 0 {
		return nil
	}
	step := tf.durationMillis()
	if step <= 0 {
		return nil
	}
	sorted := make([]market.Candle, len(candles))
	copy(sorted, candles)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].OpenTime < sorted[j].OpenTime })

	merged := make(map[int64]*market.Candle)
	for _, in := range sorted {
		bucket := alignDown(in.OpenTime, step)
		c, ok := merged[bucket]
		if !ok {
			dup := in
			dup.OpenTime = bucket
			merged[bucket] = &dup
			continue
		}
		if in.High > c.High {
			c.High = in.High
		}
		if in.Low < c.Low {
			c.Low = in.Low
		}
		c.Close = in.Close
		c.Volume += in.Volume
		c.Trades += in.Trades
	}

	firstBucket := alignDown(sorted[0].OpenTime, step)
	lastBucket := alignDown(sorted[len(sorted)-1].OpenTime, step)
	symbol := sorted[0].Symbol

	out := make([]market.Candle, 0, (lastBucket-firstBucket)/step+1)
	prevClose := 0.0
	for bucket := firstBucket; bucket <= lastBucket; bucket += step {
		if c, ok := merged[bucket]; ok {
			out = append(out, *c)
			prevClose = c.Close
			continue
		}
		out = append(out, market.Candle{
			Symbol:   symbol,
			OpenTime: bucket,
			Open:     prevClose,
			High:     prevClose,
			Low:      prevClose,
			Close:    prevClose,
		})
	}
	return out
}
