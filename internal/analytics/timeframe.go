package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Timeframe is one resampling granularity (bucket key + duration).
type Timeframe struct {
	Key      string
	Duration time.Duration
}

var supportedTimeframes = map[string]Timeframe{
	"1s":    {Key: "1s", Duration: time.Second},
	"5s":    {Key: "5s", Duration: 5 * time.Second},
	"10s":   {Key: "10s", Duration: 10 * time.Second},
	"30s":   {Key: "30s", Duration: 30 * time.Second},
	"1min":  {Key: "1min", Duration: time.Minute},
	"5min":  {Key: "5min", Duration: 5 * time.Minute},
	"15min": {Key: "15min", Duration: 15 * time.Minute},
	"1h":    {Key: "1h", Duration: time.Hour},
}

// ParseTimeframe resolves a granularity key. Keys outside the supported
// set are passed through to time.ParseDuration verbatim, so callers may
// hand over any raw duration string ("45s", "2h") at their own risk.
func ParseTimeframe(input string) (Timeframe, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	if tf, ok := supportedTimeframes[key]; ok {
		return tf, nil
	}
	dur, err := time.ParseDuration(key)
	if err != nil || dur <= 0 {
		return Timeframe{}, fmt.Errorf("unsupported timeframe: %s", input)
	}
	return Timeframe{Key: key, Duration: dur}, nil
}

// SupportedTimeframes returns the enumerated keys, sorted.
func SupportedTimeframes() []string {
	keys := make([]string, 0, len(supportedTimeframes))
	for k := range supportedTimeframes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (tf Timeframe) durationMillis() int64 {
	return tf.Duration.Milliseconds()
}

func alignDown(ts, step int64) int64 {
	if step <= 0 {
		return ts
	}
	rem := ts % step
	if rem < 0 {
		rem += step
	}
	return ts - rem
}

// AlignRange snaps both bounds down to the bucket grid, swapping them if
// needed so start <= end.
func (tf Timeframe) AlignRange(start, end int64) (int64, int64) {
	step := tf.durationMillis()
	if end < start {
		start, end = end, start
	}
	alStart := alignDown(start, step)
	alEnd := alignDown(end, step)
	if alEnd < alStart {
		alEnd = alStart
	}
	return alStart, alEnd
}

// ExpectedBuckets counts the bucket boundaries in [start, end] inclusive.
func (tf Timeframe) ExpectedBuckets(start, end int64) int64 {
	if end < start {
		return 0
	}
	step := tf.durationMillis()
	if step == 0 {
		return 0
	}
	return ((end - start) / step) + 1
}
