package app

import (
	"context"
	"time"

	"pairlab/internal/analytics"
	"pairlab/internal/logger"
	"pairlab/internal/market"
)

const (
	historySource   = "history"
	historyInterval = "1m"
	historyLimit    = 1000
)

// preheatHistory seeds the candle store from exchange klines so pair
// analytics has history to work with before the live feed fills the
// buffer. A symbol that fails to fetch is skipped, not fatal.
func (a *App) preheatHistory(ctx context.Context) {
	tf, err := analyticsTimeframe(a.cfg.Analytics.DefaultTimeframe)
	if err != nil {
		logger.Warnf("history preheat disabled: %v", err)
		return
	}
	for _, symbol := range a.cfg.Feed.Symbols {
		candles, err := a.source.FetchHistory(ctx, symbol, historyInterval, historyLimit)
		if err != nil {
			logger.Warnf("history preheat for %s failed: %v", symbol, err)
			continue
		}
		saved, err := a.saveHistory(ctx, tf, candles)
		if err != nil {
			logger.Errorf("persist history for %s failed: %v", symbol, err)
			continue
		}
		if saved > 0 {
			logger.Infof("preheated %d candles for %s", saved, symbol)
		}
	}
}

// saveHistory persists fetched klines under the analytics timeframe,
// re-bucketing when it is coarser than the exchange interval. Timeframes
// finer than a minute cannot be derived from 1m klines, so those keep
// the exchange granularity. Gap buckets carry no observed trades and
// are regenerated on resample, so they stay out of the store.
func (a *App) saveHistory(ctx context.Context, tf analytics.Timeframe, candles []market.Candle) (int, error) {
	key := "1min"
	if tf.Duration >= time.Minute {
		candles = analytics.ResampleCandles(candles, tf)
		key = tf.Key
	}
	traded := make([]market.Candle, 0, len(candles))
	for _, c := range candles {
		if c.Synthetic() {
			continue
		}
		traded = append(traded, c)
	}
	if len(traded) == 0 {
		return 0, nil
	}
	if err := a.store.SaveCandles(ctx, key, historySource, traded); err != nil {
		return 0, err
	}
	return len(traded), nil
}
