package app

import (
	"context"

	"pairlab/internal/analytics"
	"pairlab/internal/backtest"
	pcfg "pairlab/internal/config"
	"pairlab/internal/logger"
	"pairlab/internal/market"
	"pairlab/internal/store/sqlite"
)

const storeTickFallbackLimit = 10000

// bufferFirstProvider serves analytics from the live in-memory buffer
// and falls back to sqlite when a symbol has no buffered ticks yet.
type bufferFirstProvider struct {
	buffer *market.TickBuffer
	store  *sqlite.Store
}

func (p *bufferFirstProvider) Ticks(ctx context.Context, symbol string) ([]market.Tick, error) {
	if p.buffer != nil {
		if snap := p.buffer.Snapshot(symbol); len(snap) > 0 {
			return snap, nil
		}
	}
	return p.store.Ticks(ctx, sqlite.TickQuery{Symbol: symbol, Limit: storeTickFallbackLimit})
}

func runDefaults(a pcfg.AnalyticsConfig, b pcfg.BacktestConfig) backtest.RunConfig {
	return backtest.RunConfig{
		Timeframe:      a.DefaultTimeframe,
		RollingWindow:  a.RollingWindow,
		HedgeMethod:    a.HedgeMethod,
		EntryThreshold: b.EntryThreshold,
		ExitThreshold:  b.ExitThreshold,
	}
}

func analyticsTimeframe(key string) (analytics.Timeframe, error) {
	return analytics.ParseTimeframe(key)
}

const snapshotSource = "resampler"

func (a *App) snapshotCandles(ctx context.Context, tf analytics.Timeframe) {
	ticks := a.buffer.SnapshotAll()
	if len(ticks) == 0 {
		return
	}
	bySymbol, malformed := analytics.Resample(ticks, tf)
	if malformed > 0 {
		logger.Debugf("candle snapshot skipped %d malformed ticks", malformed)
	}
	for symbol, candles := range bySymbol {
		if len(candles) == 0 {
			continue
		}
		if err := a.store.SaveCandles(ctx, tf.Key, snapshotSource, candles); err != nil {
			logger.Errorf("persist %d candles for %s failed: %v", len(candles), symbol, err)
		}
	}
}
