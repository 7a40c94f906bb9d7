// Package app wires the components together and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pairlab/internal/alert"
	"pairlab/internal/backtest"
	"pairlab/internal/collector"
	pcfg "pairlab/internal/config"
	"pairlab/internal/gateway/binance"
	"pairlab/internal/logger"
	"pairlab/internal/market"
	"pairlab/internal/scheduler"
	"pairlab/internal/store/sqlite"
	pairhttp "pairlab/internal/transport/http"
)

type App struct {
	cfg *pcfg.Config

	store     *sqlite.Store
	buffer    *market.TickBuffer
	source    market.Source
	collector *collector.Collector
	backtests *backtest.Service
	alerts    *alert.Registry
	server    *pairhttp.Server
}

func NewApp(cfg *pcfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	store, err := sqlite.NewStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	buffer := market.NewTickBuffer(cfg.Feed.BufferSize)
	source := binance.New(binance.Config{
		RESTBaseURL:  cfg.Feed.RESTBaseURL,
		ProxyEnabled: cfg.Feed.ProxyEnabled,
		RESTProxyURL: cfg.Feed.RESTProxyURL,
		WSProxyURL:   cfg.Feed.WSProxyURL,
	})
	coll := collector.New(store, buffer, collector.Options{
		BatchSize:     cfg.Feed.BatchSize,
		FlushInterval: time.Duration(cfg.Feed.BatchIntervalSeconds) * time.Second,
	})

	defaults := runDefaults(cfg.Analytics, cfg.Backtest)
	backtests := backtest.NewService(
		&bufferFirstProvider{buffer: buffer, store: store},
		backtest.NewRunStore(store.DB()),
		defaults,
	)
	alerts := alert.NewRegistry()

	server, err := pairhttp.NewServer(pairhttp.RouterConfig{
		Addr:             cfg.Server.Addr,
		Store:            store,
		Buffer:           buffer,
		Backtests:        backtests,
		Alerts:           alerts,
		Collector:        coll,
		Source:           source,
		DefaultTimeframe: cfg.Analytics.DefaultTimeframe,
		DefaultWindow:    cfg.Analytics.RollingWindow,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("build http server: %w", err)
	}

	return &App{
		cfg:       cfg,
		store:     store,
		buffer:    buffer,
		source:    source,
		collector: coll,
		backtests: backtests,
		alerts:    alerts,
		server:    server,
	}, nil
}

// WatchTuning subscribes the backtest defaults to config hot reloads.
func (a *App) WatchTuning(w *pcfg.Watcher) {
	if a == nil || w == nil {
		return
	}
	w.Subscribe(func(snap pcfg.TuningSnapshot) {
		a.backtests.SetDefaults(runDefaults(snap.Analytics, snap.Backtest))
		logger.Infof("tuning reloaded: timeframe=%s window=%d method=%s entry=%.2f exit=%.2f",
			snap.Analytics.DefaultTimeframe, snap.Analytics.RollingWindow,
			snap.Analytics.HedgeMethod, snap.Backtest.EntryThreshold, snap.Backtest.ExitThreshold)
	})
}

// Run starts the feed, the history preheat, the collector, the
// maintenance schedulers and the HTTP server, and blocks until ctx is
// cancelled or a component fails.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.store.Close()
	defer a.source.Close()

	events, err := a.source.SubscribeTrades(ctx, a.cfg.Feed.Symbols, market.SubscribeOptions{
		Buffer: a.cfg.Feed.BufferSize,
		OnConnect: func() {
			logger.Infof("feed connected: %v", a.cfg.Feed.Symbols)
		},
		OnDisconnect: func(err error) {
			if err != nil {
				logger.Warnf("feed disconnected: %v", err)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("subscribe trades: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		a.preheatHistory(ctx)
		return nil
	})

	group.Go(func() error {
		if err := a.server.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		err := a.collector.Run(ctx, events)
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("collector error: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		a.runCleanup(ctx)
		return nil
	})

	group.Go(func() error {
		a.runSnapshots(ctx)
		return nil
	})

	logger.Infof("pairlab up: addr=%s db=%s symbols=%v",
		a.server.Addr(), a.cfg.Database.Path, a.cfg.Feed.Symbols)

	err = group.Wait()
	a.backtests.Wait()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}

// runCleanup enforces the tick retention window.
func (a *App) runCleanup(ctx context.Context) {
	interval := time.Duration(a.cfg.Database.CleanupIntervalMinutes) * time.Minute
	retention := time.Duration(a.cfg.Database.RetentionHours) * time.Hour
	if interval <= 0 || retention <= 0 {
		return
	}
	sched := scheduler.NewIntervalScheduler(ctx, "cleanup", interval)
	sched.Start(func() {
		deleted, err := a.store.CleanupOlderThan(ctx, retention)
		if err != nil {
			logger.Errorf("cleanup failed: %v", err)
			return
		}
		if deleted > 0 {
			logger.Infof("cleanup removed %d ticks older than %s", deleted, retention)
		}
	})
}

// runSnapshots persists resampled candles so history survives restarts
// and buffer eviction.
func (a *App) runSnapshots(ctx context.Context) {
	tf, err := analyticsTimeframe(a.cfg.Analytics.DefaultTimeframe)
	if err != nil {
		logger.Warnf("snapshot scheduler disabled: %v", err)
		return
	}
	interval := 10 * tf.Duration
	if interval < 10*time.Second {
		interval = 10 * time.Second
	}
	sched := scheduler.NewIntervalScheduler(ctx, "candle-snapshot", interval)
	sched.Start(func() {
		a.snapshotCandles(ctx, tf)
	})
}
