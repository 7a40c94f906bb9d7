package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"pairlab/internal/logger"
)

// TuningSnapshot is the hot-reloadable slice of the config: analytics
// and backtest thresholds that operators adjust while the process runs.
type TuningSnapshot struct {
	Analytics AnalyticsConfig
	Backtest  BacktestConfig
}

// ChangeListener is called with a fresh snapshot after each successful
// reload.
type ChangeListener func(TuningSnapshot)

// Watcher keeps a TuningSnapshot in sync with the config file on disk.
type Watcher struct {
	v *viper.Viper

	mu        sync.RWMutex
	snapshot  TuningSnapshot
	listeners []ChangeListener
}

// NewWatcher reads the config file and starts watching it for changes.
// Reload failures keep the previous snapshot and only log.
func NewWatcher(path string) (*Watcher, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config watcher requires a path")
	}
	v := newViper(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}
	w := &Watcher{v: v}
	if err := w.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := w.reload(); err != nil {
			logger.Errorf("config reload failed (%s): %v", evt.Name, err)
			return
		}
		w.notify()
	})
	v.WatchConfig()
	return w, nil
}

// Snapshot returns the current tuning values.
func (w *Watcher) Snapshot() TuningSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Subscribe registers a listener and immediately delivers the current
// snapshot.
func (w *Watcher) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	w.mu.Lock()
	w.listeners = append(w.listeners, fn)
	snap := w.snapshot
	w.mu.Unlock()
	fn(snap)
}

func (w *Watcher) reload() error {
	cfg, err := decode(w.v)
	if err != nil {
		return err
	}
	cfg.applyDefaults()
	if err := validate(cfg); err != nil {
		return err
	}
	w.mu.Lock()
	w.snapshot = TuningSnapshot{Analytics: cfg.Analytics, Backtest: cfg.Backtest}
	w.mu.Unlock()
	return nil
}

func (w *Watcher) notify() {
	w.mu.RLock()
	listeners := make([]ChangeListener, len(w.listeners))
	copy(listeners, w.listeners)
	snap := w.snapshot
	w.mu.RUnlock()
	for _, fn := range listeners {
		fn(snap)
	}
}
