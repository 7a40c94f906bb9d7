// Package backtest runs mean-reversion pair backtests asynchronously
// and persists the runs and their trades.
package backtest

import (
	"fmt"
	"strings"

	"pairlab/internal/analytics"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// RunConfig is the user-supplied shape of one run. Zero values fall
// back to the service defaults.
type RunConfig struct {
	Symbol1        string  `json:"symbol1"`
	Symbol2        string  `json:"symbol2"`
	Timeframe      string  `json:"timeframe"`
	RollingWindow  int     `json:"rolling_window"`
	HedgeMethod    string  `json:"hedge_method"`
	HedgeWindow    int     `json:"hedge_window"`
	EntryThreshold float64 `json:"entry_threshold"`
	ExitThreshold  float64 `json:"exit_threshold"`
}

func (c *RunConfig) normalize(defaults RunConfig) error {
	c.Symbol1 = strings.ToLower(strings.TrimSpace(c.Symbol1))
	c.Symbol2 = strings.ToLower(strings.TrimSpace(c.Symbol2))
	if c.Symbol1 == "" || c.Symbol2 == "" {
		return fmt.Errorf("symbol1 and symbol2 are required")
	}
	if c.Symbol1 == c.Symbol2 {
		return fmt.Errorf("symbol1 and symbol2 must differ")
	}
	if c.Timeframe == "" {
		c.Timeframe = defaults.Timeframe
	}
	if _, err := analytics.ParseTimeframe(c.Timeframe); err != nil {
		return err
	}
	if c.RollingWindow <= 0 {
		c.RollingWindow = defaults.RollingWindow
	}
	if c.RollingWindow < 2 {
		return fmt.Errorf("rolling_window must be at least 2")
	}
	if c.HedgeMethod == "" {
		c.HedgeMethod = defaults.HedgeMethod
	}
	if _, err := analytics.ParseHedgeMethod(c.HedgeMethod); err != nil {
		return err
	}
	if c.HedgeWindow <= 0 {
		c.HedgeWindow = c.RollingWindow
	}
	if c.EntryThreshold == 0 {
		c.EntryThreshold = defaults.EntryThreshold
	}
	if c.EntryThreshold <= 0 {
		return fmt.Errorf("entry_threshold must be positive")
	}
	if c.ExitThreshold == 0 && defaults.ExitThreshold != 0 {
		c.ExitThreshold = defaults.ExitThreshold
	}
	if c.ExitThreshold >= c.EntryThreshold {
		return fmt.Errorf("exit_threshold must be below entry_threshold")
	}
	return nil
}

// RunStats is what a completed run reports back.
type RunStats struct {
	analytics.BacktestSummary

	Bars         int     `json:"bars"`
	HedgeRatio   float64 `json:"hedge_ratio"`
	Intercept    float64 `json:"intercept"`
	ADFStatistic float64 `json:"adf_statistic"`
	ADFPValue    float64 `json:"adf_pvalue"`
	IsStationary bool    `json:"is_stationary"`
	ADFSkipped   bool    `json:"adf_skipped"`
	FinalZScore  float64 `json:"final_zscore"`
}

type Run struct {
	ID          string    `json:"id"`
	Status      Status    `json:"status"`
	Config      RunConfig `json:"config"`
	Stats       *RunStats `json:"stats,omitempty"`
	Message     string    `json:"message,omitempty"`
	CreatedAt   int64     `json:"created_at"`
	CompletedAt int64     `json:"completed_at,omitempty"`
}
