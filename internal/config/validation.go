package config

import (
	"fmt"
	"strings"
)

func validate(c *Config) error {
	for _, sym := range c.Feed.Symbols {
		if strings.TrimSpace(sym) == "" {
			return fmt.Errorf("feed.symbols contains an empty symbol")
		}
	}
	if c.Backtest.EntryThreshold <= 0 {
		return fmt.Errorf("backtest.entry_threshold must be positive, got %v", c.Backtest.EntryThreshold)
	}
	if c.Backtest.ExitThreshold >= c.Backtest.EntryThreshold {
		return fmt.Errorf("backtest.exit_threshold (%v) must be below entry_threshold (%v)",
			c.Backtest.ExitThreshold, c.Backtest.EntryThreshold)
	}
	if c.Analytics.RollingWindow < 2 {
		return fmt.Errorf("analytics.rolling_window must be at least 2, got %d", c.Analytics.RollingWindow)
	}
	return nil
}
