package config

const (
	defaultDBPath           = "data/pairlab.db"
	defaultRetentionHours   = 24
	defaultCleanupMinutes   = 30
	defaultBufferSize       = 10000
	defaultBatchSize        = 100
	defaultBatchIntervalSec = 5
	defaultTimeframe        = "1s"
	defaultRollingWindow    = 20
	defaultHedgeMethod      = "ols"
	defaultEntryThreshold   = 2.0
	defaultServerAddr       = ":8080"
)

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Database.Path == "" {
		c.Database.Path = defaultDBPath
	}
	if c.Database.RetentionHours <= 0 {
		c.Database.RetentionHours = defaultRetentionHours
	}
	if c.Database.CleanupIntervalMinutes <= 0 {
		c.Database.CleanupIntervalMinutes = defaultCleanupMinutes
	}
	if len(c.Feed.Symbols) == 0 {
		c.Feed.Symbols = []string{"btcusdt", "ethusdt"}
	}
	if c.Feed.BufferSize <= 0 {
		c.Feed.BufferSize = defaultBufferSize
	}
	if c.Feed.BatchSize <= 0 {
		c.Feed.BatchSize = defaultBatchSize
	}
	if c.Feed.BatchIntervalSeconds <= 0 {
		c.Feed.BatchIntervalSeconds = defaultBatchIntervalSec
	}
	if c.Analytics.DefaultTimeframe == "" {
		c.Analytics.DefaultTimeframe = defaultTimeframe
	}
	if c.Analytics.RollingWindow <= 0 {
		c.Analytics.RollingWindow = defaultRollingWindow
	}
	if c.Analytics.HedgeMethod == "" {
		c.Analytics.HedgeMethod = defaultHedgeMethod
	}
	if c.Backtest.EntryThreshold == 0 {
		c.Backtest.EntryThreshold = defaultEntryThreshold
	}
	if c.Server.Addr == "" {
		c.Server.Addr = defaultServerAddr
	}
}
