package config

// Config is the full runtime configuration. Field tags follow the YAML
// layout; PAIRLAB_* environment variables override individual keys.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Backtest  BacktestConfig  `mapstructure:"backtest"`
	Server    ServerConfig    `mapstructure:"server"`
}

type AppConfig struct {
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log_path"`
}

type DatabaseConfig struct {
	Path                   string `mapstructure:"path"`
	RetentionHours         int    `mapstructure:"retention_hours"`
	CleanupIntervalMinutes int    `mapstructure:"cleanup_interval_minutes"`
}

type FeedConfig struct {
	Symbols              []string `mapstructure:"symbols"`
	RESTBaseURL          string   `mapstructure:"rest_base_url"`
	BufferSize           int      `mapstructure:"buffer_size"`
	BatchSize            int      `mapstructure:"batch_size"`
	BatchIntervalSeconds int      `mapstructure:"batch_interval_seconds"`
	ProxyEnabled         bool     `mapstructure:"proxy_enabled"`
	RESTProxyURL         string   `mapstructure:"rest_proxy_url"`
	WSProxyURL           string   `mapstructure:"ws_proxy_url"`
}

type AnalyticsConfig struct {
	DefaultTimeframe string `mapstructure:"default_timeframe"`
	RollingWindow    int    `mapstructure:"rolling_window"`
	HedgeMethod      string `mapstructure:"hedge_method"`
}

type BacktestConfig struct {
	EntryThreshold float64 `mapstructure:"entry_threshold"`
	ExitThreshold  float64 `mapstructure:"exit_threshold"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}
