package model

import (
	"gorm.io/datatypes"
)

// TickModel mirrors the ingestion-side tick: the raw timestamp text is
// kept as delivered, TSMillis is the parsed instant used for range
// queries.
type TickModel struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	Symbol    string  `gorm:"column:symbol;index:idx_ticks_symbol_ts,priority:1"`
	Timestamp string  `gorm:"column:timestamp"`
	TSMillis  int64   `gorm:"column:ts_ms;index:idx_ticks_symbol_ts,priority:2"`
	Price     float64 `gorm:"column:price"`
	Size      float64 `gorm:"column:size"`
	CreatedAt int64   `gorm:"column:created_at;autoCreateTime:milli"`
}

func (TickModel) TableName() string { return "ticks" }

// CandleModel is one persisted OHLCV bucket, keyed by
// symbol+bucket+timeframe.
type CandleModel struct {
	ID        int64   `gorm:"column:id;primaryKey"`
	Symbol    string  `gorm:"column:symbol;uniqueIndex:idx_candles_key,priority:1"`
	OpenTime  int64   `gorm:"column:open_time;uniqueIndex:idx_candles_key,priority:2"`
	Timeframe string  `gorm:"column:timeframe;uniqueIndex:idx_candles_key,priority:3"`
	Open      float64 `gorm:"column:open"`
	High      float64 `gorm:"column:high"`
	Low       float64 `gorm:"column:low"`
	Close     float64 `gorm:"column:close"`
	Volume    float64 `gorm:"column:volume"`
	Trades    int64   `gorm:"column:trades"`
	Source    string  `gorm:"column:source"`
	CreatedAt int64   `gorm:"column:created_at;autoCreateTime:milli"`
}

func (CandleModel) TableName() string { return "candles" }

// BacktestRunModel snapshots one backtest run: its parameters and
// resulting stats are stored as JSON so older runs survive schema
// changes.
type BacktestRunModel struct {
	ID          string         `gorm:"column:id;primaryKey"`
	Status      string         `gorm:"column:status;index"`
	Symbol1     string         `gorm:"column:symbol1"`
	Symbol2     string         `gorm:"column:symbol2"`
	ConfigJSON  datatypes.JSON `gorm:"column:config_json;type:TEXT"`
	StatsJSON   datatypes.JSON `gorm:"column:stats_json;type:TEXT"`
	Message     string         `gorm:"column:message"`
	CreatedAt   int64          `gorm:"column:created_at;autoCreateTime:milli"`
	UpdatedAt   int64          `gorm:"column:updated_at;autoUpdateTime:milli"`
	CompletedAt int64          `gorm:"column:completed_at"`
}

func (BacktestRunModel) TableName() string { return "backtest_runs" }

// BacktestTradeModel is one round trip recorded by a run.
type BacktestTradeModel struct {
	ID          int64   `gorm:"column:id;primaryKey"`
	RunID       string  `gorm:"column:run_id;index"`
	Side        string  `gorm:"column:side"`
	EntryTime   int64   `gorm:"column:entry_time"`
	EntryPrice  float64 `gorm:"column:entry_price"`
	EntryZScore float64 `gorm:"column:entry_zscore"`
	Closed      bool    `gorm:"column:closed"`
	ExitTime    int64   `gorm:"column:exit_time"`
	ExitPrice   float64 `gorm:"column:exit_price"`
	ExitZScore  float64 `gorm:"column:exit_zscore"`
	PnL         float64 `gorm:"column:pnl"`
}

func (BacktestTradeModel) TableName() string { return "backtest_trades" }
