package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"pairlab/internal/analytics"
	"pairlab/internal/market"
	"pairlab/internal/store/model"
)

// Store is the durable tick/candle/backtest storage backed by SQLite.
// The analytics core never touches it; the service layer reads bounded
// snapshots out of it and writes derived outputs back.
type Store struct {
	db *gorm.DB
}

func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	return NewStoreFromDB(db)
}

func NewStoreFromDB(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("gorm db cannot be nil")
	}
	models := []interface{}{
		&model.TickModel{},
		&model.CandleModel{},
		&model.BacktestRunModel{},
		&model.BacktestTradeModel{},
	}
	if err := db.AutoMigrate(models...); err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		// SQLite + WAL: keep write contention low, allow concurrent reads
		sqlDB.SetMaxOpenConns(2)
		sqlDB.SetMaxIdleConns(2)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InsertTicks writes a batch and returns how many rows were stored.
// Ticks with an unparseable timestamp or non-positive price are skipped;
// a malformed tick never fails the batch.
func (s *Store) InsertTicks(ctx context.Context, ticks []market.Tick) (int, error) {
	if len(ticks) == 0 {
		return 0, nil
	}
	rows := make([]model.TickModel, 0, len(ticks))
	for _, t := range ticks {
		ms, ok := analytics.ParseInstant(t.Timestamp)
		if !ok || t.Price <= 0 {
			continue
		}
		rows = append(rows, model.TickModel{
			Symbol:    t.Symbol,
			Timestamp: t.Timestamp,
			TSMillis:  ms,
			Price:     t.Price,
			Size:      t.Size,
		})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if err := s.db.WithContext(ctx).CreateInBatches(rows, 200).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}

// TickQuery bounds a tick retrieval. Zero values mean "no constraint";
// Limit defaults to 1000.
type TickQuery struct {
	Symbol  string
	StartMS int64
	EndMS   int64
	Limit   int
}

// Ticks returns the matching ticks, newest first.
func (s *Store) Ticks(ctx context.Context, q TickQuery) ([]market.Tick, error) {
	if q.Limit <= 0 {
		q.Limit = 1000
	}
	tx := s.db.WithContext(ctx).Model(&model.TickModel{})
	if q.Symbol != "" {
		tx = tx.Where("symbol = ?", q.Symbol)
	}
	if q.StartMS > 0 {
		tx = tx.Where("ts_ms >= ?", q.StartMS)
	}
	if q.EndMS > 0 {
		tx = tx.Where("ts_ms <= ?", q.EndMS)
	}
	var rows []model.TickModel
	if err := tx.Order("ts_ms DESC").Limit(q.Limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]market.Tick, 0, len(rows))
	for _, r := range rows {
		out = append(out, market.Tick{
			Symbol:    r.Symbol,
			Timestamp: r.Timestamp,
			Price:     r.Price,
			Size:      r.Size,
		})
	}
	return out, nil
}

// SymbolStats summarizes the stored ticks for one symbol.
type SymbolStats struct {
	Symbol        string  `json:"symbol"`
	TickCount     int64   `json:"tick_count"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	AvgPrice      float64 `json:"avg_price"`
	TotalVolume   float64 `json:"total_volume"`
	FirstTickMS   int64   `json:"first_tick_ms"`
	LastTickMS    int64   `json:"last_tick_ms"`
	PriceRangePct float64 `json:"price_range_pct"`
}

// Statistics aggregates per-symbol tick stats; pass an empty symbol for
// every symbol in the table.
func (s *Store) Statistics(ctx context.Context, symbol string) ([]SymbolStats, error) {
	tx := s.db.WithContext(ctx).Model(&model.TickModel{}).
		Select(`symbol,
			COUNT(*) AS tick_count,
			MIN(price) AS min_price,
			MAX(price) AS max_price,
			AVG(price) AS avg_price,
			SUM(size) AS total_volume,
			MIN(ts_ms) AS first_tick_ms,
			MAX(ts_ms) AS last_tick_ms`).
		Group("symbol")
	if symbol != "" {
		tx = tx.Where("symbol = ?", symbol)
	}
	var out []SymbolStats
	if err := tx.Scan(&out).Error; err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].MinPrice > 0 {
			out[i].PriceRangePct = (out[i].MaxPrice - out[i].MinPrice) / out[i].MinPrice * 100
		}
	}
	return out, nil
}

// RecentPrice returns the latest stored price for a symbol, or
// (0, false) when none exists.
func (s *Store) RecentPrice(ctx context.Context, symbol string) (float64, bool) {
	var row model.TickModel
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("ts_ms DESC").
		First(&row).Error
	if err != nil {
		return 0, false
	}
	return row.Price, true
}

// PriceChange reports the move over the trailing window, neutral zeros
// when history is missing.
type PriceChange struct {
	Change        float64 `json:"change"`
	ChangePct     float64 `json:"change_pct"`
	CurrentPrice  float64 `json:"current_price"`
	PreviousPrice float64 `json:"previous_price"`
}

func (s *Store) PriceChange(ctx context.Context, symbol string, minutes int) (PriceChange, error) {
	var latest model.TickModel
	err := s.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		Order("ts_ms DESC").
		First(&latest).Error
	if err != nil {
		return PriceChange{}, nil
	}
	cutoff := latest.TSMillis - int64(minutes)*time.Minute.Milliseconds()
	var past model.TickModel
	err = s.db.WithContext(ctx).
		Where("symbol = ? AND ts_ms >= ?", symbol, cutoff).
		Order("ts_ms ASC").
		First(&past).Error
	if err != nil || past.Price == 0 {
		return PriceChange{CurrentPrice: latest.Price, PreviousPrice: latest.Price}, nil
	}
	change := latest.Price - past.Price
	return PriceChange{
		Change:        change,
		ChangePct:     change / past.Price * 100,
		CurrentPrice:  latest.Price,
		PreviousPrice: past.Price,
	}, nil
}

// SaveCandles upserts candles under a timeframe key, replacing earlier
// snapshots of the same bucket.
func (s *Store) SaveCandles(ctx context.Context, timeframe, source string, candles []market.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	rows := make([]model.CandleModel, 0, len(candles))
	for _, c := range candles {
		rows = append(rows, model.CandleModel{
			Symbol:    c.Symbol,
			OpenTime:  c.OpenTime,
			Timeframe: timeframe,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
			Trades:    c.Trades,
			Source:    source,
		})
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "symbol"}, {Name: "open_time"}, {Name: "timeframe"}},
			DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume", "trades", "source"}),
		}).
		CreateInBatches(rows, 200).Error
}

// Candles returns stored candles for a symbol+timeframe, oldest first.
func (s *Store) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]market.Candle, error) {
	if limit <= 0 {
		limit = 10000
	}
	var rows []model.CandleModel
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", symbol, timeframe).
		Order("open_time DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]market.Candle, len(rows))
	for i, r := range rows {
		// reverse back to ascending
		out[len(rows)-1-i] = market.Candle{
			Symbol:   r.Symbol,
			OpenTime: r.OpenTime,
			Open:     r.Open,
			High:     r.High,
			Low:      r.Low,
			Close:    r.Close,
			Volume:   r.Volume,
			Trades:   r.Trades,
		}
	}
	return out, nil
}

// CleanupOlderThan removes ticks and candles past the retention horizon
// and compacts the file. Returns the number of deleted ticks.
func (s *Store) CleanupOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UnixMilli()
	res := s.db.WithContext(ctx).Where("ts_ms < ?", cutoff).Delete(&model.TickModel{})
	if res.Error != nil {
		return 0, res.Error
	}
	if err := s.db.WithContext(ctx).Where("open_time < ?", cutoff).Delete(&model.CandleModel{}).Error; err != nil {
		return res.RowsAffected, err
	}
	if err := s.db.WithContext(ctx).Exec("VACUUM").Error; err != nil {
		return res.RowsAffected, err
	}
	return res.RowsAffected, nil
}

// ClearAll wipes tick and candle data (not backtest history) and shrinks
// the file.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Exec("DELETE FROM ticks").Error; err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Exec("DELETE FROM candles").Error; err != nil {
		return err
	}
	return s.db.WithContext(ctx).Exec("VACUUM").Error
}

// SizeInfo reports coarse database volume for the dashboard.
type SizeInfo struct {
	TickCount   int64 `json:"tick_count"`
	SymbolCount int64 `json:"symbol_count"`
	SizeBytes   int64 `json:"size_bytes"`
}

func (s *Store) Size(ctx context.Context) (SizeInfo, error) {
	var info SizeInfo
	if err := s.db.WithContext(ctx).Model(&model.TickModel{}).Count(&info.TickCount).Error; err != nil {
		return info, err
	}
	if err := s.db.WithContext(ctx).Model(&model.TickModel{}).Distinct("symbol").Count(&info.SymbolCount).Error; err != nil {
		return info, err
	}
	row := s.db.WithContext(ctx).Raw("SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Row()
	if err := row.Scan(&info.SizeBytes); err != nil {
		return info, err
	}
	return info, nil
}

// DB exposes the underlying handle for sibling stores sharing the file.
func (s *Store) DB() *gorm.DB { return s.db }
