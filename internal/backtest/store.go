package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"pairlab/internal/analytics"
	"pairlab/internal/store/model"
)

// RunStore persists runs and trades through gorm.
type RunStore struct {
	db *gorm.DB
}

func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

func (rs *RunStore) Create(ctx context.Context, run *Run) error {
	cfgJSON, err := json.Marshal(run.Config)
	if err != nil {
		return fmt.Errorf("encode run config: %w", err)
	}
	rec := model.BacktestRunModel{
		ID:         run.ID,
		Status:     string(run.Status),
		Symbol1:    run.Config.Symbol1,
		Symbol2:    run.Config.Symbol2,
		ConfigJSON: datatypes.JSON(cfgJSON),
	}
	return rs.db.WithContext(ctx).Create(&rec).Error
}

func (rs *RunStore) SetStatus(ctx context.Context, id string, status Status, message string) error {
	updates := map[string]any{
		"status":  string(status),
		"message": message,
	}
	if status == StatusDone || status == StatusFailed {
		updates["completed_at"] = time.Now().UnixMilli()
	}
	return rs.db.WithContext(ctx).
		Model(&model.BacktestRunModel{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// Complete marks the run done and records its stats and trades in one
// transaction.
func (rs *RunStore) Complete(ctx context.Context, id string, stats *RunStats, trades []analytics.Trade) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encode run stats: %w", err)
	}
	return rs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&model.BacktestRunModel{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"status":       string(StatusDone),
				"stats_json":   datatypes.JSON(statsJSON),
				"message":      "",
				"completed_at": time.Now().UnixMilli(),
			}).Error
		if err != nil {
			return err
		}
		if len(trades) == 0 {
			return nil
		}
		recs := make([]model.BacktestTradeModel, 0, len(trades))
		for _, tr := range trades {
			recs = append(recs, model.BacktestTradeModel{
				RunID:       id,
				Side:        string(tr.Side),
				EntryTime:   tr.EntryTime,
				EntryPrice:  tr.EntryPrice,
				EntryZScore: tr.EntryZScore,
				Closed:      tr.Closed,
				ExitTime:    tr.ExitTime,
				ExitPrice:   tr.ExitPrice,
				ExitZScore:  tr.ExitZScore,
				PnL:         tr.PnL,
			})
		}
		return tx.CreateInBatches(recs, 200).Error
	})
}

func (rs *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	var rec model.BacktestRunModel
	err := rs.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if err != nil {
		return nil, err
	}
	return decodeRun(&rec)
}

func (rs *RunStore) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var recs []model.BacktestRunModel
	err := rs.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]*Run, 0, len(recs))
	for i := range recs {
		run, err := decodeRun(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, nil
}

func (rs *RunStore) Trades(ctx context.Context, runID string) ([]analytics.Trade, error) {
	var recs []model.BacktestTradeModel
	err := rs.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("entry_time ASC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]analytics.Trade, 0, len(recs))
	for _, rec := range recs {
		out = append(out, analytics.Trade{
			EntryTime:   rec.EntryTime,
			EntryPrice:  rec.EntryPrice,
			EntryZScore: rec.EntryZScore,
			Side:        analytics.Side(rec.Side),
			Closed:      rec.Closed,
			ExitTime:    rec.ExitTime,
			ExitPrice:   rec.ExitPrice,
			ExitZScore:  rec.ExitZScore,
			PnL:         rec.PnL,
		})
	}
	return out, nil
}

func decodeRun(rec *model.BacktestRunModel) (*Run, error) {
	run := &Run{
		ID:          rec.ID,
		Status:      Status(rec.Status),
		Message:     rec.Message,
		CreatedAt:   rec.CreatedAt,
		CompletedAt: rec.CompletedAt,
	}
	if len(rec.ConfigJSON) > 0 {
		if err := json.Unmarshal(rec.ConfigJSON, &run.Config); err != nil {
			return nil, fmt.Errorf("decode run config %s: %w", rec.ID, err)
		}
	}
	if len(rec.StatsJSON) > 0 {
		var stats RunStats
		if err := json.Unmarshal(rec.StatsJSON, &stats); err != nil {
			return nil, fmt.Errorf("decode run stats %s: %w", rec.ID, err)
		}
		run.Stats = &stats
	}
	return run, nil
}
