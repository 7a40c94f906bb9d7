package backtest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"pairlab/internal/analytics"
	"pairlab/internal/market"
	"pairlab/internal/store/sqlite"
)

// pairTicks builds two legs bound by p1 = 2*p2 + 1 + noise, one tick per
// second, so OLS should recover ratio 2 and the spread is stationary
// noise around zero.
func pairTicks(n int) (ticks1, ticks2 []market.Tick) {
	seed := int64(12345)
	noise := func() float64 {
		seed = (seed*1103515245 + 12345) % (1 << 31)
		return float64(seed)/float64(1<<30) - 1
	}
	for i := 0; i < n; i++ {
		factor := 100 + 0.05*float64(i)
		ts := fmt.Sprintf("%d", int64(i)*1000)
		ticks1 = append(ticks1, market.Tick{
			Symbol: "aaausdt", Timestamp: ts, Price: 2*factor + 1 + noise(), Size: 1,
		})
		ticks2 = append(ticks2, market.Tick{
			Symbol: "bbbusdt", Timestamp: ts, Price: factor, Size: 1,
		})
	}
	return ticks1, ticks2
}

func pairConfig() RunConfig {
	return RunConfig{
		Symbol1:        "aaausdt",
		Symbol2:        "bbbusdt",
		Timeframe:      "1s",
		RollingWindow:  20,
		HedgeMethod:    "ols",
		HedgeWindow:    20,
		EntryThreshold: 2.0,
		ExitThreshold:  0.0,
	}
}

func TestComputePair(t *testing.T) {
	ticks1, ticks2 := pairTicks(180)
	pa, err := ComputePair(pairConfig(), ticks1, ticks2)
	require.NoError(t, err)

	n := len(pa.Index)
	require.Equal(t, 180, n)
	assert.Len(t, pa.Price1, n)
	assert.Len(t, pa.Price2, n)
	assert.Len(t, pa.Spread, n)
	assert.Len(t, pa.ZScore, n)
	assert.Len(t, pa.Correlation, n)
	assert.Len(t, pa.Positions, n)

	assert.InDelta(t, 2.0, pa.HedgeRatio.Ratio, 0.2)
	assert.InDelta(t, 1.0, pa.HedgeRatio.Intercept, 1.0)

	require.NotNil(t, pa.ADF)
	assert.True(t, pa.ADF.IsStationary)

	assert.Equal(t, analytics.SummarizeTrades(pa.Trades), pa.Summary)
	for _, tr := range pa.Trades {
		assert.Contains(t, []analytics.Side{analytics.SideLong, analytics.SideShort}, tr.Side)
		if tr.Closed {
			assert.Greater(t, tr.ExitTime, tr.EntryTime)
		}
	}
}

func TestComputePairInsufficientData(t *testing.T) {
	cfg := pairConfig()

	_, err := ComputePair(cfg, nil, nil)
	assert.ErrorIs(t, err, ErrInsufficientData)

	// two overlapping bars is below the minimum of three
	ticks1, ticks2 := pairTicks(2)
	_, err = ComputePair(cfg, ticks1, ticks2)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestStatsFromAnalysis(t *testing.T) {
	pa := &PairAnalysis{
		Spread:     []float64{0, 1, 2},
		ZScore:     []float64{0, 0.5, 1.25},
		HedgeRatio: analytics.HedgeRatio{Ratio: 1.5, Intercept: 0.25},
		Summary:    analytics.BacktestSummary{Trades: 2, Closed: 1, Wins: 1, TotalPnL: 3},
	}
	stats := statsFromAnalysis(pa)
	assert.Equal(t, 3, stats.Bars)
	assert.Equal(t, 1.5, stats.HedgeRatio)
	assert.Equal(t, 0.25, stats.Intercept)
	assert.Equal(t, 1.25, stats.FinalZScore)
	assert.Equal(t, 2, stats.Trades)
	assert.True(t, stats.ADFSkipped)

	pa.ADF = &analytics.ADFResult{Statistic: -3.2, PValue: 0.02, IsStationary: true}
	stats = statsFromAnalysis(pa)
	assert.False(t, stats.ADFSkipped)
	assert.Equal(t, -3.2, stats.ADFStatistic)
	assert.Equal(t, 0.02, stats.ADFPValue)
	assert.True(t, stats.IsStationary)
}

type mapProvider map[string][]market.Tick

func (m mapProvider) Ticks(_ context.Context, symbol string) ([]market.Tick, error) {
	return m[symbol], nil
}

func newTestService(t *testing.T, provider TickProvider) *Service {
	t.Helper()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return NewService(provider, NewRunStore(store.DB()), testDefaults())
}

func TestSubmitRunsToCompletion(t *testing.T) {
	ticks1, ticks2 := pairTicks(180)
	svc := newTestService(t, mapProvider{"aaausdt": ticks1, "bbbusdt": ticks2})

	ctx := context.Background()
	run, err := svc.Submit(ctx, RunConfig{Symbol1: "aaausdt", Symbol2: "bbbusdt"})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)
	assert.Equal(t, StatusPending, run.Status)

	svc.Wait()

	done, err := svc.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDone, done.Status)
	require.NotNil(t, done.Stats)
	assert.Equal(t, 180, done.Stats.Bars)
	assert.NotZero(t, done.CompletedAt)
	assert.Equal(t, "aaausdt", done.Config.Symbol1)

	trades, err := svc.RunTrades(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, trades, done.Stats.Trades)

	runs, err := svc.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
}

func TestSubmitMarksFailedRuns(t *testing.T) {
	svc := newTestService(t, mapProvider{})

	ctx := context.Background()
	run, err := svc.Submit(ctx, RunConfig{Symbol1: "aaausdt", Symbol2: "bbbusdt"})
	require.NoError(t, err)

	svc.Wait()

	failed, err := svc.Run(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Contains(t, failed.Message, "insufficient")
	assert.Nil(t, failed.Stats)
}

func TestSubmitRejectsInvalidConfig(t *testing.T) {
	svc := newTestService(t, mapProvider{})
	_, err := svc.Submit(context.Background(), RunConfig{Symbol1: "btcusdt", Symbol2: "btcusdt"})
	assert.Error(t, err)
}

func TestRunNotFound(t *testing.T) {
	svc := newTestService(t, mapProvider{})
	_, err := svc.Run(context.Background(), "nope")
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
