package backtest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pairlab/internal/analytics"
	"pairlab/internal/logger"
	"pairlab/internal/market"
)

const minPairBars = 3

// ErrInsufficientData marks runs that failed only because the pair has
// too little overlapping history.
var ErrInsufficientData = errors.New("insufficient pair data")

// TickProvider yields the raw ticks a run is computed over. The app
// wires this to the live tick buffer with a sqlite fallback, so a run
// sees a stable as-of snapshot.
type TickProvider interface {
	Ticks(ctx context.Context, symbol string) ([]market.Tick, error)
}

// PairAnalysis is the full derived state of one symbol pair: aligned
// prices, hedge ratios, spread, z-score and the simulated trades.
type PairAnalysis struct {
	Config RunConfig

	Index       []int64
	Price1      []float64
	Price2      []float64
	Spread      []float64
	ZScore      []float64
	Correlation []float64

	Ratios     analytics.RatioSeries
	HedgeRatio analytics.HedgeRatio
	ADF        *analytics.ADFResult
	Sharpe1    float64
	Sharpe2    float64

	Trades    []analytics.Trade
	Positions []int
	Summary   analytics.BacktestSummary
}

type Service struct {
	provider TickProvider
	runs     *RunStore

	defaultsMu sync.RWMutex
	defaults   RunConfig

	group *errgroup.Group
}

func NewService(provider TickProvider, runs *RunStore, defaults RunConfig) *Service {
	group := &errgroup.Group{}
	group.SetLimit(2)
	return &Service{
		provider: provider,
		runs:     runs,
		defaults: defaults,
		group:    group,
	}
}

// SetDefaults swaps the fallback parameters applied to new runs. The
// config watcher calls this on hot reload.
func (s *Service) SetDefaults(defaults RunConfig) {
	s.defaultsMu.Lock()
	s.defaults = defaults
	s.defaultsMu.Unlock()
}

func (s *Service) currentDefaults() RunConfig {
	s.defaultsMu.RLock()
	defer s.defaultsMu.RUnlock()
	return s.defaults
}

// Submit validates the config, records a pending run and executes it
// in the background. The returned run carries the id to poll.
func (s *Service) Submit(ctx context.Context, cfg RunConfig) (*Run, error) {
	if err := cfg.normalize(s.currentDefaults()); err != nil {
		return nil, err
	}
	run := &Run{
		ID:     uuid.NewString(),
		Status: StatusPending,
		Config: cfg,
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	s.group.Go(func() error {
		s.execute(context.Background(), run.ID, cfg)
		return nil
	})
	return run, nil
}

// Wait blocks until all in-flight runs finish. Used on shutdown.
func (s *Service) Wait() {
	_ = s.group.Wait()
}

func (s *Service) Run(ctx context.Context, id string) (*Run, error) {
	return s.runs.Get(ctx, id)
}

func (s *Service) Runs(ctx context.Context, limit int) ([]*Run, error) {
	return s.runs.List(ctx, limit)
}

func (s *Service) RunTrades(ctx context.Context, id string) ([]analytics.Trade, error) {
	return s.runs.Trades(ctx, id)
}

func (s *Service) execute(ctx context.Context, id string, cfg RunConfig) {
	if err := s.runs.SetStatus(ctx, id, StatusRunning, ""); err != nil {
		logger.Errorf("[backtest] run %s: mark running: %v", id, err)
	}
	pa, err := s.Analyze(ctx, cfg)
	if err != nil {
		logger.Warnf("[backtest] run %s failed: %v", id, err)
		if serr := s.runs.SetStatus(ctx, id, StatusFailed, err.Error()); serr != nil {
			logger.Errorf("[backtest] run %s: mark failed: %v", id, serr)
		}
		return
	}
	stats := statsFromAnalysis(pa)
	if err := s.runs.Complete(ctx, id, stats, pa.Trades); err != nil {
		logger.Errorf("[backtest] run %s: persist results: %v", id, err)
		_ = s.runs.SetStatus(ctx, id, StatusFailed, err.Error())
		return
	}
	logger.Infof("[backtest] run %s done: %d trades, pnl=%.6f",
		id, stats.Trades, stats.TotalPnL)
}

// Analyze runs the full pipeline synchronously without recording a
// run. The pair endpoint and chart rendering use it directly.
func (s *Service) Analyze(ctx context.Context, cfg RunConfig) (*PairAnalysis, error) {
	if err := cfg.normalize(s.currentDefaults()); err != nil {
		return nil, err
	}
	ticks1, err := s.provider.Ticks(ctx, cfg.Symbol1)
	if err != nil {
		return nil, fmt.Errorf("load %s ticks: %w", cfg.Symbol1, err)
	}
	ticks2, err := s.provider.Ticks(ctx, cfg.Symbol2)
	if err != nil {
		return nil, fmt.Errorf("load %s ticks: %w", cfg.Symbol2, err)
	}
	return ComputePair(cfg, ticks1, ticks2)
}

// ComputePair is the pure pipeline: resample both legs, align on
// bucket timestamps, estimate the hedge ratio, build spread and
// z-score and simulate the mean-reversion strategy.
func ComputePair(cfg RunConfig, ticks1, ticks2 []market.Tick) (*PairAnalysis, error) {
	tf, err := analytics.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	method, err := analytics.ParseHedgeMethod(cfg.HedgeMethod)
	if err != nil {
		return nil, err
	}

	by1, _ := analytics.Resample(ticks1, tf)
	by2, _ := analytics.Resample(ticks2, tf)
	candles1 := by1[cfg.Symbol1]
	candles2 := by2[cfg.Symbol2]
	if len(candles1) == 0 || len(candles2) == 0 {
		return nil, fmt.Errorf("%w: no candles for pair %s/%s at %s",
			ErrInsufficientData, cfg.Symbol1, cfg.Symbol2, tf.Key)
	}

	p1, p2 := analytics.Align(analytics.CloseSeries(candles1), analytics.CloseSeries(candles2))
	if p1.Len() < minPairBars {
		return nil, fmt.Errorf("%w: pair %s/%s has only %d overlapping bars",
			ErrInsufficientData, cfg.Symbol1, cfg.Symbol2, p1.Len())
	}

	ratios := analytics.EstimateHedgeRatio(p1.Values, p2.Values, method, cfg.HedgeWindow)
	spread := analytics.Spread(p1, p2, ratios)
	zscore := analytics.SpreadZScore(spread, cfg.RollingWindow)
	trades, positions := analytics.MeanReversionBacktest(spread, zscore, cfg.EntryThreshold, cfg.ExitThreshold)

	pa := &PairAnalysis{
		Config:      cfg,
		Index:       spread.Index,
		Price1:      p1.Values,
		Price2:      p2.Values,
		Spread:      spread.Values,
		ZScore:      zscore.Values,
		Correlation: analytics.RollingCorrelation(p1.Values, p2.Values, cfg.RollingWindow),
		Ratios:      ratios,
		HedgeRatio:  ratios.At(len(spread.Values) - 1),
		ADF:         analytics.ADFTest(spread.Values),
		Sharpe1:     analytics.SharpeRatio(analytics.Returns(p1.Values), 0),
		Sharpe2:     analytics.SharpeRatio(analytics.Returns(p2.Values), 0),
		Trades:      trades,
		Positions:   positions,
		Summary:     analytics.SummarizeTrades(trades),
	}
	return pa, nil
}

func statsFromAnalysis(pa *PairAnalysis) *RunStats {
	stats := &RunStats{
		BacktestSummary: pa.Summary,
		Bars:            len(pa.Spread),
		HedgeRatio:      pa.HedgeRatio.Ratio,
		Intercept:       pa.HedgeRatio.Intercept,
	}
	if n := len(pa.ZScore); n > 0 {
		stats.FinalZScore = pa.ZScore[n-1]
	}
	if pa.ADF != nil {
		stats.ADFStatistic = pa.ADF.Statistic
		stats.ADFPValue = pa.ADF.PValue
		stats.IsStationary = pa.ADF.IsStationary
	} else {
		stats.ADFSkipped = true
	}
	return stats
}
