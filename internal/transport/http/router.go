package pairhttp

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"pairlab/internal/alert"
	"pairlab/internal/analysis/indicator"
	"pairlab/internal/analytics"
	"pairlab/internal/backtest"
	"pairlab/internal/chart"
	"pairlab/internal/collector"
	"pairlab/internal/market"
	"pairlab/internal/store/sqlite"
)

const maxRequestBody = 1 << 20

type RouterConfig struct {
	Addr string

	Store     *sqlite.Store
	Buffer    *market.TickBuffer
	Backtests *backtest.Service
	Alerts    *alert.Registry
	Collector *collector.Collector
	Source    market.Source

	DefaultTimeframe string
	DefaultWindow    int
}

type Router struct {
	cfg RouterConfig
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.DefaultTimeframe == "" {
		cfg.DefaultTimeframe = "1s"
	}
	if cfg.DefaultWindow <= 0 {
		cfg.DefaultWindow = 20
	}
	return &Router{cfg: cfg}
}

func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/timeframes", r.handleTimeframes)
	group.GET("/ticks", r.handleTicks)
	group.POST("/ticks", r.handleInsertTicks)
	group.GET("/candles", r.handleCandles)
	group.GET("/stats", r.handleStats)
	group.GET("/price/:symbol", r.handlePrice)
	group.GET("/volume-profile", r.handleVolumeProfile)
	group.GET("/pair", r.handlePair)
	group.GET("/indicators", r.handleIndicators)

	group.POST("/backtest", r.handleSubmitBacktest)
	group.GET("/backtest", r.handleListBacktests)
	group.GET("/backtest/:id", r.handleBacktest)
	group.GET("/backtest/:id/trades", r.handleBacktestTrades)

	group.GET("/alerts", r.handleListAlerts)
	group.POST("/alerts", r.handleAddAlert)
	group.DELETE("/alerts", r.handleClearAlerts)
	group.DELETE("/alerts/:id", r.handleRemoveAlert)
	group.GET("/alerts/check", r.handleCheckAlerts)

	group.GET("/chart/pair", r.handlePairChart)
	group.GET("/chart/kline", r.handleKlineChart)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func internalError(c *gin.Context, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func queryFloat(c *gin.Context, key string, fallback float64) float64 {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func querySymbol(c *gin.Context, key string) string {
	return strings.ToLower(strings.TrimSpace(c.Query(key)))
}

func (r *Router) handleTimeframes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"timeframes": analytics.SupportedTimeframes()})
}

func (r *Router) handleTicks(c *gin.Context) {
	symbol := querySymbol(c, "symbol")
	if symbol == "" {
		badRequest(c, errors.New("symbol is required"))
		return
	}
	q := sqlite.TickQuery{
		Symbol:  symbol,
		StartMS: int64(queryInt(c, "start_ms", 0)),
		EndMS:   int64(queryInt(c, "end_ms", 0)),
		Limit:   queryInt(c, "limit", 1000),
	}
	ticks, err := r.cfg.Store.Ticks(c.Request.Context(), q)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": symbol, "count": len(ticks), "ticks": ticks})
}

// handleInsertTicks accepts a JSON array of raw ticks, mirroring the
// CSV-upload path of the dashboard. Malformed rows are counted, not
// fatal.
func (r *Router) handleInsertTicks(c *gin.Context) {
	var ticks []market.Tick
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBody)
	defer body.Close()
	raw, err := io.ReadAll(body)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := decodeTicks(raw, &ticks); err != nil {
		badRequest(c, err)
		return
	}
	stored, err := r.cfg.Store.InsertTicks(c.Request.Context(), ticks)
	if err != nil {
		internalError(c, err)
		return
	}
	if r.cfg.Buffer != nil {
		r.cfg.Buffer.Append(ticks...)
	}
	c.JSON(http.StatusOK, gin.H{
		"received": len(ticks),
		"stored":   stored,
		"rejected": len(ticks) - stored,
	})
}

func (r *Router) handleCandles(c *gin.Context) {
	symbol := querySymbol(c, "symbol")
	if symbol == "" {
		badRequest(c, errors.New("symbol is required"))
		return
	}
	tfKey := strings.TrimSpace(c.DefaultQuery("timeframe", r.cfg.DefaultTimeframe))
	tf, err := analytics.ParseTimeframe(tfKey)
	if err != nil {
		badRequest(c, err)
		return
	}
	limit := queryInt(c, "limit", 500)

	// Live path first: resample the in-memory snapshot, fall back to
	// persisted candles.
	var candles []market.Candle
	if r.cfg.Buffer != nil {
		if snap := r.cfg.Buffer.Snapshot(symbol); len(snap) > 0 {
			bySymbol, _ := analytics.Resample(snap, tf)
			candles = bySymbol[symbol]
		}
	}
	if len(candles) == 0 {
		candles, err = r.cfg.Store.Candles(c.Request.Context(), symbol, tf.Key, limit)
		if err != nil {
			internalError(c, err)
			return
		}
	}
	if limit > 0 && len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":    symbol,
		"timeframe": tf.Key,
		"count":     len(candles),
		"candles":   candles,
	})
}

func (r *Router) handleStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats, err := r.cfg.Store.Statistics(ctx, querySymbol(c, "symbol"))
	if err != nil {
		internalError(c, err)
		return
	}
	size, err := r.cfg.Store.Size(ctx)
	if err != nil {
		internalError(c, err)
		return
	}
	out := gin.H{
		"symbols":  stats,
		"database": size,
	}
	if r.cfg.Collector != nil {
		out["collector"] = r.cfg.Collector.Stats()
	}
	if r.cfg.Source != nil {
		out["feed"] = r.cfg.Source.Stats()
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handlePrice(c *gin.Context) {
	symbol := strings.ToLower(strings.TrimSpace(c.Param("symbol")))
	if symbol == "" {
		badRequest(c, errors.New("symbol is required"))
		return
	}
	ctx := c.Request.Context()
	price, ok := r.cfg.Store.RecentPrice(ctx, symbol)
	change, err := r.cfg.Store.PriceChange(ctx, symbol, queryInt(c, "minutes", 5))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol": symbol,
		"known":  ok,
		"price":  price,
		"change": change,
	})
}

func (r *Router) handleVolumeProfile(c *gin.Context) {
	symbol := querySymbol(c, "symbol")
	if symbol == "" {
		badRequest(c, errors.New("symbol is required"))
		return
	}
	bins := queryInt(c, "bins", 20)
	var ticks []market.Tick
	if r.cfg.Buffer != nil {
		ticks = r.cfg.Buffer.Snapshot(symbol)
	}
	if len(ticks) == 0 {
		var err error
		ticks, err = r.cfg.Store.Ticks(c.Request.Context(), sqlite.TickQuery{Symbol: symbol, Limit: 10000})
		if err != nil {
			internalError(c, err)
			return
		}
	}
	profile := market.VolumeProfile(ticks, bins)
	c.JSON(http.StatusOK, gin.H{
		"symbol":  symbol,
		"bins":    len(profile),
		"profile": profile,
	})
}

func (r *Router) pairConfigFromQuery(c *gin.Context) backtest.RunConfig {
	return backtest.RunConfig{
		Symbol1:        querySymbol(c, "symbol1"),
		Symbol2:        querySymbol(c, "symbol2"),
		Timeframe:      strings.TrimSpace(c.Query("timeframe")),
		RollingWindow:  queryInt(c, "window", 0),
		HedgeMethod:    strings.TrimSpace(c.Query("method")),
		HedgeWindow:    queryInt(c, "hedge_window", 0),
		EntryThreshold: queryFloat(c, "entry", 0),
		ExitThreshold:  queryFloat(c, "exit", 0),
	}
}

func (r *Router) handlePair(c *gin.Context) {
	pa, err := r.cfg.Backtests.Analyze(c.Request.Context(), r.pairConfigFromQuery(c))
	if err != nil {
		if errors.Is(err, backtest.ErrInsufficientData) {
			c.JSON(http.StatusOK, gin.H{"insufficient_data": true, "reason": err.Error()})
			return
		}
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, pairResponse(pa))
}

func pairResponse(pa *backtest.PairAnalysis) gin.H {
	out := gin.H{
		"config":      pa.Config,
		"index":       pa.Index,
		"price1":      pa.Price1,
		"price2":      pa.Price2,
		"spread":      pa.Spread,
		"zscore":      pa.ZScore,
		"correlation": pa.Correlation,
		"hedge_ratio": pa.HedgeRatio,
		"sharpe1":     pa.Sharpe1,
		"sharpe2":     pa.Sharpe2,
		"trades":      pa.Trades,
		"positions":   pa.Positions,
		"summary":     pa.Summary,
	}
	if pa.ADF != nil {
		out["adf"] = pa.ADF
	} else {
		out["adf_skipped"] = true
	}
	return out
}

func (r *Router) handleIndicators(c *gin.Context) {
	symbol := querySymbol(c, "symbol")
	if symbol == "" {
		badRequest(c, errors.New("symbol is required"))
		return
	}
	tfKey := strings.TrimSpace(c.DefaultQuery("timeframe", r.cfg.DefaultTimeframe))
	tf, err := analytics.ParseTimeframe(tfKey)
	if err != nil {
		badRequest(c, err)
		return
	}
	candles, err := r.symbolCandles(c, symbol, tf)
	if err != nil {
		internalError(c, err)
		return
	}
	rep, err := indicator.Compute(candles, indicator.Settings{Symbol: symbol, Timeframe: tf.Key})
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"insufficient_data": true, "reason": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (r *Router) symbolCandles(c *gin.Context, symbol string, tf analytics.Timeframe) ([]market.Candle, error) {
	if r.cfg.Buffer != nil {
		if snap := r.cfg.Buffer.Snapshot(symbol); len(snap) > 0 {
			bySymbol, _ := analytics.Resample(snap, tf)
			if candles := bySymbol[symbol]; len(candles) > 0 {
				return candles, nil
			}
		}
	}
	return r.cfg.Store.Candles(c.Request.Context(), symbol, tf.Key, 1000)
}

func (r *Router) handleSubmitBacktest(c *gin.Context) {
	var cfg backtest.RunConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return
	}
	run, err := r.cfg.Backtests.Submit(c.Request.Context(), cfg)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusAccepted, run)
}

func (r *Router) handleListBacktests(c *gin.Context) {
	runs, err := r.cfg.Backtests.Runs(c.Request.Context(), queryInt(c, "limit", 50))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "runs": runs})
}

func (r *Router) handleBacktest(c *gin.Context) {
	run, err := r.cfg.Backtests.Run(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, run)
}

func (r *Router) handleBacktestTrades(c *gin.Context) {
	trades, err := r.cfg.Backtests.RunTrades(c.Request.Context(), c.Param("id"))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(trades), "trades": trades})
}

func (r *Router) handleListAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rules": r.cfg.Alerts.Rules()})
}

func (r *Router) handleAddAlert(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBody))
	if err != nil {
		badRequest(c, err)
		return
	}
	rule, err := alert.ParseRule(body)
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusCreated, r.cfg.Alerts.Add(rule))
}

func (r *Router) handleClearAlerts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"removed": r.cfg.Alerts.Clear()})
}

func (r *Router) handleRemoveAlert(c *gin.Context) {
	if !r.cfg.Alerts.Remove(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": true})
}

// handleCheckAlerts evaluates all registered rules against current
// prices and pair z-scores.
func (r *Router) handleCheckAlerts(c *gin.Context) {
	ctx := c.Request.Context()
	rules := r.cfg.Alerts.Rules()
	var observations []alert.Observation
	seenPairs := make(map[string]bool)
	for _, rule := range rules {
		switch rule.Kind {
		case alert.KindPrice:
			if price, ok := r.cfg.Store.RecentPrice(ctx, rule.Symbol); ok {
				observations = append(observations, alert.Observation{
					Kind:   alert.KindPrice,
					Symbol: rule.Symbol,
					Value:  price,
				})
			}
		case alert.KindZScore:
			key := rule.Symbol + "|" + rule.Symbol2
			if seenPairs[key] {
				continue
			}
			seenPairs[key] = true
			pa, err := r.cfg.Backtests.Analyze(ctx, backtest.RunConfig{
				Symbol1: rule.Symbol,
				Symbol2: rule.Symbol2,
			})
			if err != nil || len(pa.ZScore) == 0 {
				continue
			}
			observations = append(observations, alert.Observation{
				Kind:    alert.KindZScore,
				Symbol:  rule.Symbol,
				Symbol2: rule.Symbol2,
				Value:   pa.ZScore[len(pa.ZScore)-1],
			})
		}
	}
	events := r.cfg.Alerts.Evaluate(observations)
	c.JSON(http.StatusOK, gin.H{"checked": len(rules), "fired": len(events), "events": events})
}

func (r *Router) handlePairChart(c *gin.Context) {
	pa, err := r.cfg.Backtests.Analyze(c.Request.Context(), r.pairConfigFromQuery(c))
	if err != nil {
		badRequest(c, err)
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := chart.RenderPair(c.Writer, pa); err != nil {
		internalError(c, err)
	}
}

func (r *Router) handleKlineChart(c *gin.Context) {
	symbol := querySymbol(c, "symbol")
	if symbol == "" {
		badRequest(c, errors.New("symbol is required"))
		return
	}
	tfKey := strings.TrimSpace(c.DefaultQuery("timeframe", r.cfg.DefaultTimeframe))
	tf, err := analytics.ParseTimeframe(tfKey)
	if err != nil {
		badRequest(c, err)
		return
	}
	candles, err := r.symbolCandles(c, symbol, tf)
	if err != nil {
		internalError(c, err)
		return
	}
	if len(candles) == 0 {
		c.JSON(http.StatusOK, gin.H{"insufficient_data": true})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := chart.RenderKline(c.Writer, symbol, tf.Key, candles); err != nil {
		internalError(c, err)
	}
}
