// Package chart renders the pair dashboard as a self-contained HTML
// page of echarts panels.
package chart

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"pairlab/internal/backtest"
	"pairlab/internal/market"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorLeg1          = "#3b82f6"
	colorLeg2          = "#fbbf24"
	colorSpread        = "#a78bfa"
	colorZScore        = "#22d3ee"
	colorThreshold     = "#fb7185"

	chartWidthPx = 1400
	panelHeight  = 420
)

// RenderPair writes the combined pair page: both price legs, the
// hedged spread and the z-score with entry/exit bands.
func RenderPair(w io.Writer, pa *backtest.PairAnalysis) error {
	if pa == nil || len(pa.Index) == 0 {
		return fmt.Errorf("no pair data to render")
	}
	xAxis := buildTimeAxis(pa.Index)
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = fmt.Sprintf("%s / %s", strings.ToUpper(pa.Config.Symbol1), strings.ToUpper(pa.Config.Symbol2))

	page.AddCharts(
		buildPriceChart(pa, xAxis),
		buildSpreadChart(pa, xAxis),
		buildZScoreChart(pa, xAxis),
	)
	return page.Render(w)
}

// RenderKline writes a single-symbol candlestick panel.
func RenderKline(w io.Writer, symbol, timeframe string, candles []market.Candle) error {
	if len(candles) == 0 {
		return fmt.Errorf("no candles to render")
	}
	xAxis := make([]string, len(candles))
	data := make([]opts.KlineData, len(candles))
	for i, c := range candles {
		xAxis[i] = time.UnixMilli(c.OpenTime).UTC().Format("01-02 15:04:05")
		data[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}
	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(panelInit()),
		charts.WithTitleOpts(opts.Title{
			Title:      fmt.Sprintf("%s %s", strings.ToUpper(symbol), timeframe),
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary, FontSize: 16},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	kline.SetSeriesOptions(
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:        colorBull,
			Color0:       colorBear,
			BorderColor:  colorBull,
			BorderColor0: colorBear,
		}),
	)
	kline.SetXAxis(xAxis)
	kline.AddSeries(strings.ToUpper(symbol), data)
	return kline.Render(w)
}

func panelInit() opts.Initialization {
	return opts.Initialization{
		Theme:           types.ThemeWesteros,
		Width:           fmt.Sprintf("%dpx", chartWidthPx),
		Height:          fmt.Sprintf("%dpx", panelHeight),
		BackgroundColor: colorBackground,
	}
}

func buildTimeAxis(index []int64) []string {
	x := make([]string, len(index))
	for i, ts := range index {
		x[i] = time.UnixMilli(ts).UTC().Format("01-02 15:04:05")
	}
	return x
}

func newLinePanel(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(panelInit()),
		charts.WithTitleOpts(opts.Title{
			Title:         title,
			Subtitle:      subtitle,
			Left:          "left",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 16},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetSeriesOptions(
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	return line
}

func buildPriceChart(pa *backtest.PairAnalysis, xAxis []string) *charts.Line {
	line := newLinePanel(
		fmt.Sprintf("%s vs %s", strings.ToUpper(pa.Config.Symbol1), strings.ToUpper(pa.Config.Symbol2)),
		fmt.Sprintf("timeframe %s | hedge ratio %.4f", pa.Config.Timeframe, pa.HedgeRatio.Ratio),
	)
	line.SetXAxis(xAxis)
	line.AddSeries(strings.ToUpper(pa.Config.Symbol1), toLineData(pa.Price1),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorLeg1, Width: 2}))
	line.AddSeries(strings.ToUpper(pa.Config.Symbol2), toLineData(pa.Price2),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorLeg2, Width: 2}))
	return line
}

func buildSpreadChart(pa *backtest.PairAnalysis, xAxis []string) *charts.Line {
	subtitle := "stationarity unknown"
	if pa.ADF != nil {
		verdict := "non-stationary"
		if pa.ADF.IsStationary {
			verdict = "stationary"
		}
		subtitle = fmt.Sprintf("ADF %.3f (p=%.4f) %s", pa.ADF.Statistic, pa.ADF.PValue, verdict)
	}
	line := newLinePanel("Hedged spread", subtitle)
	line.SetXAxis(xAxis)
	line.AddSeries("spread", toLineData(pa.Spread),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorSpread, Width: 2}))
	return line
}

func buildZScoreChart(pa *backtest.PairAnalysis, xAxis []string) *charts.Line {
	line := newLinePanel(
		"Spread z-score",
		fmt.Sprintf("window %d | entry ±%.2f exit %.2f | %d trades",
			pa.Config.RollingWindow, pa.Config.EntryThreshold, pa.Config.ExitThreshold, pa.Summary.Trades),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("zscore", toLineData(pa.ZScore),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorZScore, Width: 2}))
	line.AddSeries("entry", constantLine(pa.Config.EntryThreshold, len(xAxis)),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorThreshold, Width: 1, Type: "dashed"}))
	line.AddSeries("-entry", constantLine(-pa.Config.EntryThreshold, len(xAxis)),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorThreshold, Width: 1, Type: "dashed"}))
	line.AddSeries("exit", constantLine(pa.Config.ExitThreshold, len(xAxis)),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorTextSecondary, Width: 1, Type: "dotted"}))
	return line
}

func toLineData(values []float64) []opts.LineData {
	data := make([]opts.LineData, len(values))
	for i, v := range values {
		data[i] = opts.LineData{Value: v}
	}
	return data
}

func constantLine(v float64, n int) []opts.LineData {
	data := make([]opts.LineData, n)
	for i := range data {
		data[i] = opts.LineData{Value: v}
	}
	return data
}
