package watercast

import (
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-watercast/forecast"
	"github.com/aouyang1/go-watercast/pricing"
	"github.com/aouyang1/go-watercast/timedataset"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// DefaultPlotHistoryDays is the number of trailing history days drawn before the forecast
const DefaultPlotHistoryDays = 60

// LineTSeries generates an echart multi-line chart for some arbitrary day/value combination.
// Each series in y must have the same length as the input days. NaN values are drawn as
// gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: title,
			},
		),
	)

	xAxis := make([]string, len(t))
	for i, tPnt := range t {
		xAxis[i] = tPnt.Format(time.DateOnly)
	}

	line = line.SetXAxis(xAxis)
	for i, series := range seriesName {
		lineData := make([]opts.LineData, 0, len(y[i]))
		for _, val := range y[i] {
			if math.IsNaN(val) {
				lineData = append(lineData, opts.LineData{Value: "-"})
				continue
			}
			lineData = append(lineData, opts.LineData{Value: val})
		}
		line = line.AddSeries(series, lineData)
	}
	return line
}

// LineForecast plots the trailing history of tanker litres followed by the forecast and its
// base and residual components
func LineForecast(h *timedataset.History, res *forecast.Result, historyDays int) *charts.Line {
	tail := h.Tail(historyDays)
	actual, _ := tail.Values(timedataset.ColTarget)

	t := append([]time.Time(tail.Dates()), res.Dates()...)
	n := len(t)

	actualY := nanSeries(n)
	copy(actualY, actual)

	forecastY := nanSeries(n)
	baseY := nanSeries(n)
	residualY := nanSeries(n)
	offset := len(actual)
	for i, s := range res.Steps {
		forecastY[offset+i] = s.PredictedLitres
		baseY[offset+i] = s.Base
		residualY[offset+i] = s.Residual
	}

	return LineTSeries(
		"Tanker Litres Forecast",
		[]string{"Actual", "Forecast", "Base", "Residual"},
		t,
		[][]float64{actualY, forecastY, baseY, residualY},
	)
}

// BarCost plots the market and pre-booked cost of every forecasted day
func BarCost(b *pricing.Budget) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title: "Tanker Cost",
			},
		),
	)

	xAxis := make([]string, 0, len(b.Rows))
	market := make([]opts.BarData, 0, len(b.Rows))
	prebook := make([]opts.BarData, 0, len(b.Rows))
	savings := make([]opts.BarData, 0, len(b.Rows))
	for _, r := range b.Rows {
		xAxis = append(xAxis, r.Date.Format(time.DateOnly))
		market = append(market, opts.BarData{Value: r.MarketCost.Round(2).InexactFloat64()})
		prebook = append(prebook, opts.BarData{Value: r.PrebookCost.Round(2).InexactFloat64()})
		savings = append(savings, opts.BarData{Value: r.Savings.Round(2).InexactFloat64()})
	}

	bar.SetXAxis(xAxis).
		AddSeries("Market", market).
		AddSeries("Prebook", prebook).
		AddSeries("Savings", savings)
	return bar
}

// PlotReport uses the Apache Echarts library to render an html page of the forecast and its
// cost
func PlotReport(w io.Writer, h *timedataset.History, r *Report) error {
	page := components.NewPage()
	page.AddCharts(
		LineForecast(h, r.Forecast, DefaultPlotHistoryDays),
		BarCost(r.Budget),
	)
	return page.Render(w)
}

func nanSeries(n int) []float64 {
	y := make([]float64, n)
	for i := range y {
		y[i] = math.NaN()
	}
	return y
}
