package controller

import "trading-platform-client/internal/dto"

// Candle is an OHLC bar after timestamp normalization, time in UTC epoch
// seconds.
type Candle struct {
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type Point struct {
	Time  int64
	Value float64
}

type Marker struct {
	Time     int64
	AboveBar bool
	Shape    string
	Color    string
	Text     string
}

// ChartSink is the rendering surface for price series. Implementations are
// opaque to the controllers; the terminal UI provides one, tests record into
// one.
type ChartSink interface {
	SetCandlesticks(candles []Candle)
	SetIndicatorSeries(series map[string][]Point)
	SetTradeMarkers(markers []Marker)
	Clear()
	FitVisibleRange()
}

type MetricsSink interface {
	RenderMetrics(metrics map[string]float64)
}

type TradeTableSink interface {
	RenderTradeTable(trades []dto.BacktestTrade)
}

// OptimizationSink renders the optimization page chrome. RenderBestResult
// with a nil entry hides the best-result panel.
type OptimizationSink interface {
	ShowProgress(jobID string, status dto.JobStatus, progress float64, message string)
	RenderBestResult(best *dto.OptimizationResultEntry, metric string)
	RenderResultsTable(results []dto.OptimizationResultEntry, metric string)
	ShowDownload(visible bool)
	SetRunning(running bool)
}

// Notifier surfaces dismissible user notices; no error is fatal to a page.
type Notifier interface {
	Notify(message string)
	NotifyError(operation string, err error)
}
