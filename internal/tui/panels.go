package tui

import (
	"fmt"
	"sort"
	"time"

	"trading-platform-client/internal/controller"
	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/logger"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

// ChartPanel draws the close price and indicator overlays with a plot widget
// and lists trade markers beside it.
type ChartPanel struct {
	plot    *widgets.Plot
	markers *widgets.List
}

func NewChartPanel() *ChartPanel {
	plot := widgets.NewPlot()
	plot.Title = "Price"
	plot.AxesColor = ui.ColorWhite
	plot.Marker = widgets.MarkerBraille

	markers := widgets.NewList()
	markers.Title = "Signals"
	markers.Rows = []string{}

	return &ChartPanel{plot: plot, markers: markers}
}

func (p *ChartPanel) SetCandlesticks(candles []controller.Candle) {
	series := make([]float64, 0, len(candles))
	for _, c := range candles {
		series = append(series, c.Close)
	}
	// Plot panics on series shorter than two points.
	if len(series) < 2 {
		series = nil
	}
	p.plot.Data = [][]float64{series}
	if series == nil {
		p.plot.Data = nil
	}
}

func (p *ChartPanel) SetIndicatorSeries(series map[string][]controller.Point) {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		points := series[name]
		if len(points) < 2 {
			continue
		}
		data := make([]float64, 0, len(points))
		for _, pt := range points {
			data = append(data, pt.Value)
		}
		p.plot.Data = append(p.plot.Data, data)
	}
}

func (p *ChartPanel) SetTradeMarkers(markers []controller.Marker) {
	rows := make([]string, 0, len(markers))
	for _, m := range markers {
		side := "below"
		if m.AboveBar {
			side = "above"
		}
		ts := time.Unix(m.Time, 0).UTC().Format("2006-01-02 15:04")
		rows = append(rows, fmt.Sprintf("%s  %-4s (%s)", ts, m.Text, side))
	}
	p.markers.Rows = rows
}

func (p *ChartPanel) Clear() {
	p.plot.Data = nil
	p.markers.Rows = []string{}
}

// FitVisibleRange is a no-op for the plot widget; it always fits its data.
func (p *ChartPanel) FitVisibleRange() {}

func (p *ChartPanel) layout(x1, y1, x2, y2 int) []ui.Drawable {
	split := x2 - 30
	if split < x1+20 {
		split = x2
	}
	p.plot.SetRect(x1, y1, split, y2)
	if split == x2 {
		return []ui.Drawable{p.plot}
	}
	p.markers.SetRect(split, y1, x2, y2)
	return []ui.Drawable{p.plot, p.markers}
}

// MetricsPanel prints performance metrics in a fixed order.
type MetricsPanel struct {
	par *widgets.Paragraph
}

func NewMetricsPanel() *MetricsPanel {
	par := widgets.NewParagraph()
	par.Title = "Performance"
	return &MetricsPanel{par: par}
}

func (p *MetricsPanel) RenderMetrics(metrics map[string]float64) {
	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	text := ""
	for _, name := range names {
		text += fmt.Sprintf("%-16s %12.2f\n", name, metrics[name])
	}
	p.par.Text = text
}

// TradePanel renders the backtest trade list.
type TradePanel struct {
	table *widgets.Table
}

func NewTradePanel() *TradePanel {
	table := widgets.NewTable()
	table.Title = "Trades"
	table.RowSeparator = false
	table.Rows = [][]string{tradeHeader()}
	return &TradePanel{table: table}
}

func tradeHeader() []string {
	return []string{"entry", "exit", "dir", "entry px", "exit px", "qty", "pnl"}
}

func (p *TradePanel) RenderTradeTable(trades []dto.BacktestTrade) {
	rows := [][]string{tradeHeader()}
	for _, t := range trades {
		rows = append(rows, []string{
			formatFlexTime(t.EntryTime),
			formatFlexTime(t.ExitTime),
			t.Direction,
			fmt.Sprintf("%.2f", t.EntryPrice),
			fmt.Sprintf("%.2f", t.ExitPrice),
			fmt.Sprintf("%.0f", t.Quantity),
			fmt.Sprintf("%.2f", t.PnL),
		})
	}
	p.table.Rows = rows
}

func formatFlexTime(t dto.FlexTime) string {
	if !t.Valid {
		return "-"
	}
	return time.Unix(t.Unix, 0).UTC().Format("2006-01-02")
}

// OptimizationPanel owns the progress gauge, best-result card, results table
// and the download hint line.
type OptimizationPanel struct {
	gauge    *widgets.Gauge
	best     *widgets.Paragraph
	results  *widgets.Table
	download *widgets.Paragraph

	running      bool
	bestVisible  bool
	downloadable bool
}

func NewOptimizationPanel() *OptimizationPanel {
	gauge := widgets.NewGauge()
	gauge.Title = "Optimization"
	gauge.Label = "idle"

	best := widgets.NewParagraph()
	best.Title = "Best Result"

	results := widgets.NewTable()
	results.Title = "Results"
	results.RowSeparator = false

	download := widgets.NewParagraph()
	download.Text = "press d to download results as CSV"

	return &OptimizationPanel{gauge: gauge, best: best, results: results, download: download}
}

func (p *OptimizationPanel) ShowProgress(jobID string, status dto.JobStatus, progress float64, message string) {
	p.gauge.Percent = int(progress)
	label := fmt.Sprintf("%s %.0f%%", status, progress)
	if message != "" {
		label += " - " + message
	}
	p.gauge.Label = label
	p.gauge.Title = "Optimization " + shortID(jobID)
}

func shortID(jobID string) string {
	if len(jobID) > 8 {
		return jobID[:8]
	}
	return jobID
}

func (p *OptimizationPanel) RenderBestResult(best *dto.OptimizationResultEntry, metric string) {
	if best == nil {
		p.bestVisible = false
		p.best.Text = ""
		return
	}
	p.bestVisible = true

	text := ""
	if score, ok := best.PerformanceMetrics[metric]; ok {
		text += fmt.Sprintf("%s: %.2f\n\n", metric, score)
	}
	names := make([]string, 0, len(best.Parameters))
	for name := range best.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		text += fmt.Sprintf("%-20s %v\n", name, best.Parameters[name])
	}
	p.best.Text = text
}

func (p *OptimizationPanel) RenderResultsTable(results []dto.OptimizationResultEntry, metric string) {
	if len(results) == 0 {
		p.results.Rows = nil
		return
	}

	var paramNames []string
	for name := range results[0].Parameters {
		paramNames = append(paramNames, name)
	}
	sort.Strings(paramNames)

	header := append(append([]string{}, paramNames...), metric)
	rows := [][]string{header}
	for i, entry := range results {
		if i >= 20 {
			break
		}
		row := make([]string, 0, len(header))
		for _, name := range paramNames {
			row = append(row, fmt.Sprintf("%v", entry.Parameters[name]))
		}
		row = append(row, fmt.Sprintf("%.2f", entry.PerformanceMetrics[metric]))
		rows = append(rows, row)
	}
	p.results.Rows = rows
}

func (p *OptimizationPanel) ShowDownload(visible bool) {
	p.downloadable = visible
}

func (p *OptimizationPanel) SetRunning(running bool) {
	p.running = running
	if !running && p.gauge.Label == "idle" {
		p.gauge.Percent = 0
	}
}

func (p *OptimizationPanel) Running() bool {
	return p.running
}

func (p *OptimizationPanel) layout(x1, y1, x2, y2 int) []ui.Drawable {
	p.gauge.SetRect(x1, y1, x2, y1+3)
	items := []ui.Drawable{p.gauge}

	top := y1 + 3
	if p.bestVisible {
		p.best.SetRect(x1, top, x1+40, y2)
		p.results.SetRect(x1+40, top, x2, y2)
		items = append(items, p.best, p.results)
	} else {
		p.results.SetRect(x1, top, x2, y2)
		items = append(items, p.results)
	}
	if p.downloadable {
		p.download.SetRect(x1, y2, x2, y2+3)
		items = append(items, p.download)
	}
	return items
}

// NoticeBar shows the latest dismissible notice and mirrors it to the log.
type NoticeBar struct {
	log *logger.Logger
	par *widgets.Paragraph
}

func NewNoticeBar(log *logger.Logger) *NoticeBar {
	par := widgets.NewParagraph()
	par.Title = "Notices"
	return &NoticeBar{log: log, par: par}
}

func (n *NoticeBar) Notify(message string) {
	n.par.Text = message
	n.log.Info("notice", logger.StringField("message", message))
}

func (n *NoticeBar) NotifyError(operation string, err error) {
	n.par.Text = fmt.Sprintf("[%s failed: %v](fg:red)", operation, err)
	n.log.Error("operation failed", logger.StringField("operation", operation), logger.ErrorField(err))
}

func (n *NoticeBar) Dismiss() {
	n.par.Text = ""
}

func (p *MetricsPanel) layout(x1, y1, x2, y2 int) []ui.Drawable {
	p.par.SetRect(x1, y1, x2, y2)
	return []ui.Drawable{p.par}
}

func (p *TradePanel) layout(x1, y1, x2, y2 int) []ui.Drawable {
	p.table.SetRect(x1, y1, x2, y2)
	return []ui.Drawable{p.table}
}

func (n *NoticeBar) layout(x1, y1, x2, y2 int) []ui.Drawable {
	n.par.SetRect(x1, y1, x2, y2)
	return []ui.Drawable{n.par}
}
