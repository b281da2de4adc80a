package tui

import (
	"context"
	"fmt"
	"time"

	"trading-platform-client/config"
	"trading-platform-client/internal/api"
	"trading-platform-client/internal/autotune"
	"trading-platform-client/internal/controller"
	"trading-platform-client/internal/job"
	"trading-platform-client/internal/request"
	"trading-platform-client/internal/runctx"
	"trading-platform-client/internal/schema"
	"trading-platform-client/pkg/logger"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

type page int

const (
	pageDashboard page = iota
	pageBacktest
	pageOptimization
)

var timeframes = []string{"1min", "5min", "15min", "60min", "day"}

// App owns the three pages and the terminal event loop. Controllers never
// touch termui directly; they talk to the panel sinks.
type App struct {
	log *logger.Logger
	cfg *config.Config
	api api.Client

	engine  *schema.Engine
	builder *request.Builder
	tuner   *autotune.Coordinator
	jobs    *job.Controller

	dashboard    *controller.Dashboard
	backtest     *controller.Backtest
	optimization *controller.Optimization

	chart     *ChartPanel
	curves    *ChartPanel
	metrics   *MetricsPanel
	trades    *TradePanel
	optPanel  *OptimizationPanel
	notices   *NoticeBar
	dashForm  *FormView
	btForm    *FormView
	optForm   *FormView

	page         page
	strategyIdx  int
	symbolIdx    int
	timeframeIdx int
}

func NewApp(log *logger.Logger, cfg *config.Config, apiClient api.Client) *App {
	a := &App{
		log:      log,
		cfg:      cfg,
		api:      apiClient,
		engine:   schema.NewEngine(log),
		builder:  request.NewBuilder(log),
		tuner:    autotune.NewCoordinator(log, apiClient, cfg.AutoTune),
		jobs:     job.NewController(log, apiClient, cfg.Optimization.PollInterval),
		chart:    NewChartPanel(),
		curves:   NewChartPanel(),
		metrics:  NewMetricsPanel(),
		trades:   NewTradePanel(),
		optPanel: NewOptimizationPanel(),
		notices:  NewNoticeBar(log),
	}
	a.curves.plot.Title = "Equity / Drawdown"

	rc := runctx.New(cfg)
	a.dashboard = controller.NewDashboard(log, cfg, apiClient, a.engine, a.builder, a.tuner, rc, a.chart, a.notices)
	a.dashForm = NewFormView("Parameters", a.dashboard.Form)
	return a
}

// Run drives the terminal until quit or ctx cancellation.
func (a *App) Run(ctx context.Context) error {
	if err := ui.Init(); err != nil {
		return fmt.Errorf("failed to initialize terminal: %w", err)
	}
	defer ui.Close()

	if err := a.dashboard.Init(ctx); err != nil {
		return err
	}
	a.dashboard.OnEnter(ctx)
	a.draw()

	events := ui.PollEvents()
	redraw := time.NewTicker(250 * time.Millisecond)
	defer redraw.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-a.jobs.Events():
			if a.optimization != nil {
				a.optimization.HandleEvent(ev)
			}
			a.draw()
		case res := <-a.dashboard.TuneEvents():
			a.dashboard.ApplyTuneOutcome(ctx, res)
			a.draw()
		case <-redraw.C:
			a.draw()
		case e := <-events:
			if e.Type == ui.ResizeEvent {
				a.draw()
				continue
			}
			if e.Type != ui.KeyboardEvent {
				continue
			}
			if quit := a.handleKey(ctx, e.ID); quit {
				return nil
			}
			a.draw()
		}
	}
}

func (a *App) activeForm() *FormView {
	switch a.page {
	case pageBacktest:
		return a.btForm
	case pageOptimization:
		return a.optForm
	default:
		return a.dashForm
	}
}

func (a *App) handleKey(ctx context.Context, key string) bool {
	form := a.activeForm()
	if form != nil && form.Editing() {
		switch key {
		case "<Escape>":
			form.CancelEdit()
		case "<Enter>":
			form.CommitEdit()
		default:
			form.Type(key)
		}
		return false
	}

	switch key {
	case "q", "<C-c>":
		return true
	case "1":
		a.switchTo(ctx, pageDashboard)
	case "2":
		a.switchTo(ctx, pageBacktest)
	case "3":
		a.switchTo(ctx, pageOptimization)
	case "<Down>", "<Tab>":
		if form != nil {
			form.Next()
		}
	case "<Up>":
		if form != nil {
			form.Prev()
		}
	case "e", "<Enter>":
		if form != nil {
			form.BeginEdit()
		}
	case "<Escape>":
		a.notices.Dismiss()
	default:
		a.handleAction(ctx, key)
	}
	return false
}

func (a *App) handleAction(ctx context.Context, key string) {
	switch a.page {
	case pageDashboard:
		a.handleDashboardKey(ctx, key)
	case pageBacktest:
		a.handleBacktestKey(ctx, key)
	case pageOptimization:
		a.handleOptimizationKey(ctx, key)
	}
}

func (a *App) handleDashboardKey(ctx context.Context, key string) {
	switch key {
	case "s":
		strategies := a.dashboard.Strategies()
		if len(strategies) == 0 {
			return
		}
		a.strategyIdx = (a.strategyIdx + 1) % len(strategies)
		a.dashboard.OnStrategySelected(ctx, strategies[a.strategyIdx].ID)
	case "y":
		symbols := a.dashboard.Symbols()
		if len(symbols) == 0 {
			return
		}
		a.symbolIdx = (a.symbolIdx + 1) % len(symbols)
		sym := symbols[a.symbolIdx]
		a.dashboard.OnSymbolSelected(ctx, sym.Token)
	case "t":
		a.timeframeIdx = (a.timeframeIdx + 1) % len(timeframes)
		a.dashboard.OnTimeframeChanged(ctx, timeframes[a.timeframeIdx])
	case "a":
		a.dashboard.AutoTune(ctx)
	case "p":
		a.dashboard.ApplyForm(ctx)
	case "r":
		a.dashboard.RefreshChart(ctx)
	}
}

func (a *App) handleBacktestKey(ctx context.Context, key string) {
	if a.backtest == nil {
		return
	}
	switch key {
	case "r":
		a.backtest.Run(ctx)
	}
}

func (a *App) handleOptimizationKey(ctx context.Context, key string) {
	if a.optimization == nil {
		return
	}
	switch key {
	case "o":
		a.optimization.Start(ctx)
	case "c":
		a.optimization.Cancel(ctx)
	case "d":
		a.optimization.Download(ctx)
	}
}

// switchTo hands the current run context to the target page as a snapshot
// copy, the way page navigation does.
func (a *App) switchTo(ctx context.Context, target page) {
	if target == a.page {
		return
	}
	a.page = target

	switch target {
	case pageBacktest:
		rc := a.dashboard.GoToBacktest()
		a.backtest = controller.NewBacktest(a.log, a.api, a.engine, a.builder, rc,
			a.metrics, a.trades, a.curves, a.notices)
		a.btForm = NewFormView("Parameters", a.backtest.Form)
		if err := a.backtest.Init(ctx); err != nil {
			a.log.WarnContext(ctx, "backtest page init failed", logger.ErrorField(err))
		}
	case pageOptimization:
		rc := a.dashboard.GoToOptimization()
		a.optimization = controller.NewOptimization(a.log, a.api, a.engine, a.builder, rc,
			a.jobs, a.optPanel, a.notices, a.cfg.UI.ShowResultsTable, a.cfg.Optimization.DownloadDir)
		a.optForm = NewFormView("Parameter Ranges", a.optimization.Form)
		if err := a.optimization.Init(ctx); err != nil {
			a.log.WarnContext(ctx, "optimization page init failed", logger.ErrorField(err))
		}
	case pageDashboard:
		a.dashboard.OnEnter(ctx)
	}
}

func (a *App) header() string {
	rc := a.dashboard.Context()
	name := ""
	if strat, ok := a.dashboard.SelectedStrategy(); ok {
		name = strat.Name
	}
	pages := map[page]string{
		pageDashboard:    "[1:Dashboard] 2:Backtest 3:Optimization",
		pageBacktest:     "1:Dashboard [2:Backtest] 3:Optimization",
		pageOptimization: "1:Dashboard 2:Backtest [3:Optimization]",
	}
	return fmt.Sprintf("%s | %s %s tf=%s strategy=%s | q:quit e:edit s/y/t:cycle a:tune r:run o:optimize",
		pages[a.page], rc.Exchange, rc.Symbol, rc.Timeframe, name)
}

func (a *App) layoutHeader(width int) []ui.Drawable {
	header := widgets.NewParagraph()
	header.Text = a.header()
	header.Border = true
	header.SetRect(0, 0, width, 3)
	return []ui.Drawable{header}
}

func (a *App) draw() {
	width, height := ui.TerminalDimensions()
	items := a.layoutHeader(width)

	switch a.page {
	case pageDashboard:
		items = append(items, a.dashForm.layout(0, 3, 36, height-3)...)
		items = append(items, a.chart.layout(36, 3, width, height-3)...)
	case pageBacktest:
		if a.btForm != nil {
			items = append(items, a.btForm.layout(0, 3, 36, height/2)...)
		}
		items = append(items, a.metrics.layout(0, height/2, 36, height-3)...)
		items = append(items, a.curves.layout(36, 3, width, height/2)...)
		items = append(items, a.trades.layout(36, height/2, width, height-3)...)
	case pageOptimization:
		if a.optForm != nil {
			items = append(items, a.optForm.layout(0, 3, 36, height-3)...)
		}
		items = append(items, a.optPanel.layout(36, 3, width, height-6)...)
	}

	items = append(items, a.notices.layout(0, height-3, width, height)...)
	ui.Clear()
	ui.Render(items...)
}
