package controller

import (
	"context"

	"trading-platform-client/config"
	"trading-platform-client/internal/api"
	"trading-platform-client/internal/autotune"
	"trading-platform-client/internal/dto"
	"trading-platform-client/internal/request"
	"trading-platform-client/internal/runctx"
	"trading-platform-client/internal/schema"
	"trading-platform-client/pkg/logger"
	"trading-platform-client/pkg/utils"

	"golang.org/x/sync/errgroup"
)

// TuneResult carries a finished auto-tune run back to the UI turn that
// installs it.
type TuneResult struct {
	generation uint64
	Outcome    *autotune.Outcome
	Err        error
}

// Dashboard wires the main page: instrument/strategy selection, the
// single-value parameter form, auto-tune seeding, and the chart.
type Dashboard struct {
	log      *logger.Logger
	cfg      *config.Config
	api      api.Client
	engine   *schema.Engine
	builder  *request.Builder
	tuner    *autotune.Coordinator
	rc       *runctx.RunContext
	chart    ChartSink
	notifier Notifier

	// Form is the parameter form surface owned by this page.
	Form *schema.Surface

	strategies []dto.StrategyDescriptor
	symbols    []dto.SymbolEntry
	tunes      chan TuneResult
}

func NewDashboard(
	log *logger.Logger,
	cfg *config.Config,
	apiClient api.Client,
	engine *schema.Engine,
	builder *request.Builder,
	tuner *autotune.Coordinator,
	rc *runctx.RunContext,
	chart ChartSink,
	notifier Notifier,
) *Dashboard {
	return &Dashboard{
		log:      log,
		cfg:      cfg,
		api:      apiClient,
		engine:   engine,
		builder:  builder,
		tuner:    tuner,
		rc:       rc,
		chart:    chart,
		notifier: notifier,
		Form:     schema.NewSurface(),
		tunes:    make(chan TuneResult, 8),
	}
}

// Init loads the strategy and symbol catalogs in parallel and seeds the page
// from the RunContext.
func (d *Dashboard) Init(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		strategies, err := d.api.GetAvailableStrategies(gctx)
		if err != nil {
			return err
		}
		d.strategies = strategies
		return nil
	})
	g.Go(func() error {
		symbols, err := d.api.GetSymbols(gctx, d.rc.Exchange)
		if err != nil {
			return err
		}
		d.symbols = FilterSymbols(symbols, d.rc.Token)
		return nil
	})

	if err := g.Wait(); err != nil {
		d.notifier.NotifyError("load catalogs", err)
		return err
	}

	if d.rc.StrategyID == "" && len(d.strategies) > 0 {
		d.rc.SetStrategy(d.strategies[0].ID)
	}
	d.renderForm()
	return nil
}

// Strategies returns the fetched strategy catalog in display order.
func (d *Dashboard) Strategies() []dto.StrategyDescriptor {
	return d.strategies
}

// Symbols returns the whitelisted symbol list for the dropdown.
func (d *Dashboard) Symbols() []dto.SymbolEntry {
	return d.symbols
}

// Context exposes the page's RunContext to the UI layer.
func (d *Dashboard) Context() *runctx.RunContext {
	return d.rc
}

// SelectedStrategy resolves the RunContext strategy id against the catalog.
func (d *Dashboard) SelectedStrategy() (dto.StrategyDescriptor, bool) {
	for _, s := range d.strategies {
		if s.ID == d.rc.StrategyID {
			return s, true
		}
	}
	return dto.StrategyDescriptor{}, false
}

func (d *Dashboard) renderForm() {
	strat, ok := d.SelectedStrategy()
	if !ok {
		d.Form.Clear()
		return
	}
	d.engine.Render(d.Form, strat.Parameters, d.rc.StrategyParams, schema.ModeSingle)
}

// OnStrategySelected switches strategy, resets the form to defaults, and
// auto-tunes when configured to do so.
func (d *Dashboard) OnStrategySelected(ctx context.Context, strategyID string) {
	d.rc.SetStrategy(strategyID)
	d.renderForm()
	d.maybeAutoTune(ctx)
}

// OnSymbolSelected switches the instrument and refreshes dependent state.
func (d *Dashboard) OnSymbolSelected(ctx context.Context, token string) {
	symbol := token
	for _, s := range d.symbols {
		if s.Token == token {
			symbol = s.TradingSymbol
			break
		}
	}
	d.rc.SetInstrument(d.rc.Exchange, token, symbol)
	d.maybeAutoTune(ctx)
	d.RefreshChart(ctx)
}

// OnTimeframeChanged switches the bar period.
func (d *Dashboard) OnTimeframeChanged(ctx context.Context, timeframe string) {
	d.rc.SetTimeframe(timeframe)
	d.maybeAutoTune(ctx)
	d.RefreshChart(ctx)
}

func (d *Dashboard) maybeAutoTune(ctx context.Context) {
	if !d.cfg.AutoTune.ApplyOnSelectionChange {
		return
	}
	d.AutoTune(ctx)
}

// OnEnter runs the page-entry behavior: re-tune for the current selection
// when configured, then refresh the chart.
func (d *Dashboard) OnEnter(ctx context.Context) {
	d.maybeAutoTune(ctx)
	d.RefreshChart(ctx)
}

// TuneEvents delivers finished auto-tune runs. The UI loop feeds each one
// back through ApplyTuneOutcome.
func (d *Dashboard) TuneEvents() <-chan TuneResult {
	return d.tunes
}

// AutoTune seeds the parameter form with recommended values for the current
// (symbol, strategy, timeframe) selection. The tuning run polls off the UI
// loop so key handling and redraws keep working; the outcome comes back
// through TuneEvents.
func (d *Dashboard) AutoTune(ctx context.Context) {
	strat, ok := d.SelectedStrategy()
	if !ok || d.rc.Token == "" || len(strat.NumericParameters()) == 0 {
		return
	}

	gen := d.rc.Generation()
	utils.GoSafe(func() {
		outcome, err := d.tuner.Run(ctx, d.rc, strat)
		select {
		case d.tunes <- TuneResult{generation: gen, Outcome: outcome, Err: err}:
		default:
			d.log.Warn("auto-tune result dropped, consumer too slow")
		}
	})
}

// ApplyTuneOutcome installs a finished auto-tune run into the RunContext.
// Outcomes from a superseded selection are dropped.
func (d *Dashboard) ApplyTuneOutcome(ctx context.Context, res TuneResult) {
	if res.Err != nil {
		d.notifier.NotifyError("auto-tune", res.Err)
		return
	}
	if d.rc.Generation() != res.generation {
		return
	}
	if res.Outcome.Notice != "" {
		d.notifier.Notify(res.Outcome.Notice)
	}
	if len(res.Outcome.Params) > 0 {
		d.rc.SetParams(res.Outcome.Params)
	}
	d.renderForm()
	d.RefreshChart(ctx)
}

// ApplyForm reads the parameter form back into the RunContext.
func (d *Dashboard) ApplyForm(ctx context.Context) {
	strat, ok := d.SelectedStrategy()
	if !ok {
		return
	}

	values, err := d.engine.Read(d.Form, strat.Parameters)
	if err != nil {
		d.notifier.NotifyError("read parameters", err)
		return
	}
	resolved, err := d.builder.ResolveParams(strat.Parameters, values, d.rc.StrategyParams)
	if err != nil {
		d.notifier.NotifyError("resolve parameters", err)
		return
	}
	d.rc.SetParams(resolved)
	d.RefreshChart(ctx)
}

// RefreshChart fetches chart data for the current selection and renders it.
// A response arriving after the selection moved on is dropped silently.
func (d *Dashboard) RefreshChart(ctx context.Context) {
	if d.rc.Token == "" {
		return
	}

	gen := d.rc.Generation()
	req, err := d.builder.ChartRequest(d.rc)
	if err != nil {
		d.notifier.NotifyError("build chart request", err)
		return
	}

	resp, err := d.api.GetChartData(ctx, req)
	if d.rc.Generation() != gen {
		return
	}
	if err != nil {
		d.notifier.NotifyError("load chart", err)
		return
	}

	candles, indicators, markers := NormalizeChartData(d.log, resp)
	d.chart.Clear()
	d.chart.SetCandlesticks(candles)
	d.chart.SetIndicatorSeries(indicators)
	d.chart.SetTradeMarkers(markers)
	d.chart.FitVisibleRange()
}

// GoToBacktest hands a deep copy of the run context to the backtest page.
func (d *Dashboard) GoToBacktest() *runctx.RunContext {
	return d.rc.Clone()
}

// GoToOptimization hands a deep copy of the run context to the optimize page.
func (d *Dashboard) GoToOptimization() *runctx.RunContext {
	return d.rc.Clone()
}
