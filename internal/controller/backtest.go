package controller

import (
	"context"

	"trading-platform-client/internal/api"
	"trading-platform-client/internal/dto"
	"trading-platform-client/internal/request"
	"trading-platform-client/internal/runctx"
	"trading-platform-client/internal/schema"
	"trading-platform-client/pkg/logger"
)

// Backtest wires the backtest page: single-value parameter form, run
// trigger, and the metrics/trades/equity sinks.
type Backtest struct {
	log      *logger.Logger
	api      api.Client
	engine   *schema.Engine
	builder  *request.Builder
	rc       *runctx.RunContext
	metrics  MetricsSink
	trades   TradeTableSink
	curves   ChartSink
	notifier Notifier

	Form *schema.Surface

	strategies []dto.StrategyDescriptor
}

func NewBacktest(
	log *logger.Logger,
	apiClient api.Client,
	engine *schema.Engine,
	builder *request.Builder,
	rc *runctx.RunContext,
	metrics MetricsSink,
	trades TradeTableSink,
	curves ChartSink,
	notifier Notifier,
) *Backtest {
	return &Backtest{
		log:      log,
		api:      apiClient,
		engine:   engine,
		builder:  builder,
		rc:       rc,
		metrics:  metrics,
		trades:   trades,
		curves:   curves,
		notifier: notifier,
		Form:     schema.NewSurface(),
	}
}

// Init pre-populates the page from its RunContext copy.
func (b *Backtest) Init(ctx context.Context) error {
	strategies, err := b.api.GetAvailableStrategies(ctx)
	if err != nil {
		b.notifier.NotifyError("load strategies", err)
		return err
	}
	b.strategies = strategies
	b.renderForm()
	return nil
}

// Context exposes the page's RunContext to the UI layer.
func (b *Backtest) Context() *runctx.RunContext {
	return b.rc
}

func (b *Backtest) selectedStrategy() (dto.StrategyDescriptor, bool) {
	for _, s := range b.strategies {
		if s.ID == b.rc.StrategyID {
			return s, true
		}
	}
	return dto.StrategyDescriptor{}, false
}

func (b *Backtest) renderForm() {
	strat, ok := b.selectedStrategy()
	if !ok {
		b.Form.Clear()
		return
	}
	b.engine.Render(b.Form, strat.Parameters, b.rc.StrategyParams, schema.ModeSingle)
}

// Run reads the form, dispatches the backtest, and renders the outcome. The
// form is restored to an interactive state on every path out.
func (b *Backtest) Run(ctx context.Context) {
	strat, ok := b.selectedStrategy()
	if !ok {
		b.notifier.Notify("select a strategy before running a backtest")
		return
	}

	values, err := b.engine.Read(b.Form, strat.Parameters)
	if err != nil {
		b.notifier.NotifyError("read parameters", err)
		return
	}
	resolved, err := b.builder.ResolveParams(strat.Parameters, values, b.rc.StrategyParams)
	if err != nil {
		b.notifier.NotifyError("resolve parameters", err)
		return
	}
	b.rc.SetParams(resolved)

	gen := b.rc.Generation()
	req, err := b.builder.BacktestRequest(b.rc)
	if err != nil {
		b.notifier.NotifyError("build backtest request", err)
		return
	}

	resp, err := b.api.RunBacktest(ctx, req)
	if b.rc.Generation() != gen {
		return
	}
	if err != nil {
		b.notifier.NotifyError("run backtest", err)
		return
	}
	if resp.ErrorMessage != "" {
		b.notifier.Notify(resp.ErrorMessage)
		return
	}

	b.metrics.RenderMetrics(resp.PerformanceMetrics)
	b.trades.RenderTradeTable(resp.Trades)
	b.renderCurves(resp)

	if resp.SummaryMessage != "" {
		b.notifier.Notify(resp.SummaryMessage)
	}
}

func (b *Backtest) renderCurves(resp *dto.BacktestRunResponse) {
	series := make(map[string][]Point, 2)
	for name, curve := range map[string][]dto.SeriesPoint{
		"equity":   resp.EquityCurve,
		"drawdown": resp.DrawdownCurve,
	} {
		points := make([]Point, 0, len(curve))
		for _, pt := range curve {
			if !pt.Time.Valid {
				b.log.Warn("dropping curve point with unusable timestamp",
					logger.StringField("series", name),
				)
				continue
			}
			points = append(points, Point{Time: pt.Time.Unix, Value: pt.Value})
		}
		series[name] = points
	}

	b.curves.Clear()
	b.curves.SetIndicatorSeries(series)
	b.curves.FitVisibleRange()
}

// GoToDashboard hands a deep copy of the run context back to the dashboard.
func (b *Backtest) GoToDashboard() *runctx.RunContext {
	return b.rc.Clone()
}
