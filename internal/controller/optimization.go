package controller

import (
	"context"

	"trading-platform-client/internal/api"
	"trading-platform-client/internal/dto"
	"trading-platform-client/internal/job"
	"trading-platform-client/internal/request"
	"trading-platform-client/internal/runctx"
	"trading-platform-client/internal/schema"
	"trading-platform-client/pkg/logger"
)

// Optimization wires the optimization page: the range form, the job
// controller, and the progress/results chrome.
type Optimization struct {
	log      *logger.Logger
	api      api.Client
	engine   *schema.Engine
	builder  *request.Builder
	rc       *runctx.RunContext
	jobs     *job.Controller
	sink     OptimizationSink
	notifier Notifier

	Form *schema.Surface

	showResultsTable bool
	downloadDir      string

	strategies []dto.StrategyDescriptor
}

func NewOptimization(
	log *logger.Logger,
	apiClient api.Client,
	engine *schema.Engine,
	builder *request.Builder,
	rc *runctx.RunContext,
	jobs *job.Controller,
	sink OptimizationSink,
	notifier Notifier,
	showResultsTable bool,
	downloadDir string,
) *Optimization {
	return &Optimization{
		log:              log,
		api:              apiClient,
		engine:           engine,
		builder:          builder,
		rc:               rc,
		jobs:             jobs,
		sink:             sink,
		notifier:         notifier,
		Form:             schema.NewSurface(),
		showResultsTable: showResultsTable,
		downloadDir:      downloadDir,
	}
}

// Init pre-populates the range form from the RunContext copy.
func (o *Optimization) Init(ctx context.Context) error {
	strategies, err := o.api.GetAvailableStrategies(ctx)
	if err != nil {
		o.notifier.NotifyError("load strategies", err)
		return err
	}
	o.strategies = strategies
	o.renderForm()
	o.sink.SetRunning(false)
	o.sink.ShowDownload(false)
	return nil
}

// Context exposes the page's RunContext to the UI layer.
func (o *Optimization) Context() *runctx.RunContext {
	return o.rc
}

// Jobs exposes the job controller's event stream to the UI loop.
func (o *Optimization) Jobs() *job.Controller {
	return o.jobs
}

func (o *Optimization) selectedStrategy() (dto.StrategyDescriptor, bool) {
	for _, s := range o.strategies {
		if s.ID == o.rc.StrategyID {
			return s, true
		}
	}
	return dto.StrategyDescriptor{}, false
}

func (o *Optimization) renderForm() {
	strat, ok := o.selectedStrategy()
	if !ok {
		o.Form.Clear()
		return
	}
	o.engine.Render(o.Form, strat.Parameters, o.rc.StrategyParams, schema.ModeRange)
}

// Start validates the range form and submits the optimization job. Nothing
// is dispatched when validation fails; the notice names the parameter.
func (o *Optimization) Start(ctx context.Context) {
	strat, ok := o.selectedStrategy()
	if !ok {
		o.notifier.Notify("select a strategy before optimizing")
		return
	}

	ranges, err := o.engine.ReadRanges(o.Form, strat.Parameters)
	if err != nil {
		o.notifier.NotifyError("read parameter ranges", err)
		return
	}
	req, err := o.builder.OptimizationRequest(o.rc, strat.Parameters, ranges)
	if err != nil {
		o.notifier.NotifyError("validate parameter ranges", err)
		return
	}

	o.sink.ShowDownload(false)
	o.sink.RenderBestResult(nil, o.rc.MetricToOptimize)
	if err := o.jobs.Start(ctx, req); err != nil {
		o.notifier.NotifyError("start optimization", err)
		o.sink.SetRunning(false)
		return
	}
	o.sink.SetRunning(true)
}

// HandleEvent applies one job-controller notification to the page chrome.
func (o *Optimization) HandleEvent(ev job.Event) {
	switch ev.State {
	case job.StatePolling:
		o.sink.ShowProgress(ev.JobID, ev.Status, ev.Progress, ev.Message)
		return
	case job.StateFailed:
		o.sink.SetRunning(false)
		if ev.Message != "" {
			o.notifier.Notify(ev.Message)
		}
	case job.StateError:
		o.sink.SetRunning(false)
		o.notifier.Notify(ev.Message)
	case job.StateCompleted, job.StateCancelled:
		o.sink.SetRunning(false)
		o.sink.ShowProgress(ev.JobID, ev.Status, ev.Progress, ev.Message)
	}

	if ev.Results != nil {
		o.renderResults(ev.Results)
	}
}

func (o *Optimization) renderResults(results *dto.OptimizationResultsResponse) {
	if len(results.Results) == 0 {
		o.sink.RenderBestResult(nil, o.rc.MetricToOptimize)
		o.sink.ShowDownload(false)
		return
	}

	o.sink.RenderBestResult(results.BestResult, o.rc.MetricToOptimize)
	if o.showResultsTable {
		o.sink.RenderResultsTable(results.Results, o.rc.MetricToOptimize)
	}
	o.sink.ShowDownload(true)
}

// Cancel stops the running job; local polling stops regardless of the
// server's disposition.
func (o *Optimization) Cancel(ctx context.Context) {
	if err := o.jobs.Cancel(ctx); err != nil {
		o.notifier.NotifyError("cancel optimization", err)
	}
	o.sink.SetRunning(false)
}

// Download saves the results CSV and tells the user where it went.
func (o *Optimization) Download(ctx context.Context) {
	path, err := o.jobs.Download(ctx, o.downloadDir)
	if err != nil {
		o.notifier.NotifyError("download results", err)
		return
	}
	o.notifier.Notify("results saved to " + path)
}

// GoToDashboard hands a deep copy of the run context back to the dashboard.
func (o *Optimization) GoToDashboard() *runctx.RunContext {
	return o.rc.Clone()
}
