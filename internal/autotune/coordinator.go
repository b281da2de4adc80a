package autotune

import (
	"context"
	"fmt"
	"time"

	"trading-platform-client/config"
	"trading-platform-client/internal/api"
	"trading-platform-client/internal/dto"
	"trading-platform-client/internal/request"
	"trading-platform-client/internal/runctx"
	"trading-platform-client/internal/schema"
	"trading-platform-client/pkg/logger"
	"trading-platform-client/pkg/utils"
)

// Outcome reports what auto-tune installed into the RunContext. Applied is
// true only when optimized parameters were installed; any fallback to
// descriptor defaults carries a user-visible Notice instead.
type Outcome struct {
	Applied bool
	Params  map[string]interface{}
	Notice  string
}

// Coordinator seeds the dashboard with recommended strategy parameters: it
// observes the dataset, synthesizes search ranges, runs an optimization job
// under a bounded polling budget, and installs the winner. Every failure
// mode degrades to descriptor defaults.
type Coordinator struct {
	log *logger.Logger
	api api.Client
	cfg config.AutoTune
}

func NewCoordinator(log *logger.Logger, apiClient api.Client, cfg config.AutoTune) *Coordinator {
	return &Coordinator{log: log, api: apiClient, cfg: cfg}
}

// Run executes the auto-tune sequence for the current selection and returns
// the parameters to install; the caller applies them on its own turn. Run
// works on a snapshot of the RunContext and only consults the live record's
// generation stamp, so it is safe to call off the UI loop. A result whose
// generation moved on mid-flight comes back as a discard notice.
func (a *Coordinator) Run(ctx context.Context, rc *runctx.RunContext, strat dto.StrategyDescriptor) (*Outcome, error) {
	gen := rc.Generation()
	sel := rc.Clone()

	numeric := strat.NumericParameters()
	if len(numeric) == 0 || sel.Token == "" {
		return &Outcome{Notice: "nothing to tune for this selection"}, nil
	}
	start, end := utils.DateWindow(time.Now(), a.cfg.LookbackDays)

	dataLen := a.datasetLength(ctx, sel, start, end)
	ranges := SynthesizeRanges(numeric, dataLen)

	req := &dto.OptimizationStartRequest{
		StrategyID:       strat.ID,
		Exchange:         sel.Exchange,
		Token:            sel.Token,
		StartDate:        utils.FormatDate(start),
		EndDate:          utils.FormatDate(end),
		Timeframe:        request.NormalizeTimeframe(sel.Timeframe),
		InitialCapital:   sel.InitialCapital,
		ParameterRanges:  ranges,
		MetricToOptimize: sel.MetricToOptimize,
	}

	started, err := a.api.StartOptimization(ctx, req)
	if err != nil {
		a.log.WarnContext(ctx, "auto-tune start failed, using defaults",
			logger.StringField("strategy", strat.ID),
			logger.ErrorField(err),
		)
		return a.fallback(strat, fmt.Sprintf("auto-tune could not start: %v", err)), nil
	}

	a.log.InfoContext(ctx, "auto-tune job started",
		logger.StringField("strategy", strat.ID),
		logger.StringField("job_id", started.JobID),
		logger.IntField("dataset_length", dataLen),
	)

	for attempt := 0; attempt < a.cfg.MaxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(a.cfg.PollInterval):
		}

		if rc.Generation() != gen {
			a.log.InfoContext(ctx, "selection changed during auto-tune, discarding",
				logger.StringField("job_id", started.JobID),
			)
			return &Outcome{Notice: "selection changed, auto-tune discarded"}, nil
		}
		if !utils.ShouldContinue(ctx, a.log) {
			return nil, ctx.Err()
		}

		status, err := a.api.GetOptimizationStatus(ctx, started.JobID)
		if err != nil {
			return a.fallback(strat, fmt.Sprintf("auto-tune polling failed: %v", err)), nil
		}

		if status.Status == dto.JobCompleted {
			return a.applyBest(ctx, rc, strat, gen, started.JobID)
		}
		if status.Status.IsTerminal() {
			return a.fallback(strat, fmt.Sprintf("auto-tune job ended %s: %s", status.Status, status.Message)), nil
		}
	}

	return a.fallback(strat, "auto-tune timed out, using defaults"), nil
}

// datasetLength pre-fetches raw OHLC for the window to observe how many bars
// the backend actually has. Any failure falls back to the configured length.
func (a *Coordinator) datasetLength(ctx context.Context, rc *runctx.RunContext, start, end time.Time) int {
	req := &dto.ChartDataRequest{
		Exchange:       rc.Exchange,
		Token:          rc.Token,
		Timeframe:      request.NormalizeTimeframe(rc.Timeframe),
		StrategyParams: map[string]interface{}{},
		StartDate:      utils.FormatDate(start),
		EndDate:        utils.FormatDate(end),
	}

	resp, err := a.api.GetChartData(ctx, req)
	if err != nil || len(resp.OHLCData) == 0 {
		a.log.DebugContext(ctx, "dataset prefetch unavailable, using fallback length",
			logger.IntField("fallback", a.cfg.FallbackDataLength),
		)
		return a.cfg.FallbackDataLength
	}
	return len(resp.OHLCData)
}

func (a *Coordinator) applyBest(ctx context.Context, rc *runctx.RunContext, strat dto.StrategyDescriptor, gen uint64, jobID string) (*Outcome, error) {
	results, err := a.api.GetOptimizationResults(ctx, jobID)
	if err != nil {
		return a.fallback(strat, fmt.Sprintf("auto-tune results fetch failed: %v", err)), nil
	}
	if results.BestResult == nil || len(results.BestResult.Parameters) == 0 {
		return a.fallback(strat, "auto-tune produced no best result"), nil
	}

	tuned := make(map[string]interface{}, len(strat.Parameters))
	for _, p := range strat.Parameters {
		raw, ok := results.BestResult.Parameters[p.Name]
		if !ok {
			if p.Default != nil {
				if coerced, err := schema.CoerceAny(p.Default, p.Type); err == nil {
					tuned[p.Name] = coerced
				}
			}
			continue
		}
		coerced, err := schema.CoerceAny(raw, p.Type)
		if err != nil {
			return a.fallback(strat, fmt.Sprintf("auto-tune returned bad value for %s: %v", p.Name, err)), nil
		}
		tuned[p.Name] = coerced
	}

	if rc.Generation() != gen {
		return &Outcome{Notice: "selection changed, auto-tune discarded"}, nil
	}
	return &Outcome{Applied: true, Params: tuned}, nil
}

// fallback hands back descriptor defaults for the caller to install.
func (a *Coordinator) fallback(strat dto.StrategyDescriptor, notice string) *Outcome {
	defaults := make(map[string]interface{}, len(strat.Parameters))
	for _, p := range strat.Parameters {
		if p.Default == nil {
			continue
		}
		if coerced, err := schema.CoerceAny(p.Default, p.Type); err == nil {
			defaults[p.Name] = coerced
		}
	}

	return &Outcome{Params: defaults, Notice: notice}
}
