package controller

import (
	"context"
	"testing"
	"time"

	"trading-platform-client/config"
	"trading-platform-client/internal/autotune"
	"trading-platform-client/internal/dto"
	"trading-platform-client/internal/request"
	"trading-platform-client/internal/runctx"
	"trading-platform-client/internal/schema"
	"trading-platform-client/pkg/logger"
	"trading-platform-client/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tuneAPI serves a one-strategy catalog and a completed optimization whose
// winner is configurable. startGate, when set, parks StartOptimization until
// the test releases it.
type tuneAPI struct {
	startGate chan struct{}
	best      map[string]interface{}
}

func (s *tuneAPI) GetAvailableStrategies(ctx context.Context) ([]dto.StrategyDescriptor, error) {
	return []dto.StrategyDescriptor{{
		ID:   "ema_crossover",
		Name: "EMA Crossover",
		Parameters: []dto.ParameterDescriptor{
			{Name: "fast_ema_period", Type: dto.ParamInteger, Default: 10.0, MinValue: utils.ToPointer(2.0), MaxValue: utils.ToPointer(50.0), Step: utils.ToPointer(1.0)},
			{Name: "slow_ema_period", Type: dto.ParamInteger, Default: 30.0, MinValue: utils.ToPointer(5.0), MaxValue: utils.ToPointer(100.0), Step: utils.ToPointer(1.0)},
		},
	}}, nil
}

func (s *tuneAPI) GetSymbols(ctx context.Context, exchange string) ([]dto.SymbolEntry, error) {
	return []dto.SymbolEntry{{Token: "2885", TradingSymbol: "RELIANCE", Instrument: "EQ"}}, nil
}

func (s *tuneAPI) GetChartData(ctx context.Context, req *dto.ChartDataRequest) (*dto.ChartDataResponse, error) {
	return &dto.ChartDataResponse{OHLCData: make([]dto.OHLCBar, 300)}, nil
}

func (s *tuneAPI) RunBacktest(ctx context.Context, req *dto.BacktestRunRequest) (*dto.BacktestRunResponse, error) {
	return &dto.BacktestRunResponse{}, nil
}

func (s *tuneAPI) StartOptimization(ctx context.Context, req *dto.OptimizationStartRequest) (*dto.OptimizationStartResponse, error) {
	if s.startGate != nil {
		<-s.startGate
	}
	return &dto.OptimizationStartResponse{JobID: "tune-1", Status: dto.JobQueued}, nil
}

func (s *tuneAPI) GetOptimizationStatus(ctx context.Context, jobID string) (*dto.OptimizationStatusResponse, error) {
	return &dto.OptimizationStatusResponse{JobID: jobID, Status: dto.JobCompleted, ProgressPercentage: 100}, nil
}

func (s *tuneAPI) GetOptimizationResults(ctx context.Context, jobID string) (*dto.OptimizationResultsResponse, error) {
	return &dto.OptimizationResultsResponse{
		BestResult: &dto.OptimizationResultEntry{Parameters: s.best},
	}, nil
}

func (s *tuneAPI) DownloadOptimizationResults(ctx context.Context, jobID string) ([]byte, error) {
	return nil, nil
}

func (s *tuneAPI) CancelOptimization(ctx context.Context, jobID string) (*dto.CancelResponse, error) {
	return &dto.CancelResponse{Status: dto.CancelSuccessful, JobStatus: dto.JobCancelled}, nil
}

type nopChart struct{}

func (nopChart) SetCandlesticks(candles []Candle)             {}
func (nopChart) SetIndicatorSeries(series map[string][]Point) {}
func (nopChart) SetTradeMarkers(markers []Marker)             {}
func (nopChart) Clear()                                       {}
func (nopChart) FitVisibleRange()                             {}

func dashConfig(applyOnChange bool) *config.Config {
	return &config.Config{
		AutoTune: config.AutoTune{
			PollInterval:           time.Millisecond,
			MaxPollAttempts:        5,
			LookbackDays:           365,
			FallbackDataLength:     252,
			ApplyOnSelectionChange: applyOnChange,
		},
	}
}

func newDashboardPage(t *testing.T, apiClient *tuneAPI, applyOnChange bool) (*Dashboard, *runctx.RunContext, *recorderNotifier) {
	t.Helper()
	log := logger.NewNop()
	cfg := dashConfig(applyOnChange)
	notifier := &recorderNotifier{}
	rc := optContext()
	tuner := autotune.NewCoordinator(log, apiClient, cfg.AutoTune)
	d := NewDashboard(log, cfg, apiClient, schema.NewEngine(log), request.NewBuilder(log),
		tuner, rc, nopChart{}, notifier)
	require.NoError(t, d.Init(context.Background()))
	return d, rc, notifier
}

func awaitTune(t *testing.T, d *Dashboard) TuneResult {
	t.Helper()
	select {
	case res := <-d.TuneEvents():
		return res
	case <-time.After(time.Second):
		t.Fatal("no tune result arrived")
		return TuneResult{}
	}
}

func TestAutoTuneRunsOffTheUITurn(t *testing.T) {
	gate := make(chan struct{})
	apiClient := &tuneAPI{
		startGate: gate,
		best:      map[string]interface{}{"fast_ema_period": 12.0, "slow_ema_period": 48.0},
	}
	d, rc, notifier := newDashboardPage(t, apiClient, true)

	d.AutoTune(context.Background())

	// The tuning run is parked on the start RPC; AutoTune already returned,
	// so no result can exist yet.
	select {
	case <-d.TuneEvents():
		t.Fatal("tune finished before the backend responded")
	case <-time.After(20 * time.Millisecond):
	}

	close(gate)
	res := awaitTune(t, d)
	require.NoError(t, res.Err)
	d.ApplyTuneOutcome(context.Background(), res)

	assert.Equal(t, int64(12), rc.StrategyParams["fast_ema_period"])
	assert.Equal(t, int64(48), rc.StrategyParams["slow_ema_period"])
	assert.Empty(t, notifier.errors)
}

func TestApplyTuneOutcomeDropsStaleResult(t *testing.T) {
	apiClient := &tuneAPI{best: map[string]interface{}{"fast_ema_period": 12.0}}
	d, rc, _ := newDashboardPage(t, apiClient, true)

	d.AutoTune(context.Background())
	res := awaitTune(t, d)
	require.NoError(t, res.Err)

	// Selection moved on while the result was in the channel.
	rc.SetTimeframe("5min")
	d.ApplyTuneOutcome(context.Background(), res)

	assert.Empty(t, rc.StrategyParams)
}

func TestOnEnterTriggersAutoTune(t *testing.T) {
	apiClient := &tuneAPI{best: map[string]interface{}{"fast_ema_period": 12.0}}
	d, _, _ := newDashboardPage(t, apiClient, true)

	d.OnEnter(context.Background())
	res := awaitTune(t, d)
	require.NoError(t, res.Err)
	assert.True(t, res.Outcome.Applied)
}

func TestOnEnterSkipsTuneWhenDisabled(t *testing.T) {
	apiClient := &tuneAPI{best: map[string]interface{}{"fast_ema_period": 12.0}}
	d, _, _ := newDashboardPage(t, apiClient, false)

	d.OnEnter(context.Background())
	select {
	case <-d.TuneEvents():
		t.Fatal("tune ran despite apply_on_selection_change being off")
	case <-time.After(50 * time.Millisecond):
	}
}
