package mockserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trading-platform-client/config"
	"trading-platform-client/internal/api"
	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/cache"
	"trading-platform-client/pkg/httpclient"
	"trading-platform-client/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	log, err := logger.New("error", "console")
	require.NoError(t, err)

	s := NewServer(config.MockServer{
		Port:            0,
		JobTTL:          time.Minute,
		ProgressPerTick: 100,
		TickInterval:    time.Millisecond,
	}, log)
	return s
}

func do(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echoHeaderContentType, "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestStrategyCatalogEndpoint(t *testing.T) {
	s := testServer(t)
	rec := do(t, s, http.MethodGet, "/strategies/available", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.StrategiesResponse
	decodeInto(t, rec, &resp)
	require.NotEmpty(t, resp.Strategies)

	ids := make(map[string]bool)
	for _, strat := range resp.Strategies {
		ids[strat.ID] = true
		assert.NotEmpty(t, strat.Parameters)
	}
	assert.True(t, ids["ema_crossover"])
}

func TestSymbolsEndpoint(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodGet, "/symbols/NSE", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var symbols []dto.SymbolEntry
	decodeInto(t, rec, &symbols)
	assert.NotEmpty(t, symbols)

	rec = do(t, s, http.MethodGet, "/symbols/NASDAQ", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChartDataValidation(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodPost, "/chart_data_with_strategy", dto.ChartDataRequest{
		Exchange:  "NSE",
		Token:     "2885",
		Timeframe: "D",
		StartDate: "2025-06-30",
		EndDate:   "2025-01-01",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "detail")
}

func TestChartDataWithStrategyIncludesOverlays(t *testing.T) {
	s := testServer(t)
	strategy := "ema_crossover"

	rec := do(t, s, http.MethodPost, "/chart_data_with_strategy", dto.ChartDataRequest{
		Exchange:   "NSE",
		Token:      "2885",
		Timeframe:  "D",
		StartDate:  "2025-01-01",
		EndDate:    "2025-06-30",
		StrategyID: &strategy,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.ChartDataResponse
	decodeInto(t, rec, &resp)
	assert.NotEmpty(t, resp.OHLCData)
	assert.NotEmpty(t, resp.IndicatorData)
	assert.NotEmpty(t, resp.TradeMarkers)
}

func TestChartDataWithoutStrategySkipsOverlays(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodPost, "/chart_data_with_strategy", dto.ChartDataRequest{
		Exchange:  "NSE",
		Token:     "2885",
		Timeframe: "D",
		StartDate: "2025-01-01",
		EndDate:   "2025-06-30",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.ChartDataResponse
	decodeInto(t, rec, &resp)
	assert.NotEmpty(t, resp.OHLCData)
	assert.Empty(t, resp.IndicatorData)
	assert.Empty(t, resp.TradeMarkers)
}

func TestBacktestEndpoint(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodPost, "/backtest/run", dto.BacktestRunRequest{
		StrategyID:     "ema_crossover",
		Exchange:       "NSE",
		Token:          "2885",
		StartDate:      "2025-01-01",
		EndDate:        "2025-06-30",
		Timeframe:      "D",
		InitialCapital: 100000,
		Parameters:     map[string]interface{}{"fast_ema_period": 10},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.BacktestRunResponse
	decodeInto(t, rec, &resp)
	assert.NotEmpty(t, resp.PerformanceMetrics)
	assert.NotEmpty(t, resp.EquityCurve)
	assert.NotEmpty(t, resp.SummaryMessage)
}

func TestOptimizationLifecycle(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodPost, "/optimize/start", startFixture())
	require.Equal(t, http.StatusOK, rec.Code)

	var started dto.OptimizationStartResponse
	decodeInto(t, rec, &started)
	require.NotEmpty(t, started.JobID)

	// With one tick per millisecond at 100%/tick the job completes almost
	// immediately.
	time.Sleep(5 * time.Millisecond)

	rec = do(t, s, http.MethodGet, "/optimize/status/"+started.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status dto.OptimizationStatusResponse
	decodeInto(t, rec, &status)
	assert.Equal(t, dto.JobCompleted, status.Status)
	assert.True(t, status.ResultsAvailable)

	rec = do(t, s, http.MethodGet, "/optimize/results/"+started.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results dto.OptimizationResultsResponse
	decodeInto(t, rec, &results)
	assert.NotEmpty(t, results.Results)
	assert.NotNil(t, results.BestResult)

	rec = do(t, s, http.MethodGet, "/optimize/results/"+started.JobID+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Body.String(), "net_pnl")

	rec = do(t, s, http.MethodPost, "/optimize/cancel/"+started.JobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancel dto.CancelResponse
	decodeInto(t, rec, &cancel)
	assert.Equal(t, dto.CancelErrorCannotCancelDone, cancel.Status)
}

func TestOptimizationStartRejectsBadRange(t *testing.T) {
	s := testServer(t)

	req := startFixture()
	req.ParameterRanges[0].Step = 0
	rec := do(t, s, http.MethodPost, "/optimize/start", req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid range for parameter fast_ema_period")
}

func TestOptimizationResultsBeforeCompletion(t *testing.T) {
	s := testServer(t)
	s.jobs.perTick = 0.000001
	s.jobs.tick = time.Hour

	rec := do(t, s, http.MethodPost, "/optimize/start", startFixture())
	require.Equal(t, http.StatusOK, rec.Code)
	var started dto.OptimizationStartResponse
	decodeInto(t, rec, &started)

	rec = do(t, s, http.MethodGet, "/optimize/results/"+started.JobID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// The API client and the mock server must agree on the endpoint paths, so a
// real client pointed at the served handler exercises the whole contract.
func TestAPIClientAgainstServer(t *testing.T) {
	s := testServer(t)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	transport := httpclient.New(logger.NewNop(), ts.URL, 5*time.Second, "")
	client := api.NewClientWithHTTP(transport, logger.NewNop(), cache.NewCache(time.Minute, time.Minute), time.Minute)
	ctx := context.Background()

	strategies, err := client.GetAvailableStrategies(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, strategies)

	symbols, err := client.GetSymbols(ctx, "NSE")
	require.NoError(t, err)
	assert.NotEmpty(t, symbols)

	req := startFixture()
	started, err := client.StartOptimization(ctx, &req)
	require.NoError(t, err)
	require.NotEmpty(t, started.JobID)

	time.Sleep(5 * time.Millisecond)

	status, err := client.GetOptimizationStatus(ctx, started.JobID)
	require.NoError(t, err)
	assert.Equal(t, dto.JobCompleted, status.Status)

	results, err := client.GetOptimizationResults(ctx, started.JobID)
	require.NoError(t, err)
	assert.NotEmpty(t, results.Results)

	data, err := client.DownloadOptimizationResults(ctx, started.JobID)
	require.NoError(t, err)
	assert.Contains(t, string(data), "net_pnl")

	cancel, err := client.CancelOptimization(ctx, started.JobID)
	require.NoError(t, err)
	assert.Equal(t, dto.CancelErrorCannotCancelDone, cancel.Status)
}

func TestUnknownJobIs404(t *testing.T) {
	s := testServer(t)

	rec := do(t, s, http.MethodGet, "/optimize/status/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodGet, "/optimize/results/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/optimize/cancel/missing", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cancel dto.CancelResponse
	decodeInto(t, rec, &cancel)
	assert.Equal(t, dto.CancelJobNotFound, cancel.Status)
}
