package mockserver

import (
	"testing"
	"time"

	"trading-platform-client/internal/dto"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rangesFixture() []dto.ParameterRange {
	return []dto.ParameterRange{
		{Name: "fast_ema_period", StartValue: 2, EndValue: 5, Step: 1},
		{Name: "slow_ema_period", StartValue: 10, EndValue: 12, Step: 1},
	}
}

func startFixture() dto.OptimizationStartRequest {
	return dto.OptimizationStartRequest{
		StrategyID:       "ema_crossover",
		Exchange:         "NSE",
		Token:            "2885",
		StartDate:        "2025-01-01",
		EndDate:          "2025-06-30",
		Timeframe:        "D",
		InitialCapital:   100000,
		ParameterRanges:  rangesFixture(),
		MetricToOptimize: "net_pnl",
	}
}

// clockedStore pins the store to a controllable clock.
func clockedStore(t *testing.T) (*jobStore, *time.Time) {
	t.Helper()
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	store := newJobStore(10, time.Second)
	store.now = func() time.Time { return now }
	return store, &now
}

func TestJobProgressesWithTime(t *testing.T) {
	store, now := clockedStore(t)
	created := store.create(startFixture())

	status, ok := store.status(created.JobID)
	require.True(t, ok)
	assert.Equal(t, dto.JobQueued, status.Status)
	assert.Equal(t, float64(0), status.ProgressPercentage)
	assert.False(t, status.ResultsAvailable)

	*now = now.Add(5 * time.Second)
	status, _ = store.status(created.JobID)
	assert.Equal(t, dto.JobRunning, status.Status)
	assert.Equal(t, float64(50), status.ProgressPercentage)

	*now = now.Add(10 * time.Second)
	status, _ = store.status(created.JobID)
	assert.Equal(t, dto.JobCompleted, status.Status)
	assert.Equal(t, float64(100), status.ProgressPercentage)
	assert.True(t, status.ResultsAvailable)
}

func TestResultsEnumerateGrid(t *testing.T) {
	store, now := clockedStore(t)
	created := store.create(startFixture())
	*now = now.Add(time.Minute)

	results, found, ready := store.results(created.JobID)
	require.True(t, found)
	require.True(t, ready)

	// 4 fast values x 3 slow values.
	assert.Len(t, results.Results, 12)
	require.NotNil(t, results.BestResult)

	metric := results.BestResult.PerformanceMetrics["net_pnl"]
	for _, entry := range results.Results {
		assert.LessOrEqual(t, entry.PerformanceMetrics["net_pnl"], metric)
	}
}

func TestResultsNotReadyWhileRunning(t *testing.T) {
	store, now := clockedStore(t)
	created := store.create(startFixture())
	*now = now.Add(2 * time.Second)

	_, found, ready := store.results(created.JobID)
	assert.True(t, found)
	assert.False(t, ready)
}

func TestCancelDispositions(t *testing.T) {
	store, now := clockedStore(t)

	missing := store.cancel("nope")
	assert.Equal(t, dto.CancelJobNotFound, missing.Status)

	fresh := store.create(startFixture())
	resp := store.cancel(fresh.JobID)
	assert.Equal(t, dto.CancelSuccessful, resp.Status)
	assert.False(t, resp.ResultsAvailable)

	running := store.create(startFixture())
	*now = now.Add(3 * time.Second)
	resp = store.cancel(running.JobID)
	assert.Equal(t, dto.CancelSuccessful, resp.Status)
	assert.True(t, resp.ResultsAvailable)

	// Cancelled jobs freeze their progress; partial results stay readable.
	status, _ := store.status(running.JobID)
	assert.Equal(t, dto.JobCancelled, status.Status)
	assert.Equal(t, float64(30), status.ProgressPercentage)

	done := store.create(startFixture())
	*now = now.Add(time.Minute)
	resp = store.cancel(done.JobID)
	assert.Equal(t, dto.CancelErrorCannotCancelDone, resp.Status)
	assert.True(t, resp.ResultsAvailable)
}

func TestCSVRendersHeaderAndRows(t *testing.T) {
	store, now := clockedStore(t)
	created := store.create(startFixture())
	*now = now.Add(time.Minute)

	data, found, ready := store.csv(created.JobID)
	require.True(t, found)
	require.True(t, ready)

	text := string(data)
	assert.Contains(t, text, "fast_ema_period")
	assert.Contains(t, text, "net_pnl")
	// header + 12 combos
	assert.Equal(t, 13, len(splitLines(text)))
}

func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				lines = append(lines, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func TestSweepRemovesExpiredTerminalJobs(t *testing.T) {
	store, now := clockedStore(t)
	finished := store.create(startFixture())
	*now = now.Add(time.Hour)
	live := store.create(startFixture())

	removed := store.sweep(30 * time.Minute)
	assert.Equal(t, 1, removed)

	_, ok := store.status(finished.JobID)
	assert.False(t, ok)
	_, ok = store.status(live.JobID)
	assert.True(t, ok)
}
