package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedClient struct {
	mu       sync.Mutex
	statuses []dto.OptimizationStatusResponse
	polls    int

	startErr   error
	statusErr  error
	// statusHold parks status polls until their context is cancelled;
	// statusEntered signals that a poll is in flight.
	statusHold    bool
	statusEntered chan struct{}
	results    *dto.OptimizationResultsResponse
	resultsErr error
	fetches    int
	cancelResp *dto.CancelResponse
	download   []byte
}

func (s *scriptedClient) GetAvailableStrategies(ctx context.Context) ([]dto.StrategyDescriptor, error) {
	return nil, nil
}

func (s *scriptedClient) GetSymbols(ctx context.Context, exchange string) ([]dto.SymbolEntry, error) {
	return nil, nil
}

func (s *scriptedClient) GetChartData(ctx context.Context, req *dto.ChartDataRequest) (*dto.ChartDataResponse, error) {
	return nil, nil
}

func (s *scriptedClient) RunBacktest(ctx context.Context, req *dto.BacktestRunRequest) (*dto.BacktestRunResponse, error) {
	return nil, nil
}

func (s *scriptedClient) StartOptimization(ctx context.Context, req *dto.OptimizationStartRequest) (*dto.OptimizationStartResponse, error) {
	if s.startErr != nil {
		return nil, s.startErr
	}
	return &dto.OptimizationStartResponse{JobID: "job-1", Status: dto.JobQueued}, nil
}

func (s *scriptedClient) GetOptimizationStatus(ctx context.Context, jobID string) (*dto.OptimizationStatusResponse, error) {
	if s.statusHold {
		select {
		case s.statusEntered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	idx := s.polls
	if idx >= len(s.statuses) {
		idx = len(s.statuses) - 1
	}
	s.polls++
	resp := s.statuses[idx]
	return &resp, nil
}

func (s *scriptedClient) GetOptimizationResults(ctx context.Context, jobID string) (*dto.OptimizationResultsResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.resultsErr != nil {
		return nil, s.resultsErr
	}
	return s.results, nil
}

func (s *scriptedClient) DownloadOptimizationResults(ctx context.Context, jobID string) ([]byte, error) {
	return s.download, nil
}

func (s *scriptedClient) CancelOptimization(ctx context.Context, jobID string) (*dto.CancelResponse, error) {
	return s.cancelResp, nil
}

func (s *scriptedClient) pollCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.polls
}

func (s *scriptedClient) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

func startRequest() *dto.OptimizationStartRequest {
	return &dto.OptimizationStartRequest{
		StrategyID:       "ema_crossover",
		Exchange:         "NSE",
		Token:            "2885",
		StartDate:        "2025-01-01",
		EndDate:          "2025-06-30",
		Timeframe:        "D",
		InitialCapital:   100000,
		ParameterRanges:  []dto.ParameterRange{{Name: "fast_ema_period", StartValue: 2, EndValue: 50, Step: 1}},
		MetricToOptimize: "net_pnl",
	}
}

func collect(t *testing.T, c *Controller, want int, timeout time.Duration) []Event {
	t.Helper()
	var events []Event
	deadline := time.After(timeout)
	for len(events) < want {
		select {
		case ev := <-c.Events():
			events = append(events, ev)
		case <-deadline:
			t.Fatalf("timed out after %d of %d events", len(events), want)
		}
	}
	return events
}

func TestPollUntilCompletedThenFetchResultsOnce(t *testing.T) {
	client := &scriptedClient{
		statuses: []dto.OptimizationStatusResponse{
			{JobID: "job-1", Status: dto.JobRunning, ProgressPercentage: 20},
			{JobID: "job-1", Status: dto.JobRunning, ProgressPercentage: 70},
			{JobID: "job-1", Status: dto.JobCompleted, ProgressPercentage: 100},
		},
		results: &dto.OptimizationResultsResponse{
			Results: []dto.OptimizationResultEntry{{Parameters: map[string]interface{}{"fast_ema_period": 12.0}}},
		},
	}

	c := NewController(logger.NewNop(), client, 5*time.Millisecond)
	require.NoError(t, c.Start(context.Background(), startRequest()))

	events := collect(t, c, 5, time.Second)

	assert.Equal(t, StatePolling, events[0].State)
	assert.Equal(t, float64(20), events[1].Progress)
	assert.Equal(t, float64(70), events[2].Progress)
	assert.Equal(t, StateCompleted, events[3].State)
	require.NotNil(t, events[4].Results)
	assert.Len(t, events[4].Results.Results, 1)

	assert.Eventually(t, func() bool { return !c.PollerActive() }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, client.pollCount())
	assert.Equal(t, 1, client.fetchCount())
	assert.Equal(t, StateCompleted, c.State())
}

func TestProgressNeverRegresses(t *testing.T) {
	client := &scriptedClient{
		statuses: []dto.OptimizationStatusResponse{
			{JobID: "job-1", Status: dto.JobRunning, ProgressPercentage: 60},
			{JobID: "job-1", Status: dto.JobRunning, ProgressPercentage: 40},
			{JobID: "job-1", Status: dto.JobFailed, ProgressPercentage: 0, Message: "worker died"},
		},
	}

	c := NewController(logger.NewNop(), client, 5*time.Millisecond)
	require.NoError(t, c.Start(context.Background(), startRequest()))

	events := collect(t, c, 4, time.Second)

	assert.Equal(t, float64(60), events[1].Progress)
	// Regressing server numbers are clamped to the high-water mark.
	assert.Equal(t, float64(60), events[2].Progress)
	assert.Equal(t, StateFailed, events[3].State)
	assert.Equal(t, "worker died", events[3].Message)
	assert.Equal(t, 0, client.fetchCount())
}

func TestPollErrorEmitsSyntheticError(t *testing.T) {
	client := &scriptedClient{statusErr: fmt.Errorf("connection refused")}

	c := NewController(logger.NewNop(), client, 5*time.Millisecond)
	require.NoError(t, c.Start(context.Background(), startRequest()))

	events := collect(t, c, 2, time.Second)

	assert.Equal(t, StateError, events[1].State)
	assert.Equal(t, dto.JobError, events[1].Status)
	assert.Equal(t, float64(0), events[1].Progress)
	assert.Contains(t, events[1].Message, "connection refused")
	assert.Eventually(t, func() bool { return !c.PollerActive() }, time.Second, 5*time.Millisecond)
}

func TestStartFailureSurfacesError(t *testing.T) {
	client := &scriptedClient{startErr: fmt.Errorf("bad request")}

	c := NewController(logger.NewNop(), client, 5*time.Millisecond)
	err := c.Start(context.Background(), startRequest())
	require.Error(t, err)

	events := collect(t, c, 1, time.Second)
	assert.Equal(t, StateError, events[0].State)
	assert.False(t, c.PollerActive())
}

func TestNewStartStopsPreviousPoller(t *testing.T) {
	client := &scriptedClient{
		statuses: []dto.OptimizationStatusResponse{
			{JobID: "job-1", Status: dto.JobRunning, ProgressPercentage: 10},
		},
	}

	c := NewController(logger.NewNop(), client, 5*time.Millisecond)
	require.NoError(t, c.Start(context.Background(), startRequest()))
	require.NoError(t, c.Start(context.Background(), startRequest()))

	// Exactly one poller may remain live for the second job.
	assert.True(t, c.PollerActive())
	assert.Equal(t, StatePolling, c.State())
}

func TestCancelWithAvailableResultsFetchesThem(t *testing.T) {
	client := &scriptedClient{
		statuses: []dto.OptimizationStatusResponse{
			{JobID: "job-1", Status: dto.JobRunning, ProgressPercentage: 30},
		},
		cancelResp: &dto.CancelResponse{
			Status:           dto.CancelSuccessful,
			JobStatus:        dto.JobCancelled,
			Message:          "job cancelled",
			ResultsAvailable: true,
		},
		results: &dto.OptimizationResultsResponse{
			Results: []dto.OptimizationResultEntry{{Parameters: map[string]interface{}{"fast_ema_period": 7.0}}},
		},
	}

	c := NewController(logger.NewNop(), client, time.Hour)
	require.NoError(t, c.Start(context.Background(), startRequest()))
	require.NoError(t, c.Cancel(context.Background()))

	events := collect(t, c, 3, time.Second)
	assert.Equal(t, StateCancelled, events[1].State)
	require.NotNil(t, events[2].Results)
	assert.False(t, c.PollerActive())
	assert.Equal(t, StateCancelled, c.State())
}

func TestCancelDuringInflightPollStaysCancelled(t *testing.T) {
	client := &scriptedClient{
		statusHold:    true,
		statusEntered: make(chan struct{}, 1),
		cancelResp: &dto.CancelResponse{
			Status:    dto.CancelSuccessful,
			JobStatus: dto.JobCancelled,
			Message:   "job cancelled",
		},
	}

	c := NewController(logger.NewNop(), client, time.Millisecond)
	require.NoError(t, c.Start(context.Background(), startRequest()))

	select {
	case <-client.statusEntered:
	case <-time.After(time.Second):
		t.Fatal("status poll never started")
	}
	require.NoError(t, c.Cancel(context.Background()))

	events := collect(t, c, 2, time.Second)
	assert.Equal(t, StatePolling, events[0].State)
	assert.Equal(t, StateCancelled, events[1].State)

	// The aborted poll must not surface as a synthetic error afterwards.
	select {
	case ev := <-c.Events():
		t.Fatalf("unexpected event after cancel: state=%s message=%q", ev.State, ev.Message)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, StateCancelled, c.State())
	assert.False(t, c.PollerActive())
}

func TestCancelDispositions(t *testing.T) {
	tests := []struct {
		name      string
		resp      *dto.CancelResponse
		wantState State
	}{
		{name: "already completed", resp: &dto.CancelResponse{Status: dto.CancelAlreadyCompleted, JobStatus: dto.JobCompleted}, wantState: StateCompleted},
		{name: "cannot cancel completed", resp: &dto.CancelResponse{Status: dto.CancelErrorCannotCancelDone, JobStatus: dto.JobCompleted}, wantState: StateCompleted},
		{name: "already failed", resp: &dto.CancelResponse{Status: dto.CancelAlreadyFailed, JobStatus: dto.JobFailed}, wantState: StateFailed},
		{name: "not found", resp: &dto.CancelResponse{Status: dto.CancelJobNotFound}, wantState: StateError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptedClient{cancelResp: tt.resp}

			c := NewController(logger.NewNop(), client, time.Hour)
			require.NoError(t, c.Start(context.Background(), startRequest()))
			require.NoError(t, c.Cancel(context.Background()))

			assert.Equal(t, tt.wantState, c.State())
			assert.False(t, c.PollerActive())
		})
	}
}

func TestDownloadWritesCSV(t *testing.T) {
	client := &scriptedClient{download: []byte("a,b\n1,2\n")}

	c := NewController(logger.NewNop(), client, time.Hour)
	require.NoError(t, c.Start(context.Background(), startRequest()))

	dir := t.TempDir()
	path, err := c.Download(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "optimization_results_job-1.csv"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(data))
}

func TestDownloadWithoutJobFails(t *testing.T) {
	c := NewController(logger.NewNop(), &scriptedClient{}, time.Hour)
	_, err := c.Download(context.Background(), t.TempDir())
	require.Error(t, err)
}
