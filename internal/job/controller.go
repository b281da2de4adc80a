package job

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"trading-platform-client/internal/api"
	"trading-platform-client/internal/dto"
	"trading-platform-client/pkg/logger"
	"trading-platform-client/pkg/utils"
)

type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
	StateError      State = "error"
)

// IsTerminal reports whether the job record reached its final state. A
// terminal record never transitions again; only a fresh Start replaces it.
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled, StateError:
		return true
	}
	return false
}

// Event is a state-machine notification delivered to the owning page
// controller. Results is set only after a results fetch.
type Event struct {
	JobID    string
	State    State
	Status   dto.JobStatus
	Progress float64
	Message  string
	Results  *dto.OptimizationResultsResponse
}

// Controller drives one optimization job at a time through
// idle → submitting → polling → terminal. Starting a new job stops the
// previous poller, so at most one poll timer is ever live per controller.
type Controller struct {
	log      *logger.Logger
	api      api.Client
	interval time.Duration
	events   chan Event

	mu           sync.Mutex
	state        State
	jobID        string
	generation   uint64
	lastProgress float64
	stopPoll     context.CancelFunc
}

func NewController(log *logger.Logger, apiClient api.Client, interval time.Duration) *Controller {
	return &Controller{
		log:      log,
		api:      apiClient,
		interval: interval,
		events:   make(chan Event, 32),
		state:    StateIdle,
	}
}

// Events delivers state-machine notifications to the owning page.
func (c *Controller) Events() <-chan Event {
	return c.events
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) JobID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.jobID
}

// PollerActive reports whether a poll timer is currently live.
func (c *Controller) PollerActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopPoll != nil
}

// Start submits the optimization request and begins polling. Any outstanding
// poller from a previous job is stopped first.
func (c *Controller) Start(ctx context.Context, req *dto.OptimizationStartRequest) error {
	c.mu.Lock()
	c.stopPollLocked()
	c.generation++
	gen := c.generation
	c.state = StateSubmitting
	c.jobID = ""
	c.lastProgress = 0
	c.mu.Unlock()

	resp, err := c.api.StartOptimization(ctx, req)
	if err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.state = StateError
		}
		c.mu.Unlock()
		c.emit(Event{State: StateError, Status: dto.JobError, Message: err.Error()})
		return err
	}

	c.mu.Lock()
	if c.generation != gen {
		// Another Start superseded this one while the request was in flight.
		c.mu.Unlock()
		return nil
	}
	c.jobID = resp.JobID
	c.state = StatePolling
	c.lastProgress = resp.ProgressPercentage
	pollCtx, cancel := context.WithCancel(ctx)
	c.stopPoll = cancel
	c.mu.Unlock()

	c.emit(Event{
		JobID:    resp.JobID,
		State:    StatePolling,
		Status:   resp.Status,
		Progress: resp.ProgressPercentage,
		Message:  resp.Message,
	})

	utils.GoSafe(func() {
		c.pollLoop(pollCtx, gen, resp.JobID)
	})
	return nil
}

func (c *Controller) pollLoop(ctx context.Context, gen uint64, jobID string) {
	defer c.releasePoll(gen)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		status, err := c.api.GetOptimizationStatus(ctx, jobID)
		if c.stale(gen) {
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				// The poller was stopped mid-request; Cancel or a new Start
				// already owns the state.
				return
			}
			c.transition(gen, StateError)
			c.emit(Event{
				JobID:    jobID,
				State:    StateError,
				Status:   dto.JobError,
				Message:  fmt.Sprintf("status poll failed: %v", err),
				Progress: 0,
			})
			return
		}

		progress := c.clampProgress(gen, status.ProgressPercentage)

		if !status.Status.IsTerminal() {
			c.emit(Event{
				JobID:    jobID,
				State:    StatePolling,
				Status:   status.Status,
				Progress: progress,
				Message:  status.Message,
			})
			continue
		}

		next := stateForStatus(status.Status)
		c.transition(gen, next)
		c.emit(Event{
			JobID:    jobID,
			State:    next,
			Status:   status.Status,
			Progress: progress,
			Message:  status.Message,
		})

		if status.Status == dto.JobCompleted ||
			(status.Status == dto.JobCancelled && status.ResultsAvailable) {
			c.fetchResults(ctx, gen, jobID, next)
		}
		return
	}
}

func (c *Controller) fetchResults(ctx context.Context, gen uint64, jobID string, state State) {
	results, err := c.api.GetOptimizationResults(ctx, jobID)
	if c.stale(gen) {
		return
	}
	if err != nil {
		c.log.Error("failed to fetch optimization results",
			logger.StringField("job_id", jobID),
			logger.ErrorField(err),
		)
		c.emit(Event{JobID: jobID, State: state, Message: fmt.Sprintf("results fetch failed: %v", err)})
		return
	}
	c.emit(Event{JobID: jobID, State: state, Progress: 100, Results: results})
}

// Cancel dispatches the cancel RPC and stops the local poller regardless of
// the server's disposition.
func (c *Controller) Cancel(ctx context.Context) error {
	c.mu.Lock()
	jobID := c.jobID
	gen := c.generation
	c.stopPollLocked()
	c.mu.Unlock()

	if jobID == "" {
		return nil
	}

	resp, err := c.api.CancelOptimization(ctx, jobID)
	if err != nil {
		c.transition(gen, StateError)
		c.emit(Event{JobID: jobID, State: StateError, Status: dto.JobError, Message: err.Error()})
		return err
	}

	var next State
	switch resp.Status {
	case dto.CancelSuccessful:
		next = StateCancelled
	case dto.CancelAlreadyCompleted, dto.CancelErrorCannotCancelDone:
		next = StateCompleted
	case dto.CancelAlreadyFailed:
		next = StateFailed
	default:
		next = StateError
	}
	c.transition(gen, next)
	c.emit(Event{
		JobID:   jobID,
		State:   next,
		Status:  resp.JobStatus,
		Message: resp.Message,
	})

	if resp.Status == dto.CancelSuccessful && resp.ResultsAvailable {
		c.fetchResults(ctx, gen, jobID, next)
	}
	return nil
}

// Download fetches the results CSV and writes it next to dir as
// optimization_results_<jobId>.csv, returning the written path.
func (c *Controller) Download(ctx context.Context, dir string) (string, error) {
	c.mu.Lock()
	jobID := c.jobID
	c.mu.Unlock()

	if jobID == "" {
		return "", fmt.Errorf("no optimization job to download")
	}

	data, err := c.api.DownloadOptimizationResults(ctx, jobID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("optimization_results_%s.csv", jobID))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write results csv: %w", err)
	}
	return path, nil
}

func (c *Controller) stale(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation != gen
}

// transition moves the record forward unless it was superseded or already
// reached a terminal state.
func (c *Controller) transition(gen uint64, next State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen || c.state.IsTerminal() {
		return
	}
	c.state = next
}

// releasePoll retires this generation's poll timer once its loop exits.
func (c *Controller) releasePoll(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return
	}
	c.stopPollLocked()
}

// clampProgress keeps the observed progress monotonically non-decreasing for
// the lifetime of one job.
func (c *Controller) clampProgress(gen uint64, progress float64) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return progress
	}
	if progress < c.lastProgress {
		return c.lastProgress
	}
	c.lastProgress = progress
	return progress
}

func (c *Controller) stopPollLocked() {
	if c.stopPoll != nil {
		c.stopPoll()
		c.stopPoll = nil
	}
}

func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warn("job event dropped, consumer too slow",
			logger.StringField("job_id", ev.JobID),
			logger.StringField("state", string(ev.State)),
		)
	}
}

func stateForStatus(status dto.JobStatus) State {
	switch status {
	case dto.JobCompleted:
		return StateCompleted
	case dto.JobFailed:
		return StateFailed
	case dto.JobCancelled:
		return StateCancelled
	default:
		return StateError
	}
}
