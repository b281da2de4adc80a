package mockserver

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
	"time"

	"trading-platform-client/internal/dto"

	"github.com/google/uuid"
)

// comboCap bounds the enumerated Cartesian product per job.
const comboCap = 200

type optimizationJob struct {
	id            string
	req           dto.OptimizationStartRequest
	startedAt     time.Time
	cancelled     bool
	finalProgress float64
	results       *dto.OptimizationResultsResponse
}

// jobStore tracks optimization jobs in memory. Progress is a function of
// elapsed time, so the same store needs no background workers and behaves
// deterministically under a fake clock.
type jobStore struct {
	mu      sync.Mutex
	jobs    map[string]*optimizationJob
	perTick float64
	tick    time.Duration
	now     func() time.Time
}

func newJobStore(perTick float64, tick time.Duration) *jobStore {
	return &jobStore{
		jobs:    make(map[string]*optimizationJob),
		perTick: perTick,
		tick:    tick,
		now:     time.Now,
	}
}

func (s *jobStore) create(req dto.OptimizationStartRequest) *dto.OptimizationStartResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := &optimizationJob{
		id:        uuid.NewString(),
		req:       req,
		startedAt: s.now(),
	}
	s.jobs[j.id] = j

	return &dto.OptimizationStartResponse{
		JobID:              j.id,
		Status:             dto.JobQueued,
		ProgressPercentage: 0,
		Message:            "optimization queued",
	}
}

func (s *jobStore) progressLocked(j *optimizationJob) float64 {
	if j.cancelled {
		return j.finalProgress
	}
	ticks := float64(s.now().Sub(j.startedAt)) / float64(s.tick)
	progress := ticks * s.perTick
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}
	return progress
}

func statusFor(j *optimizationJob, progress float64) dto.JobStatus {
	switch {
	case j.cancelled:
		return dto.JobCancelled
	case progress >= 100:
		return dto.JobCompleted
	case progress == 0:
		return dto.JobQueued
	default:
		return dto.JobRunning
	}
}

func (s *jobStore) status(id string) (*dto.OptimizationStatusResponse, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, false
	}

	progress := s.progressLocked(j)
	status := statusFor(j, progress)
	total := comboCount(j.req.ParameterRanges)

	return &dto.OptimizationStatusResponse{
		JobID:              j.id,
		Status:             status,
		ProgressPercentage: progress,
		ResultsAvailable:   progress >= 100 || (j.cancelled && j.finalProgress > 0),
		CurrentIteration:   int(progress / 100 * float64(total)),
	}, true
}

func (s *jobStore) cancel(id string) *dto.CancelResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return &dto.CancelResponse{
			Status:  dto.CancelJobNotFound,
			Message: "no such optimization job",
		}
	}

	progress := s.progressLocked(j)
	if !j.cancelled && progress >= 100 {
		return &dto.CancelResponse{
			Status:           dto.CancelErrorCannotCancelDone,
			Message:          "job already completed",
			JobStatus:        dto.JobCompleted,
			ResultsAvailable: true,
		}
	}

	j.cancelled = true
	j.finalProgress = progress

	return &dto.CancelResponse{
		Status:           dto.CancelSuccessful,
		Message:          "job cancelled",
		JobStatus:        dto.JobCancelled,
		ResultsAvailable: progress > 0,
	}
}

// results lazily evaluates the job's parameter grid. The bool pair is
// (found, ready).
func (s *jobStore) results(id string) (*dto.OptimizationResultsResponse, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[id]
	if !ok {
		return nil, false, false
	}

	progress := s.progressLocked(j)
	if progress < 100 && !(j.cancelled && j.finalProgress > 0) {
		return nil, true, false
	}

	if j.results == nil {
		j.results = evaluateGrid(j.id, j.req, progress)
	}
	return j.results, true, true
}

func (s *jobStore) csv(id string) ([]byte, bool, bool) {
	results, found, ready := s.results(id)
	if !found || !ready {
		return nil, found, ready
	}
	return renderCSV(results), true, true
}

// sweep drops terminal jobs older than ttl; wired to the cron scheduler.
func (s *jobStore) sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	cutoff := s.now().Add(-ttl)
	for id, j := range s.jobs {
		progress := s.progressLocked(j)
		terminal := j.cancelled || progress >= 100
		if terminal && j.startedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed
}

func comboCount(ranges []dto.ParameterRange) int {
	total := 1
	for _, r := range ranges {
		n := int((r.EndValue-r.StartValue)/r.Step) + 1
		if n < 1 {
			n = 1
		}
		total *= n
		if total > comboCap {
			return comboCap
		}
	}
	return total
}

// enumerateGrid walks the Cartesian product of the ranges, capped.
func enumerateGrid(ranges []dto.ParameterRange) []map[string]float64 {
	combos := []map[string]float64{{}}
	for _, r := range ranges {
		var next []map[string]float64
		for v := r.StartValue; v <= r.EndValue+r.Step/2; v += r.Step {
			for _, combo := range combos {
				extended := make(map[string]float64, len(combo)+1)
				for k, val := range combo {
					extended[k] = val
				}
				extended[r.Name] = v
				next = append(next, extended)
				if len(next) >= comboCap {
					return next
				}
			}
		}
		combos = next
	}
	return combos
}

// scoreCombo produces deterministic pseudo-metrics from the parameter tuple.
func scoreCombo(jobID string, combo map[string]float64) map[string]float64 {
	h := fnv.New64a()
	h.Write([]byte(jobID))

	names := make([]string, 0, len(combo))
	for name := range combo {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte(name))
		h.Write([]byte(strconv.FormatFloat(combo[name], 'f', -1, 64)))
	}

	sum := h.Sum64()
	netPnl := float64(sum%20000)/10 - 500
	winRate := 30 + float64(sum%45)
	trades := 10 + float64(sum%90)

	return map[string]float64{
		"net_pnl":       netPnl,
		"win_rate":      winRate,
		"total_trades":  trades,
		"profit_factor": 0.5 + float64(sum%250)/100,
		"max_drawdown":  -float64(sum % 3000) / 100,
	}
}

func evaluateGrid(jobID string, req dto.OptimizationStartRequest, progress float64) *dto.OptimizationResultsResponse {
	combos := enumerateGrid(req.ParameterRanges)
	evaluated := len(combos)
	if progress < 100 {
		evaluated = int(progress / 100 * float64(len(combos)))
	}

	resp := &dto.OptimizationResultsResponse{}
	if detail, err := json.Marshal(req); err == nil {
		resp.RequestDetails = detail
	}

	var best *dto.OptimizationResultEntry
	bestScore := 0.0
	for i := 0; i < evaluated; i++ {
		params := make(map[string]interface{}, len(combos[i]))
		for name, v := range combos[i] {
			params[name] = v
		}
		entry := dto.OptimizationResultEntry{
			Parameters:         params,
			PerformanceMetrics: scoreCombo(jobID, combos[i]),
		}
		resp.Results = append(resp.Results, entry)

		score, ok := entry.PerformanceMetrics[req.MetricToOptimize]
		if !ok {
			score = entry.PerformanceMetrics["net_pnl"]
		}
		if best == nil || score > bestScore {
			copied := entry
			best = &copied
			bestScore = score
		}
	}
	resp.BestResult = best
	if evaluated == 0 {
		resp.Message = "no runs evaluated before cancellation"
	}
	return resp
}

func renderCSV(results *dto.OptimizationResultsResponse) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if len(results.Results) == 0 {
		w.Write([]string{"message"})
		w.Write([]string{results.Message})
		w.Flush()
		return buf.Bytes()
	}

	var paramNames, metricNames []string
	for name := range results.Results[0].Parameters {
		paramNames = append(paramNames, name)
	}
	for name := range results.Results[0].PerformanceMetrics {
		metricNames = append(metricNames, name)
	}
	sort.Strings(paramNames)
	sort.Strings(metricNames)
	w.Write(append(append([]string{}, paramNames...), metricNames...))

	for _, entry := range results.Results {
		row := make([]string, 0, len(paramNames)+len(metricNames))
		for _, name := range paramNames {
			row = append(row, fmt.Sprintf("%v", entry.Parameters[name]))
		}
		for _, name := range metricNames {
			row = append(row, strconv.FormatFloat(entry.PerformanceMetrics[name], 'f', 4, 64))
		}
		w.Write(row)
	}
	w.Flush()
	return buf.Bytes()
}
