package dto

import "encoding/json"

type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
	JobError     JobStatus = "ERROR"
)

// IsTerminal reports whether no further status transitions can happen.
func (s JobStatus) IsTerminal() bool {
	switch s {
	case JobCompleted, JobFailed, JobCancelled, JobError:
		return true
	default:
		return false
	}
}

type ParameterRange struct {
	Name       string  `json:"name" validate:"required"`
	StartValue float64 `json:"start_value"`
	EndValue   float64 `json:"end_value"`
	Step       float64 `json:"step"`
}

type OptimizationStartRequest struct {
	StrategyID       string           `json:"strategy_id" validate:"required"`
	Exchange         string           `json:"exchange" validate:"required"`
	Token            string           `json:"token" validate:"required"`
	StartDate        string           `json:"start_date" validate:"required"`
	EndDate          string           `json:"end_date" validate:"required"`
	Timeframe        string           `json:"timeframe" validate:"required"`
	InitialCapital   float64          `json:"initial_capital" validate:"gt=0"`
	ParameterRanges  []ParameterRange `json:"parameter_ranges" validate:"required,min=1,dive"`
	MetricToOptimize string           `json:"metric_to_optimize" validate:"required"`
}

type OptimizationStartResponse struct {
	JobID              string    `json:"job_id"`
	Status             JobStatus `json:"status"`
	ProgressPercentage float64   `json:"progress_percentage"`
	Message            string    `json:"message,omitempty"`
}

type OptimizationStatusResponse struct {
	JobID              string    `json:"job_id"`
	Status             JobStatus `json:"status"`
	ProgressPercentage float64   `json:"progress_percentage"`
	Message            string    `json:"message,omitempty"`
	ResultsAvailable   bool      `json:"results_available,omitempty"`
	CurrentIteration   int       `json:"current_iteration,omitempty"`
}

type OptimizationResultEntry struct {
	Parameters         map[string]interface{} `json:"parameters"`
	PerformanceMetrics map[string]float64     `json:"performance_metrics"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
}

type OptimizationResultsResponse struct {
	Results        []OptimizationResultEntry `json:"results"`
	BestResult     *OptimizationResultEntry  `json:"best_result,omitempty"`
	RequestDetails json.RawMessage           `json:"request_details,omitempty"`
	Message        string                    `json:"message,omitempty"`
}

// CancelDisposition encodes the server's verdict on a cancel request.
type CancelDisposition string

const (
	CancelJobNotFound           CancelDisposition = "job_not_found"
	CancelAlreadyCompleted      CancelDisposition = "already_completed"
	CancelAlreadyFailed         CancelDisposition = "already_failed"
	CancelSuccessful            CancelDisposition = "cancelled_successfully"
	CancelErrorCannotCancelDone CancelDisposition = "error_cannot_cancel_completed"
)

// JobStillLive reports whether the job may keep making progress after this
// disposition, i.e. whether polling should continue.
func (d CancelDisposition) JobStillLive() bool {
	return d != CancelJobNotFound &&
		d != CancelAlreadyCompleted &&
		d != CancelAlreadyFailed &&
		d != CancelSuccessful &&
		d != CancelErrorCannotCancelDone
}

type CancelResponse struct {
	Status           CancelDisposition `json:"status"`
	Message          string            `json:"message,omitempty"`
	JobStatus        JobStatus         `json:"job_status,omitempty"`
	ResultsAvailable bool              `json:"results_available,omitempty"`
}
