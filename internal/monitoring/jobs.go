package monitoring

import "time"

// JobRun summarises the recent history of one background job.
type JobRun struct {
	Job                 string    `json:"job"`
	Schedule            string    `json:"schedule"`
	TotalRuns           int       `json:"total_runs"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastRunAt           time.Time `json:"last_run_at"`
	LastError           string    `json:"last_error,omitempty"`
}

// JobReporter exposes job history to health probes.
type JobReporter interface {
	JobRuns() []JobRun
}
