// Package contracts defines the records shared by the fetch ledger and the
// event stream.
package contracts

// FetchRun describes one invocation of the fetch pipeline.
// Published to: travis.fetch.runs
// Key: {run_id}
type FetchRun struct {
	RunID   string   `json:"run_id"`
	Targets []string `json:"targets"`
	// pending, running, completed, failed
	Status      string `json:"status"`
	JobsTotal   int    `json:"jobs_total"`
	JobsWritten int    `json:"jobs_written"`
	JobsSkipped int    `json:"jobs_skipped"`
	Error       string `json:"error,omitempty"`
	StartedAt   string `json:"started_at"`
	FinishedAt  string `json:"finished_at,omitempty"`
}

// FetchRecord describes one job log handled by a run.
// Published to: travis.logs.fetched
// Key: {slug}
type FetchRecord struct {
	RunID     string `json:"run_id"`
	Slug      string `json:"slug"`
	JobID     int64  `json:"job_id"`
	JobNumber string `json:"job_number"`
	State     string `json:"state"`
	Path      string `json:"path"`
	Bytes     int64  `json:"bytes"`
	// Skipped is set when the stored file was already up to date.
	Skipped   bool   `json:"skipped"`
	FetchedAt string `json:"fetched_at"`
}

// Run statuses.
const (
	RunPending   = "pending"
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Topic names used on the event stream.
const (
	// TopicRuns carries FetchRun updates.
	TopicRuns = "travis.fetch.runs"

	// TopicLogsFetched carries one FetchRecord per handled job log.
	TopicLogsFetched = "travis.logs.fetched"
)
