package jobrun

import "strconv"

const (
	WorkflowName    = "job_run"
	ActivityExecute = "job_run_execute"
)

// RunResult is what the activity reports back to the workflow.
type RunResult struct {
	JobID  int64  `json:"job_id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// WorkflowID is stable per job, so a job is never started twice.
func WorkflowID(jobID int64) string {
	return "job-" + strconv.FormatInt(jobID, 10)
}
