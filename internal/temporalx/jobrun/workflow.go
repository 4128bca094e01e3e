package jobrun

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
)

// Workflow runs one job through the activity. The job row, not the workflow
// history, is the record of the outcome.
func Workflow(ctx workflow.Context, jobID int64) (RunResult, error) {
	if jobID <= 0 {
		return RunResult{}, fmt.Errorf("jobrun: missing job_id")
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 24 * time.Hour,
		HeartbeatTimeout:    30 * time.Second,
		// The runner owns the queued -> running claim; a retry would only see a non-queued job.
		RetryPolicy: &temporal.RetryPolicy{MaximumAttempts: 1},
	})

	var out RunResult
	if err := workflow.ExecuteActivity(ctx, ActivityExecute, jobID).Get(ctx, &out); err != nil {
		return out, err
	}
	if out.Status == domainjobs.StatusFailed {
		return out, fmt.Errorf("job %d failed: %s", jobID, out.Error)
	}
	return out, nil
}
