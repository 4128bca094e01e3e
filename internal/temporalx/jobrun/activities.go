package jobrun

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type JobRunner interface {
	Run(ctx context.Context, jobID int64) (*types.Job, error)
}

type Activities struct {
	Log    *logger.Logger
	Runner JobRunner
}

func (a *Activities) Execute(ctx context.Context, jobID int64) (RunResult, error) {
	res := RunResult{JobID: jobID}
	if a == nil || a.Runner == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}

	stopHB := startHeartbeat(ctx, 10*time.Second)
	defer stopHB()

	job, err := a.Runner.Run(ctx, jobID)
	if err != nil {
		a.Log.Warn("Job run refused", "job_id", jobID, "error", err)
		return res, err
	}
	res.Status = job.Status
	res.Error = job.Error
	return res, nil
}

func startHeartbeat(ctx context.Context, every time.Duration) func() {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx)
			}
		}
	}()
	return func() { close(done) }
}
