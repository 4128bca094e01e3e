package jobs

import (
	"context"

	types "github.com/yungbote/tagledger-backend/internal/domain"
)

// SyncExecutor runs a job inline, before Submit returns.
type SyncExecutor struct {
	runner *Runner
}

func NewSyncExecutor(runner *Runner) *SyncExecutor {
	return &SyncExecutor{runner: runner}
}

func (e *SyncExecutor) Submit(ctx context.Context, job *types.Job) error {
	_, err := e.runner.Run(ctx, job.ID)
	return err
}
