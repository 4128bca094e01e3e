package jobrun

import (
	"context"
	"fmt"

	enumspb "go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

// Executor hands a job to Temporal and returns without waiting for it.
type Executor struct {
	log       *logger.Logger
	tc        temporalsdkclient.Client
	taskQueue string
}

func NewExecutor(baseLog *logger.Logger, tc temporalsdkclient.Client, taskQueue string) *Executor {
	return &Executor{
		log:       baseLog.With("component", "TemporalExecutor"),
		tc:        tc,
		taskQueue: taskQueue,
	}
}

func (e *Executor) Submit(ctx context.Context, job *types.Job) error {
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                    WorkflowID(job.ID),
		TaskQueue:             e.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}
	run, err := e.tc.ExecuteWorkflow(ctx, opts, WorkflowName, job.ID)
	if err != nil {
		return apierr.Internal(fmt.Errorf("start job workflow: %w", err))
	}
	e.log.Info("Job submitted to Temporal",
		append(ctxutil.Fields(ctx), "job_id", job.ID, "workflow_id", run.GetID(), "run_id", run.GetRunID())...)
	return nil
}
