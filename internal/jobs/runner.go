package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
	jobrt "github.com/yungbote/tagledger-backend/internal/jobs/runtime"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

const settleTimeout = 30 * time.Second

// Runner drives one queued job through queued -> running -> completed/failed.
// Both the synchronous and the Temporal executor end up here.
type Runner struct {
	log      *logger.Logger
	machine  *lifecycle.Machine
	jobs     repos.JobRepo
	registry *jobrt.Registry
}

func NewRunner(baseLog *logger.Logger, machine *lifecycle.Machine, jobs repos.JobRepo, registry *jobrt.Registry) *Runner {
	return &Runner{
		log:      baseLog.With("component", "JobRunner"),
		machine:  machine,
		jobs:     jobs,
		registry: registry,
	}
}

// Run returns the job as stored after the handler finished. A handler failure
// is recorded on the job, not returned.
func (r *Runner) Run(ctx context.Context, jobID int64) (*types.Job, error) {
	job, err := r.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domainjobs.StatusQueued {
		return nil, apierr.InvalidTransition("job %d is %s; only queued jobs can be run", job.ID, job.Status)
	}

	started := time.Now().UTC()
	err = r.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		return tx.Transition(job, domainjobs.StatusRunning, map[string]any{"started_at": started})
	})
	if err != nil {
		return nil, err
	}
	log := r.log.With("job_id", job.ID, "job_type", job.JobType)
	log.Info("Job started")

	jc := jobrt.NewContext(ctx, r.log, job)
	result, runErr := r.dispatch(jc)

	// The claimed row must leave running even when ctx was canceled mid-run.
	settle, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()
	r.finish(settle, log, job, jc, result, runErr, started)
	return r.load(settle, job.ID)
}

// dispatch never panics; a missing handler or a panic fails the job.
func (r *Runner) dispatch(jc *jobrt.Context) (result map[string]any, err error) {
	h, ok := r.registry.Get(jc.Job.JobType)
	if !ok {
		jc.Fail("dispatch", &missingHandlerError{JobType: jc.Job.JobType})
		_, _, err = jc.Outcome()
		return nil, err
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("Job handler panic",
				"job_id", jc.Job.ID,
				"job_type", jc.Job.JobType,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			jc.Fail("panic", fmt.Errorf("%v", rec))
			_, _, err = jc.Outcome()
			result = nil
		}
	}()

	if runErr := h.Run(jc); runErr != nil {
		jc.Fail("run", runErr)
	}
	var done bool
	result, done, err = jc.Outcome()
	if !done {
		jc.Succeed("done", nil)
	}
	return result, err
}

func (r *Runner) finish(ctx context.Context, log *logger.Logger, job *types.Job, jc *jobrt.Context, result map[string]any, runErr error, started time.Time) {
	finished := time.Now().UTC()
	err := r.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		if runErr != nil {
			return tx.TransitionWithMessage(job, domainjobs.StatusFailed, map[string]any{
				"error":       runErr.Error(),
				"log":         jc.Trail(),
				"finished_at": finished,
			}, runErr.Error())
		}
		return tx.Transition(job, domainjobs.StatusCompleted, map[string]any{
			"result":      resultJSON(result),
			"log":         jc.Trail(),
			"finished_at": finished,
		})
	})
	switch {
	case err == nil && runErr != nil:
		log.Warn("Job failed", "error", runErr, "duration_ms", finished.Sub(started).Milliseconds())
	case err == nil:
		log.Info("Job completed", "duration_ms", finished.Sub(started).Milliseconds())
	case apierr.Is(err, apierr.CodeInvalidTransition) || apierr.Is(err, apierr.CodeConflict):
		// Canceled while running; the cancel already settled the job.
		log.Warn("Job finished after it was settled elsewhere", "error", err)
	default:
		log.Error("Job outcome not recorded", "error", err)
	}
}

func (r *Runner) load(ctx context.Context, jobID int64) (*types.Job, error) {
	job, err := r.jobs.GetByID(dbctx.Context{Ctx: ctx}, jobID)
	if err != nil {
		return nil, db.Classify("get job", err)
	}
	if job == nil {
		return nil, apierr.NotFound("job %d not found", jobID)
	}
	return job, nil
}

func resultJSON(result map[string]any) datatypes.JSON {
	if result == nil {
		return datatypes.JSON("{}")
	}
	b, err := json.Marshal(result)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(b)
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }
