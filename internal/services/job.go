package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/jsonschema"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

const (
	CancelMessage       = "canceled by user"
	defaultPendingLimit = 50
	maxPendingLimit     = 500
)

// Executor carries out a queued job. The synchronous executor runs it before
// returning; the Temporal executor only hands it off.
type Executor interface {
	Submit(ctx context.Context, job *types.Job) error
}

// jobTargets names the payload key that may carry a job's target id.
var jobTargets = map[string]string{
	domainjobs.TypeAnalysisRun:     "analysis_run_id",
	domainjobs.TypeMLTraining:      "model_version_id",
	domainjobs.TypeDatasetValidate: "dataset_id",
	domainjobs.TypeDatasetProfile:  "dataset_id",
}

func targetSchema(key string, extra string) *jsonschema.Schema {
	return jsonschema.MustCompile(fmt.Sprintf(`{
  "type": "object",
  "properties": {
    %q: {"type": "integer", "minimum": 1},
    "trace_id": {"type": "string"},
    "request_id": {"type": "string"}%s
  }
}`, key, extra))
}

var jobPayloadSchemas = map[string]*jsonschema.Schema{
	domainjobs.TypeAnalysisRun:     targetSchema("analysis_run_id", ""),
	domainjobs.TypeMLTraining:      targetSchema("model_version_id", `,
    "hyperparams": {"type": "object"}`),
	domainjobs.TypeDatasetValidate: targetSchema("dataset_id", ""),
	domainjobs.TypeDatasetProfile:  targetSchema("dataset_id", ""),
}

type JobService interface {
	Resource() *Resource[types.Job, JobInput]
	SetExecutor(ex Executor)

	Create(ctx context.Context, in *JobInput) (*types.Job, error)
	Run(ctx context.Context, jobID int64) (*types.Job, error)
	Cancel(ctx context.Context, jobID int64) (*types.Job, error)
	Pending(ctx context.Context, queue string, limit int) ([]*types.Job, error)
}

type jobService struct {
	log      *logger.Logger
	machine  *lifecycle.Machine
	jobs     repos.JobRepo
	executor Executor
	resource *Resource[types.Job, JobInput]
}

func NewJobService(baseLog *logger.Logger, machine *lifecycle.Machine, jobs repos.JobRepo) JobService {
	s := &jobService{
		log:     baseLog.With("service", "JobService"),
		machine: machine,
		jobs:    jobs,
	}
	s.resource = NewResource(baseLog, machine, ResourceConfig[types.Job, JobInput]{
		Name: "job",
		Repo: jobs,
		Filter: base.FilterSpec{
			Fields: map[string]base.FieldKind{
				"job_type": base.KindString, "queue": base.KindString,
				"status": base.KindString, "target_id": base.KindInt,
			},
			Orderable: []string{"priority", "status", "created_at", "started_at", "finished_at"},
		},
		Create:       s.Create,
		Changes:      s.changes,
		BeforeDelete: s.beforeDelete,
	})
	return s
}

func (s *jobService) Resource() *Resource[types.Job, JobInput] { return s.resource }

func (s *jobService) SetExecutor(ex Executor) { s.executor = ex }

// payload validates the body against the job type's schema and fills the
// target id from it when target_id was not given.
func (s *jobService) payload(in *JobInput) ([]byte, *int64, error) {
	raw, err := objectJSON("payload", in.Payload)
	if err != nil {
		return nil, nil, err
	}
	schema, ok := jobPayloadSchemas[in.JobType]
	if !ok {
		return nil, nil, apierr.ValidationDetails("invalid input", []apierr.Detail{{Field: "job_type", Message: "unknown job type"}})
	}
	if err := schema.Validate(raw); err != nil {
		return nil, nil, schemaError("payload", err)
	}
	target := in.TargetID
	if target == nil {
		var body map[string]json.RawMessage
		if json.Unmarshal(raw, &body) == nil {
			var id int64
			if v, ok := body[jobTargets[in.JobType]]; ok && json.Unmarshal(v, &id) == nil && id > 0 {
				target = &id
			}
		}
	}
	if target == nil {
		return nil, nil, apierr.ValidationDetails("invalid input", []apierr.Detail{{
			Field:   "target_id",
			Message: fmt.Sprintf("is required (or payload.%s)", jobTargets[in.JobType]),
		}})
	}
	return raw, target, nil
}

func (s *jobService) Create(ctx context.Context, in *JobInput) (*types.Job, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	raw, target, err := s.payload(in)
	if err != nil {
		return nil, err
	}
	var job *types.Job
	err = s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		now := nowUTC()
		job = &types.Job{
			JobType:   in.JobType,
			TargetID:  target,
			Queue:     orDefault(strings.TrimSpace(in.Queue), domainjobs.DefaultQueue),
			Priority:  in.Priority,
			Status:    lifecycle.Initial(lifecycle.KindJob),
			Payload:   raw,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.jobs.Create(tx.Context, job); err != nil {
			return db.Classify("create job", err)
		}
		return tx.Created(job)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Job queued", "job_id", job.ID, "job_type", job.JobType, "queue", job.Queue)
	return s.resource.Get(ctx, job.ID)
}

// changes only lets a queued job be re-prioritized or moved between queues.
func (s *jobService) changes(_ *lifecycle.Tx, row *types.Job, in *JobInput) (map[string]any, error) {
	if row.Status != domainjobs.StatusQueued {
		return nil, apierr.InvalidTransition("job %d is %s; only queued jobs can be edited", row.ID, row.Status)
	}
	if in.JobType != row.JobType {
		return nil, apierr.Validation("job_type cannot change")
	}
	raw, target, err := s.payload(in)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"target_id": target,
		"queue":     orDefault(strings.TrimSpace(in.Queue), row.Queue),
		"priority":  in.Priority,
		"payload":   raw,
	}, nil
}

func (s *jobService) beforeDelete(_ *lifecycle.Tx, row *types.Job) error {
	if row.Status == domainjobs.StatusRunning {
		return apierr.Conflict("job %d is running", row.ID)
	}
	return nil
}

func (s *jobService) Run(ctx context.Context, jobID int64) (*types.Job, error) {
	job, err := s.resource.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domainjobs.StatusQueued {
		return nil, apierr.InvalidTransition("job %d is %s; only queued jobs can be run", job.ID, job.Status)
	}
	if s.executor == nil {
		return nil, apierr.Internal(fmt.Errorf("job executor not configured"))
	}
	if err := s.executor.Submit(ctx, job); err != nil {
		return nil, err
	}
	return s.resource.Get(ctx, job.ID)
}

func (s *jobService) Cancel(ctx context.Context, jobID int64) (*types.Job, error) {
	job, err := s.resource.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	err = s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		return tx.TransitionWithMessage(job, domainjobs.StatusFailed, map[string]any{
			"error":       CancelMessage,
			"finished_at": nowUTC(),
		}, CancelMessage)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Job canceled", "job_id", job.ID, "job_type", job.JobType)
	return s.resource.Get(ctx, job.ID)
}

func (s *jobService) Pending(ctx context.Context, queue string, limit int) ([]*types.Job, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	if limit > maxPendingLimit {
		limit = maxPendingLimit
	}
	out, err := s.jobs.ListPending(dbctx.Context{Ctx: ctx}, queue, limit)
	if err != nil {
		return nil, db.Classify("list pending jobs", err)
	}
	return out, nil
}
