package app

import (
	"fmt"

	"github.com/yungbote/tagledger-backend/internal/jobs"
	jobrt "github.com/yungbote/tagledger-backend/internal/jobs/runtime"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/blobstore"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type Services struct {
	Tags     services.TagService
	Schemas  services.SchemaService
	Datasets services.DatasetService
	Analysis services.AnalysisService
	MLOps    services.MLOpsService
	Jobs     services.JobService
	Audit    services.AuditService

	Registry *jobrt.Registry
	Runner   *jobs.Runner
}

func wireServices(log *logger.Logger, cfg Config, machine *lifecycle.Machine, blobs blobstore.Store, r Repos) (Services, error) {
	log.Info("Wiring services...")
	var s Services
	s.Tags = services.NewTagService(log, machine, r.Tag, r.DataSchema, r.Dataset, r.AnalysisTemplate, r.MLModel)
	s.Schemas = services.NewSchemaService(log, machine, r.Tag, r.DataSchema, r.DataField, r.Dataset)
	s.Datasets = services.NewDatasetService(log, machine, blobs, cfg.MaxUploadBytes,
		r.Tag, r.DataSchema, r.DataField, r.Dataset, r.DatasetFile, r.DatasetProfile,
		r.AnalysisRun, r.MLTrainingRun, r.MLModelVersion)
	s.Analysis = services.NewAnalysisService(log, machine, r.Tag, r.AnalysisTemplate, r.AnalysisRun, r.Dataset, s.Datasets)
	s.MLOps = services.NewMLOpsService(log, machine, blobs, r.Tag, r.MLModel, r.MLModelVersion, r.MLTrainingRun, r.Dataset)
	s.Jobs = services.NewJobService(log, machine, r.Job)
	s.Audit = services.NewAuditService(log, r.Audit)

	registry, err := jobs.NewRegistry(log, jobs.PipelineDeps{
		Analysis: s.Analysis,
		MLOps:    s.MLOps,
		Datasets: s.Datasets,
	})
	if err != nil {
		return Services{}, fmt.Errorf("register job pipelines: %w", err)
	}
	s.Registry = registry
	s.Runner = jobs.NewRunner(log, machine, r.Job, registry)
	return s, nil
}
