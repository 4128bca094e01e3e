package jobs

import (
	"github.com/yungbote/tagledger-backend/internal/jobs/pipeline/analysis_run"
	"github.com/yungbote/tagledger-backend/internal/jobs/pipeline/dataset_profile"
	"github.com/yungbote/tagledger-backend/internal/jobs/pipeline/dataset_validate"
	"github.com/yungbote/tagledger-backend/internal/jobs/pipeline/ml_training"
	jobrt "github.com/yungbote/tagledger-backend/internal/jobs/runtime"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type PipelineDeps struct {
	Analysis services.AnalysisService
	MLOps    services.MLOpsService
	Datasets services.DatasetService
}

// NewRegistry registers a handler for every job type.
func NewRegistry(baseLog *logger.Logger, deps PipelineDeps) (*jobrt.Registry, error) {
	reg := jobrt.NewRegistry()
	for _, h := range []jobrt.Handler{
		analysis_run.New(baseLog, deps.Analysis),
		ml_training.New(baseLog, deps.MLOps),
		dataset_validate.New(baseLog, deps.Datasets),
		dataset_profile.New(baseLog, deps.Datasets),
	} {
		if err := reg.Register(h); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
