package ml_training

import (
	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type Pipeline struct {
	log   *logger.Logger
	mlops services.MLOpsService
}

func New(baseLog *logger.Logger, mlops services.MLOpsService) *Pipeline {
	return &Pipeline{
		log:   baseLog.With("job", domainjobs.TypeMLTraining),
		mlops: mlops,
	}
}

func (p *Pipeline) Type() string { return domainjobs.TypeMLTraining }
