package dataset_profile

import (
	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type Pipeline struct {
	log      *logger.Logger
	datasets services.DatasetService
}

func New(baseLog *logger.Logger, datasets services.DatasetService) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", domainjobs.TypeDatasetProfile),
		datasets: datasets,
	}
}

func (p *Pipeline) Type() string { return domainjobs.TypeDatasetProfile }
