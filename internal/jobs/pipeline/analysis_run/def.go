package analysis_run

import (
	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
	"github.com/yungbote/tagledger-backend/internal/services"
)

type Pipeline struct {
	log      *logger.Logger
	analysis services.AnalysisService
}

func New(baseLog *logger.Logger, analysis services.AnalysisService) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", domainjobs.TypeAnalysisRun),
		analysis: analysis,
	}
}

func (p *Pipeline) Type() string { return domainjobs.TypeAnalysisRun }
