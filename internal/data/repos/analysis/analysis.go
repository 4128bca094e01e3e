package analysis

import (
	"gorm.io/gorm"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type AnalysisTemplateRepo interface {
	base.Repo[types.AnalysisTemplate]
}

type analysisTemplateRepo struct {
	base.CRUD[types.AnalysisTemplate]
}

func NewAnalysisTemplateRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisTemplateRepo {
	return &analysisTemplateRepo{CRUD: base.NewCRUD[types.AnalysisTemplate](db, baseLog, "AnalysisTemplateRepo")}
}

type AnalysisRunRepo interface {
	base.Repo[types.AnalysisRun]
}

type analysisRunRepo struct {
	base.CRUD[types.AnalysisRun]
}

func NewAnalysisRunRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisRunRepo {
	return &analysisRunRepo{CRUD: base.NewCRUD[types.AnalysisRun](db, baseLog, "AnalysisRunRepo")}
}
