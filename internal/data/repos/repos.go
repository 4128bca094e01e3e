package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/tagledger-backend/internal/data/repos/analysis"
	"github.com/yungbote/tagledger-backend/internal/data/repos/audit"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/data/repos/catalog"
	"github.com/yungbote/tagledger-backend/internal/data/repos/jobs"
	"github.com/yungbote/tagledger-backend/internal/data/repos/mlops"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type ListQuery = base.ListQuery
type FilterSpec = base.FilterSpec
type CASGuard = base.CASGuard

type TagRepo = catalog.TagRepo
type DataSchemaRepo = catalog.DataSchemaRepo
type DataFieldRepo = catalog.DataFieldRepo
type DatasetRepo = catalog.DatasetRepo
type DatasetFileRepo = catalog.DatasetFileRepo
type DatasetProfileRepo = catalog.DatasetProfileRepo

type AnalysisTemplateRepo = analysis.AnalysisTemplateRepo
type AnalysisRunRepo = analysis.AnalysisRunRepo

type MLModelRepo = mlops.MLModelRepo
type MLModelVersionRepo = mlops.MLModelVersionRepo
type MLTrainingRunRepo = mlops.MLTrainingRunRepo

type JobRepo = jobs.JobRepo

type AuditRepo = audit.AuditRepo

func NewCASGuard(db *gorm.DB) CASGuard { return base.NewCASGuard(db) }

func NewTagRepo(db *gorm.DB, log *logger.Logger) TagRepo { return catalog.NewTagRepo(db, log) }
func NewDataSchemaRepo(db *gorm.DB, log *logger.Logger) DataSchemaRepo {
	return catalog.NewDataSchemaRepo(db, log)
}
func NewDataFieldRepo(db *gorm.DB, log *logger.Logger) DataFieldRepo {
	return catalog.NewDataFieldRepo(db, log)
}
func NewDatasetRepo(db *gorm.DB, log *logger.Logger) DatasetRepo { return catalog.NewDatasetRepo(db, log) }
func NewDatasetFileRepo(db *gorm.DB, log *logger.Logger) DatasetFileRepo {
	return catalog.NewDatasetFileRepo(db, log)
}
func NewDatasetProfileRepo(db *gorm.DB, log *logger.Logger) DatasetProfileRepo {
	return catalog.NewDatasetProfileRepo(db, log)
}

func NewAnalysisTemplateRepo(db *gorm.DB, log *logger.Logger) AnalysisTemplateRepo {
	return analysis.NewAnalysisTemplateRepo(db, log)
}
func NewAnalysisRunRepo(db *gorm.DB, log *logger.Logger) AnalysisRunRepo {
	return analysis.NewAnalysisRunRepo(db, log)
}

func NewMLModelRepo(db *gorm.DB, log *logger.Logger) MLModelRepo { return mlops.NewMLModelRepo(db, log) }
func NewMLModelVersionRepo(db *gorm.DB, log *logger.Logger) MLModelVersionRepo {
	return mlops.NewMLModelVersionRepo(db, log)
}
func NewMLTrainingRunRepo(db *gorm.DB, log *logger.Logger) MLTrainingRunRepo {
	return mlops.NewMLTrainingRunRepo(db, log)
}

func NewJobRepo(db *gorm.DB, log *logger.Logger) JobRepo { return jobs.NewJobRepo(db, log) }

func NewAuditRepo(db *gorm.DB, log *logger.Logger) AuditRepo { return audit.NewAuditRepo(db, log) }
