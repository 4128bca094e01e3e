package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type Repos struct {
	Tag              repos.TagRepo
	DataSchema       repos.DataSchemaRepo
	DataField        repos.DataFieldRepo
	Dataset          repos.DatasetRepo
	DatasetFile      repos.DatasetFileRepo
	DatasetProfile   repos.DatasetProfileRepo
	AnalysisTemplate repos.AnalysisTemplateRepo
	AnalysisRun      repos.AnalysisRunRepo
	MLModel          repos.MLModelRepo
	MLModelVersion   repos.MLModelVersionRepo
	MLTrainingRun    repos.MLTrainingRunRepo
	Job              repos.JobRepo
	Audit            repos.AuditRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Tag:              repos.NewTagRepo(db, log),
		DataSchema:       repos.NewDataSchemaRepo(db, log),
		DataField:        repos.NewDataFieldRepo(db, log),
		Dataset:          repos.NewDatasetRepo(db, log),
		DatasetFile:      repos.NewDatasetFileRepo(db, log),
		DatasetProfile:   repos.NewDatasetProfileRepo(db, log),
		AnalysisTemplate: repos.NewAnalysisTemplateRepo(db, log),
		AnalysisRun:      repos.NewAnalysisRunRepo(db, log),
		MLModel:          repos.NewMLModelRepo(db, log),
		MLModelVersion:   repos.NewMLModelVersionRepo(db, log),
		MLTrainingRun:    repos.NewMLTrainingRunRepo(db, log),
		Job:              repos.NewJobRepo(db, log),
		Audit:            repos.NewAuditRepo(db, log),
	}
}
