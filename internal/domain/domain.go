package domain

import (
	"github.com/yungbote/tagledger-backend/internal/domain/analysis"
	"github.com/yungbote/tagledger-backend/internal/domain/audit"
	"github.com/yungbote/tagledger-backend/internal/domain/catalog"
	"github.com/yungbote/tagledger-backend/internal/domain/jobs"
	"github.com/yungbote/tagledger-backend/internal/domain/mlops"
)

type Tag = catalog.Tag
type DataSchema = catalog.DataSchema
type DataField = catalog.DataField
type Dataset = catalog.Dataset
type DatasetFile = catalog.DatasetFile
type DatasetProfile = catalog.DatasetProfile

type AnalysisTemplate = analysis.AnalysisTemplate
type AnalysisRun = analysis.AnalysisRun

type MLModel = mlops.MLModel
type MLModelVersion = mlops.MLModelVersion
type MLTrainingRun = mlops.MLTrainingRun

type Job = jobs.Job

type AuditRecord = audit.AuditRecord

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&Tag{},
		&DataSchema{},
		&DataField{},
		&Dataset{},
		&DatasetFile{},
		&DatasetProfile{},
		&AnalysisTemplate{},
		&AnalysisRun{},
		&MLModel{},
		&MLModelVersion{},
		&MLTrainingRun{},
		&Job{},
		&AuditRecord{},
	}
}
