package mlops

import (
	"errors"

	"gorm.io/gorm"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	domainml "github.com/yungbote/tagledger-backend/internal/domain/mlops"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type MLModelRepo interface {
	base.Repo[types.MLModel]
	ActiveForTag(dbc dbctx.Context, tagID int64) ([]*types.MLModel, error)
}

type mlModelRepo struct {
	base.CRUD[types.MLModel]
}

func NewMLModelRepo(db *gorm.DB, baseLog *logger.Logger) MLModelRepo {
	return &mlModelRepo{CRUD: base.NewCRUD[types.MLModel](db, baseLog, "MLModelRepo")}
}

// ActiveForTag returns active models of the tag, newest first.
func (r *mlModelRepo) ActiveForTag(dbc dbctx.Context, tagID int64) ([]*types.MLModel, error) {
	var out []*types.MLModel
	err := dbc.DB(r.DB).
		Where("tag_id = ? AND is_active = ?", tagID, true).
		Order("id DESC").
		Find(&out).Error
	return out, err
}

type MLModelVersionRepo interface {
	base.Repo[types.MLModelVersion]
	LatestDeployed(dbc dbctx.Context, modelID int64) (*types.MLModelVersion, error)
}

type mlModelVersionRepo struct {
	base.CRUD[types.MLModelVersion]
}

func NewMLModelVersionRepo(db *gorm.DB, baseLog *logger.Logger) MLModelVersionRepo {
	return &mlModelVersionRepo{CRUD: base.NewCRUD[types.MLModelVersion](db, baseLog, "MLModelVersionRepo")}
}

// LatestDeployed returns the most recently deployed version, or nil.
func (r *mlModelVersionRepo) LatestDeployed(dbc dbctx.Context, modelID int64) (*types.MLModelVersion, error) {
	var out types.MLModelVersion
	err := dbc.DB(r.DB).
		Where("model_id = ? AND status = ?", modelID, domainml.VersionStatusDeployed).
		Order("deployed_at DESC").
		Order("id DESC").
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type MLTrainingRunRepo interface {
	base.Repo[types.MLTrainingRun]
	LatestForVersion(dbc dbctx.Context, versionID int64, statuses []string) (*types.MLTrainingRun, error)
}

type mlTrainingRunRepo struct {
	base.CRUD[types.MLTrainingRun]
}

func NewMLTrainingRunRepo(db *gorm.DB, baseLog *logger.Logger) MLTrainingRunRepo {
	return &mlTrainingRunRepo{CRUD: base.NewCRUD[types.MLTrainingRun](db, baseLog, "MLTrainingRunRepo")}
}

func (r *mlTrainingRunRepo) LatestForVersion(dbc dbctx.Context, versionID int64, statuses []string) (*types.MLTrainingRun, error) {
	q := dbc.DB(r.DB).Where("model_version_id = ?", versionID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var out types.MLTrainingRun
	err := q.Order("id DESC").Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}
