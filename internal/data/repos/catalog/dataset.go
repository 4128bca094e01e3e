package catalog

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type DatasetRepo interface {
	base.Repo[types.Dataset]
	GetWithChildren(dbc dbctx.Context, id int64) (*types.Dataset, error)
}

type datasetRepo struct {
	base.CRUD[types.Dataset]
}

func NewDatasetRepo(db *gorm.DB, baseLog *logger.Logger) DatasetRepo {
	return &datasetRepo{CRUD: base.NewCRUD[types.Dataset](db, baseLog, "DatasetRepo")}
}

// GetWithChildren loads files (in upload order) and the profile.
func (r *datasetRepo) GetWithChildren(dbc dbctx.Context, id int64) (*types.Dataset, error) {
	if id <= 0 {
		return nil, nil
	}
	var out types.Dataset
	err := dbc.DB(r.DB).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC, id ASC") }).
		Preload("Profile").
		Where("id = ?", id).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type DatasetFileRepo interface {
	base.Repo[types.DatasetFile]
	LatestForDataset(dbc dbctx.Context, datasetID int64) (*types.DatasetFile, error)
	NextPosition(dbc dbctx.Context, datasetID int64) (int, error)
	DeleteByDataset(dbc dbctx.Context, datasetID int64) error
}

type datasetFileRepo struct {
	base.CRUD[types.DatasetFile]
}

func NewDatasetFileRepo(db *gorm.DB, baseLog *logger.Logger) DatasetFileRepo {
	return &datasetFileRepo{CRUD: base.NewCRUD[types.DatasetFile](db, baseLog, "DatasetFileRepo")}
}

func (r *datasetFileRepo) LatestForDataset(dbc dbctx.Context, datasetID int64) (*types.DatasetFile, error) {
	var out types.DatasetFile
	err := dbc.DB(r.DB).
		Where("dataset_id = ?", datasetID).
		Order("position DESC, id DESC").
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *datasetFileRepo) NextPosition(dbc dbctx.Context, datasetID int64) (int, error) {
	var maxPos int64
	err := dbc.DB(r.DB).
		Model(&types.DatasetFile{}).
		Where("dataset_id = ?", datasetID).
		Select("COALESCE(MAX(position), -1)").
		Row().
		Scan(&maxPos)
	if err != nil {
		return 0, err
	}
	return int(maxPos) + 1, nil
}

func (r *datasetFileRepo) DeleteByDataset(dbc dbctx.Context, datasetID int64) error {
	return dbc.DB(r.DB).Where("dataset_id = ?", datasetID).Delete(&types.DatasetFile{}).Error
}

type DatasetProfileRepo interface {
	base.Repo[types.DatasetProfile]
	Upsert(dbc dbctx.Context, p *types.DatasetProfile) error
	GetByDataset(dbc dbctx.Context, datasetID int64) (*types.DatasetProfile, error)
	DeleteByDataset(dbc dbctx.Context, datasetID int64) error
}

type datasetProfileRepo struct {
	base.CRUD[types.DatasetProfile]
}

func NewDatasetProfileRepo(db *gorm.DB, baseLog *logger.Logger) DatasetProfileRepo {
	return &datasetProfileRepo{CRUD: base.NewCRUD[types.DatasetProfile](db, baseLog, "DatasetProfileRepo")}
}

// Upsert replaces the dataset's profile in place, keyed on dataset_id.
func (r *datasetProfileRepo) Upsert(dbc dbctx.Context, p *types.DatasetProfile) error {
	if p == nil {
		return nil
	}
	now := time.Now().UTC()
	p.ID = 0
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = now
	}
	p.UpdatedAt = now
	err := dbc.DB(r.DB).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dataset_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"row_count", "column_count", "profile_data", "generated_at", "updated_at"}),
	}).Create(p).Error
	if err != nil {
		return err
	}
	// the insert path may not report the surviving row's id on conflict
	stored, err := r.GetByDataset(dbc, p.DatasetID)
	if err != nil {
		return err
	}
	if stored != nil {
		*p = *stored
	}
	return nil
}

func (r *datasetProfileRepo) GetByDataset(dbc dbctx.Context, datasetID int64) (*types.DatasetProfile, error) {
	var out types.DatasetProfile
	err := dbc.DB(r.DB).Where("dataset_id = ?", datasetID).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *datasetProfileRepo) DeleteByDataset(dbc dbctx.Context, datasetID int64) error {
	return dbc.DB(r.DB).Where("dataset_id = ?", datasetID).Delete(&types.DatasetProfile{}).Error
}
