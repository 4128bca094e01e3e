package catalog

import (
	"errors"
	"time"

	"gorm.io/gorm"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type DataSchemaRepo interface {
	base.Repo[types.DataSchema]
	GetWithFields(dbc dbctx.Context, id int64) (*types.DataSchema, error)
	GetDefaultForTag(dbc dbctx.Context, tagID int64) (*types.DataSchema, error)
	ClearDefault(dbc dbctx.Context, tagID int64, exceptID int64) error
}

type dataSchemaRepo struct {
	base.CRUD[types.DataSchema]
}

func NewDataSchemaRepo(db *gorm.DB, baseLog *logger.Logger) DataSchemaRepo {
	return &dataSchemaRepo{CRUD: base.NewCRUD[types.DataSchema](db, baseLog, "DataSchemaRepo")}
}

func (r *dataSchemaRepo) GetWithFields(dbc dbctx.Context, id int64) (*types.DataSchema, error) {
	if id <= 0 {
		return nil, nil
	}
	var out types.DataSchema
	err := dbc.DB(r.DB).
		Preload("Fields", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
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

func (r *dataSchemaRepo) GetDefaultForTag(dbc dbctx.Context, tagID int64) (*types.DataSchema, error) {
	var out types.DataSchema
	err := dbc.DB(r.DB).
		Where("tag_id = ? AND is_default = ?", tagID, true).
		Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearDefault unsets is_default on every schema of the tag except exceptID.
func (r *dataSchemaRepo) ClearDefault(dbc dbctx.Context, tagID int64, exceptID int64) error {
	return dbc.DB(r.DB).
		Model(&types.DataSchema{}).
		Where("tag_id = ? AND is_default = ? AND id <> ?", tagID, true, exceptID).
		Updates(map[string]interface{}{"is_default": false, "updated_at": time.Now().UTC()}).Error
}

type DataFieldRepo interface {
	base.Repo[types.DataField]
	ListBySchema(dbc dbctx.Context, schemaID int64) ([]*types.DataField, error)
	DeleteBySchema(dbc dbctx.Context, schemaID int64) error
}

type dataFieldRepo struct {
	base.CRUD[types.DataField]
}

func NewDataFieldRepo(db *gorm.DB, baseLog *logger.Logger) DataFieldRepo {
	return &dataFieldRepo{CRUD: base.NewCRUD[types.DataField](db, baseLog, "DataFieldRepo")}
}

func (r *dataFieldRepo) ListBySchema(dbc dbctx.Context, schemaID int64) ([]*types.DataField, error) {
	return r.List(dbc, base.ListQuery{Filters: map[string]any{"schema_id": schemaID}})
}

func (r *dataFieldRepo) DeleteBySchema(dbc dbctx.Context, schemaID int64) error {
	return dbc.DB(r.DB).Where("schema_id = ?", schemaID).Delete(&types.DataField{}).Error
}
