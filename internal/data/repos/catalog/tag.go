package catalog

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type TagRepo interface {
	base.Repo[types.Tag]
	GetByName(dbc dbctx.Context, name string) (*types.Tag, error)
}

type tagRepo struct {
	base.CRUD[types.Tag]
}

func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo {
	return &tagRepo{CRUD: base.NewCRUD[types.Tag](db, baseLog, "TagRepo")}
}

// GetByName returns nil, nil for an unknown name.
func (r *tagRepo) GetByName(dbc dbctx.Context, name string) (*types.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var tag types.Tag
	err := dbc.DB(r.DB).Where("name = ?", name).Take(&tag).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tag, nil
}
