package base

import (
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

// ListQuery is an exact-match filter set plus ordering. Column names must
// already be whitelisted (see FilterSpec.Parse).
type ListQuery struct {
	Filters map[string]any
	OrderBy string
	Desc    bool
	Limit   int
}

// Repo is the record-level surface every entity repo shares.
type Repo[T any] interface {
	Create(dbc dbctx.Context, row *T) error
	GetByID(dbc dbctx.Context, id int64) (*T, error)
	List(dbc dbctx.Context, q ListQuery) ([]*T, error)
	Count(dbc dbctx.Context, filters map[string]any) (int64, error)
	Save(dbc dbctx.Context, row *T) error
	UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error
	Delete(dbc dbctx.Context, id int64) (bool, error)
}

// CRUD implements Repo for any gorm model with an int64 "id" primary key.
type CRUD[T any] struct {
	DB  *gorm.DB
	Log *logger.Logger
}

func NewCRUD[T any](db *gorm.DB, baseLog *logger.Logger, name string) CRUD[T] {
	return CRUD[T]{DB: db, Log: baseLog.With("repo", name)}
}

func (r CRUD[T]) tx(dbc dbctx.Context) *gorm.DB {
	return dbc.DB(r.DB)
}

func (r CRUD[T]) Create(dbc dbctx.Context, row *T) error {
	if row == nil {
		return nil
	}
	return r.tx(dbc).Create(row).Error
}

// GetByID returns nil, nil when the row does not exist.
func (r CRUD[T]) GetByID(dbc dbctx.Context, id int64) (*T, error) {
	if id <= 0 {
		return nil, nil
	}
	var out T
	err := r.tx(dbc).Where("id = ?", id).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r CRUD[T]) List(dbc dbctx.Context, q ListQuery) ([]*T, error) {
	var out []*T
	query := applyFilters(r.tx(dbc), q.Filters)
	if q.OrderBy != "" {
		query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: q.OrderBy}, Desc: q.Desc})
	}
	query = query.Order("id ASC")
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	if err := query.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r CRUD[T]) Count(dbc dbctx.Context, filters map[string]any) (int64, error) {
	var n int64
	var model T
	err := applyFilters(r.tx(dbc).Model(&model), filters).Count(&n).Error
	return n, err
}

func (r CRUD[T]) Save(dbc dbctx.Context, row *T) error {
	if row == nil {
		return nil
	}
	return r.tx(dbc).Save(row).Error
}

func (r CRUD[T]) UpdateFields(dbc dbctx.Context, id int64, updates map[string]interface{}) error {
	if id <= 0 {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	var model T
	return r.tx(dbc).Model(&model).Where("id = ?", id).Updates(updates).Error
}

// Delete reports whether a row was removed.
func (r CRUD[T]) Delete(dbc dbctx.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, nil
	}
	var model T
	res := r.tx(dbc).Where("id = ?", id).Delete(&model)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func applyFilters(q *gorm.DB, filters map[string]any) *gorm.DB {
	if len(filters) == 0 {
		return q
	}
	keys := make([]string, 0, len(filters))
	for k := range filters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q = q.Where(clause.Eq{Column: clause.Column{Name: strings.TrimSpace(k)}, Value: filters[k]})
	}
	return q
}
