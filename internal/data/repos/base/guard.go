package base

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
)

// CASGuard performs compare-and-set writes keyed on id, status and lock_version.
type CASGuard struct {
	db *gorm.DB
}

func NewCASGuard(db *gorm.DB) CASGuard {
	return CASGuard{db: db}
}

// UpdateByStatusAndVersion applies updates only when the row still has the
// expected status and lock_version. lock_version is bumped on success.
func (g CASGuard) UpdateByStatusAndVersion(dbc dbctx.Context, table string, id int64, status string, version int, updates map[string]any) (bool, error) {
	table = strings.TrimSpace(table)
	if table == "" || id <= 0 {
		return false, fmt.Errorf("table and id are required for UpdateByStatusAndVersion")
	}
	set := make(map[string]any, len(updates)+1)
	for k, v := range updates {
		set[k] = v
	}
	set["lock_version"] = gorm.Expr("lock_version + 1")

	res := dbc.DB(g.db).Table(table).
		Where("id = ? AND status = ? AND lock_version = ?", id, status, version).
		Updates(set)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// TouchVersion bumps lock_version without changing status. It is a claim:
// two callers holding the same version cannot both succeed.
func (g CASGuard) TouchVersion(dbc dbctx.Context, table string, id int64, version int) (bool, error) {
	res := dbc.DB(g.db).Table(table).
		Where("id = ? AND lock_version = ?", id, version).
		Update("lock_version", gorm.Expr("lock_version + 1"))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
