package audit

import (
	"gorm.io/gorm"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

// AuditRepo is append-only: there is no update or delete.
type AuditRepo interface {
	Create(dbc dbctx.Context, rec *types.AuditRecord) error
	List(dbc dbctx.Context, q base.ListQuery) ([]*types.AuditRecord, error)
	ListForEntity(dbc dbctx.Context, entityType string, entityID int64) ([]*types.AuditRecord, error)
}

type auditRepo struct {
	crud base.CRUD[types.AuditRecord]
}

func NewAuditRepo(db *gorm.DB, baseLog *logger.Logger) AuditRepo {
	return &auditRepo{crud: base.NewCRUD[types.AuditRecord](db, baseLog, "AuditRepo")}
}

func (r *auditRepo) Create(dbc dbctx.Context, rec *types.AuditRecord) error {
	return r.crud.Create(dbc, rec)
}

func (r *auditRepo) List(dbc dbctx.Context, q base.ListQuery) ([]*types.AuditRecord, error) {
	return r.crud.List(dbc, q)
}

func (r *auditRepo) ListForEntity(dbc dbctx.Context, entityType string, entityID int64) ([]*types.AuditRecord, error) {
	return r.crud.List(dbc, base.ListQuery{
		Filters: map[string]any{"entity_type": entityType, "entity_id": entityID},
		OrderBy: "created_at",
	})
}
