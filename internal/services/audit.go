package services

import (
	"context"
	"net/url"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

var auditFilter = base.FilterSpec{
	Fields: map[string]base.FieldKind{
		"entity_type": base.KindString, "entity_id": base.KindInt, "event": base.KindString,
		"old_status": base.KindString, "new_status": base.KindString,
	},
	Orderable:    []string{"created_at", "entity_type", "entity_id"},
	DefaultOrder: "created_at",
}

// AuditService reads the transition log. Records are only ever written by
// the lifecycle machine.
type AuditService interface {
	List(ctx context.Context, query url.Values) ([]*types.AuditRecord, error)
	Get(ctx context.Context, id int64) (*types.AuditRecord, error)
	ForEntity(ctx context.Context, entityType string, entityID int64) ([]*types.AuditRecord, error)
}

type auditService struct {
	log   *logger.Logger
	audit repos.AuditRepo
}

func NewAuditService(baseLog *logger.Logger, audit repos.AuditRepo) AuditService {
	return &auditService{log: baseLog.With("service", "AuditService"), audit: audit}
}

func (s *auditService) List(ctx context.Context, query url.Values) ([]*types.AuditRecord, error) {
	q, err := auditFilter.Parse(query)
	if err != nil {
		return nil, err
	}
	out, err := s.audit.List(dbctx.Context{Ctx: ctx}, q)
	if err != nil {
		return nil, db.Classify("list audit records", err)
	}
	return out, nil
}

func (s *auditService) Get(ctx context.Context, id int64) (*types.AuditRecord, error) {
	out, err := s.audit.List(dbctx.Context{Ctx: ctx}, base.ListQuery{Filters: map[string]any{"id": id}, Limit: 1})
	if err != nil {
		return nil, db.Classify("get audit record", err)
	}
	if len(out) == 0 {
		return nil, apierr.NotFound("audit record %d not found", id)
	}
	return out[0], nil
}

func (s *auditService) ForEntity(ctx context.Context, entityType string, entityID int64) ([]*types.AuditRecord, error) {
	out, err := s.audit.ListForEntity(dbctx.Context{Ctx: ctx}, entityType, entityID)
	if err != nil {
		return nil, db.Classify("list audit records", err)
	}
	return out, nil
}
