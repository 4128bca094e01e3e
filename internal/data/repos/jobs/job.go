package jobs

import (
	"strings"

	"gorm.io/gorm"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type JobRepo interface {
	base.Repo[types.Job]
	ListPending(dbc dbctx.Context, queue string, limit int) ([]*types.Job, error)
}

type jobRepo struct {
	base.CRUD[types.Job]
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{CRUD: base.NewCRUD[types.Job](db, baseLog, "JobRepo")}
}

// ListPending returns queued jobs, highest priority first, then oldest first.
// An empty queue matches every queue.
func (r *jobRepo) ListPending(dbc dbctx.Context, queue string, limit int) ([]*types.Job, error) {
	q := dbc.DB(r.DB).Where("status = ?", domainjobs.StatusQueued)
	if queue = strings.TrimSpace(queue); queue != "" {
		q = q.Where("queue = ?", queue)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []*types.Job
	err := q.Order("priority DESC").Order("created_at ASC").Order("id ASC").Find(&out).Error
	return out, err
}
