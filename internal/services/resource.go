package services

import (
	"context"
	"net/url"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

// ResourceConfig describes one REST collection. Hooks that run inside a
// transaction must do all their reads through tx.
type ResourceConfig[T any, In any] struct {
	Name   string
	Repo   base.Repo[T]
	Filter base.FilterSpec

	// Build makes a new row from input for the default insert path.
	Build func(tx *lifecycle.Tx, in *In) (*T, error)
	// Create replaces the default insert path (lifecycle constructors).
	Create func(ctx context.Context, in *In) (*T, error)
	// Changes maps a PUT body onto column updates.
	Changes func(tx *lifecycle.Tx, row *T, in *In) (map[string]any, error)
	// AfterWrite runs after insert or update, with the stored row.
	AfterWrite func(tx *lifecycle.Tx, row *T) error
	// BeforeDelete removes owned children or refuses the delete.
	BeforeDelete func(tx *lifecycle.Tx, row *T) error
	// AfterDelete runs once the delete has committed.
	AfterDelete func(ctx context.Context, row *T)
	// Load fetches a single row for GET, e.g. with children preloaded.
	Load func(dbc dbctx.Context, id int64) (*T, error)
}

// Resource is the generic create/read/update/delete surface shared by every
// collection. Lifecycle rows get a "created" audit entry on insert and are
// immutable once terminal; their status is never writable here.
type Resource[T any, In any] struct {
	cfg     ResourceConfig[T, In]
	log     *logger.Logger
	machine *lifecycle.Machine
	guard   repos.CASGuard
}

func NewResource[T any, In any](baseLog *logger.Logger, machine *lifecycle.Machine, cfg ResourceConfig[T, In]) *Resource[T, In] {
	return &Resource[T, In]{
		cfg:     cfg,
		log:     baseLog.With("resource", cfg.Name),
		machine: machine,
		guard:   repos.NewCASGuard(machine.DB()),
	}
}

func (r *Resource[T, In]) Name() string { return r.cfg.Name }

func (r *Resource[T, In]) Create(ctx context.Context, in *In) (*T, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	if r.cfg.Create != nil {
		return r.cfg.Create(ctx, in)
	}
	if r.cfg.Build == nil {
		return nil, apierr.Validation("%s cannot be created directly", r.cfg.Name)
	}
	var row *T
	err := r.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		built, err := r.cfg.Build(tx, in)
		if err != nil {
			return err
		}
		if err := r.cfg.Repo.Create(tx.Context, built); err != nil {
			return db.Classify("create "+r.cfg.Name, err)
		}
		if e, ok := any(built).(lifecycle.Entity); ok {
			if err := tx.Created(e); err != nil {
				return err
			}
		}
		if r.cfg.AfterWrite != nil {
			if err := r.cfg.AfterWrite(tx, built); err != nil {
				return err
			}
		}
		row = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, idOf(row))
}

func (r *Resource[T, In]) Get(ctx context.Context, id int64) (*T, error) {
	dbc := dbctx.Context{Ctx: ctx}
	var (
		row *T
		err error
	)
	if r.cfg.Load != nil {
		row, err = r.cfg.Load(dbc, id)
	} else {
		row, err = r.cfg.Repo.GetByID(dbc, id)
	}
	if err != nil {
		return nil, db.Classify("get "+r.cfg.Name, err)
	}
	if row == nil {
		return nil, apierr.NotFound("%s %d not found", r.cfg.Name, id)
	}
	return row, nil
}

func (r *Resource[T, In]) List(ctx context.Context, query url.Values) ([]*T, error) {
	q, err := r.cfg.Filter.Parse(query)
	if err != nil {
		return nil, err
	}
	rows, err := r.cfg.Repo.List(dbctx.Context{Ctx: ctx}, q)
	if err != nil {
		return nil, db.Classify("list "+r.cfg.Name, err)
	}
	if rows == nil {
		rows = []*T{}
	}
	return rows, nil
}

func (r *Resource[T, In]) Update(ctx context.Context, id int64, in *In) (*T, error) {
	if r.cfg.Changes == nil {
		return nil, apierr.Validation("%s cannot be updated", r.cfg.Name)
	}
	if err := validateInput(in); err != nil {
		return nil, err
	}
	err := r.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		row, err := r.cfg.Repo.GetByID(tx.Context, id)
		if err != nil {
			return db.Classify("get "+r.cfg.Name, err)
		}
		if row == nil {
			return apierr.NotFound("%s %d not found", r.cfg.Name, id)
		}
		e, isLifecycle := any(row).(lifecycle.Entity)
		if isLifecycle && lifecycle.IsTerminal(e.EntityType(), e.GetStatus()) {
			return apierr.InvalidTransition("%s %d is %s and immutable", r.cfg.Name, id, e.GetStatus())
		}
		updates, err := r.cfg.Changes(tx, row, in)
		if err != nil {
			return err
		}
		if updates == nil {
			updates = map[string]any{}
		}

		if isLifecycle {
			delete(updates, "status")
			delete(updates, "lock_version")
			updates["updated_at"] = nowUTC()
			ok, err := r.guard.UpdateByStatusAndVersion(tx.Context, e.EntityType(), id, e.GetStatus(), e.GetLockVersion(), updates)
			if err != nil {
				return db.Classify("update "+r.cfg.Name, err)
			}
			if !ok {
				return apierr.Conflict("%s %d was modified concurrently", r.cfg.Name, id)
			}
		} else if err := r.cfg.Repo.UpdateFields(tx.Context, id, updates); err != nil {
			return db.Classify("update "+r.cfg.Name, err)
		}

		if r.cfg.AfterWrite != nil {
			stored, err := r.cfg.Repo.GetByID(tx.Context, id)
			if err != nil {
				return db.Classify("get "+r.cfg.Name, err)
			}
			return r.cfg.AfterWrite(tx, stored)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *Resource[T, In]) Delete(ctx context.Context, id int64) error {
	var removed *T
	err := r.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		row, err := r.cfg.Repo.GetByID(tx.Context, id)
		if err != nil {
			return db.Classify("get "+r.cfg.Name, err)
		}
		if row == nil {
			return apierr.NotFound("%s %d not found", r.cfg.Name, id)
		}
		if r.cfg.BeforeDelete != nil {
			if err := r.cfg.BeforeDelete(tx, row); err != nil {
				return err
			}
		}
		if _, err := r.cfg.Repo.Delete(tx.Context, id); err != nil {
			return db.Classify("delete "+r.cfg.Name, err)
		}
		removed = row
		return nil
	})
	if err != nil {
		return err
	}
	if r.cfg.AfterDelete != nil {
		r.cfg.AfterDelete(ctx, removed)
	}
	return nil
}

type identified interface{ GetID() int64 }

// idOf reads the primary key; every domain row exposes GetID.
func idOf[T any](row *T) int64 {
	if v, ok := any(row).(identified); ok {
		return v.GetID()
	}
	return 0
}
