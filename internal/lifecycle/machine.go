package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/tagledger-backend/internal/data/repos"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/domain/audit"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/eventbus"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

// Entity is a row that moves through a status machine. The entity type
// doubles as the table name.
type Entity interface {
	EntityType() string
	GetID() int64
	GetStatus() string
	GetLockVersion() int
	SetLifecycle(status string, lockVersion int, at time.Time)
}

type Machine struct {
	db    *gorm.DB
	log   *logger.Logger
	guard repos.CASGuard
	audit repos.AuditRepo
	bus   eventbus.Bus
}

func NewMachine(db *gorm.DB, baseLog *logger.Logger, auditRepo repos.AuditRepo, bus eventbus.Bus) *Machine {
	if bus == nil {
		bus = eventbus.Nop()
	}
	return &Machine{
		db:    db,
		log:   baseLog.With("component", "Lifecycle"),
		guard: repos.NewCASGuard(db),
		audit: auditRepo,
		bus:   bus,
	}
}

func (m *Machine) DB() *gorm.DB { return m.db }

// Tx is one database transaction plus the lifecycle events it produced.
// Events are published only after the transaction commits.
type Tx struct {
	dbctx.Context
	m      *Machine
	events []eventbus.Event
}

// InTx runs fn in a new transaction. On commit the collected events are
// published; on error nothing is.
func (m *Machine) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var t *Tx
	err := m.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		t = &Tx{Context: dbctx.Context{Ctx: ctx, Tx: gtx}, m: m}
		return fn(t)
	})
	if err != nil {
		return err
	}
	m.publish(ctx, t.events)
	return nil
}

// Transition moves e to the given status in its own transaction.
func (m *Machine) Transition(ctx context.Context, e Entity, to string, updates map[string]any) error {
	return m.InTx(ctx, func(tx *Tx) error {
		return tx.Transition(e, to, updates)
	})
}

// Transition performs a guarded status change and records it. updates are
// extra columns written in the same statement.
func (t *Tx) Transition(e Entity, to string, updates map[string]any) error {
	return t.TransitionWithMessage(e, to, updates, "")
}

func (t *Tx) TransitionWithMessage(e Entity, to string, updates map[string]any, message string) error {
	kind := e.EntityType()
	from := e.GetStatus()
	if !knownStatus(kind, to) {
		return apierr.Validation("unknown %s status %q", kind, to)
	}
	if !CanTransition(kind, from, to) {
		if IsTerminal(kind, from) {
			return apierr.InvalidTransition("%s %d is %s and cannot change", kind, e.GetID(), from)
		}
		return apierr.InvalidTransition("%s %d cannot move from %s to %s", kind, e.GetID(), from, to)
	}

	now := time.Now().UTC()
	set := make(map[string]any, len(updates)+2)
	for k, v := range updates {
		set[k] = v
	}
	set["status"] = to
	set["updated_at"] = now

	ok, err := t.m.guard.UpdateByStatusAndVersion(t.Context, kind, e.GetID(), from, e.GetLockVersion(), set)
	if err != nil {
		return fmt.Errorf("transition %s %d: %w", kind, e.GetID(), err)
	}
	if !ok {
		return apierr.Conflict("%s %d was modified concurrently", kind, e.GetID())
	}

	if err := t.record(kind, e.GetID(), audit.EventTransition, from, to, message, nil, now); err != nil {
		return err
	}
	e.SetLifecycle(to, e.GetLockVersion()+1, now)
	t.queue(kind, e.GetID(), audit.EventTransition, from, to, now)
	return nil
}

// Created records the creation of a lifecycle row that was just inserted in
// this transaction.
func (t *Tx) Created(e Entity) error {
	now := time.Now().UTC()
	if err := t.record(e.EntityType(), e.GetID(), audit.EventCreated, "", e.GetStatus(), "", nil, now); err != nil {
		return err
	}
	t.queue(e.EntityType(), e.GetID(), audit.EventCreated, "", e.GetStatus(), now)
	return nil
}

// Supersede records a child-record replacement on a row whose status does
// not change (e.g. re-profiling a profiled dataset). The row's lock_version
// is bumped so concurrent supersedes cannot both win.
func (t *Tx) Supersede(e Entity, message string, payload any) error {
	kind := e.EntityType()
	ok, err := t.m.guard.TouchVersion(t.Context, kind, e.GetID(), e.GetLockVersion())
	if err != nil {
		return fmt.Errorf("supersede %s %d: %w", kind, e.GetID(), err)
	}
	if !ok {
		return apierr.Conflict("%s %d was modified concurrently", kind, e.GetID())
	}
	now := time.Now().UTC()
	if err := t.record(kind, e.GetID(), audit.EventSupersede, e.GetStatus(), e.GetStatus(), message, payload, now); err != nil {
		return err
	}
	e.SetLifecycle(e.GetStatus(), e.GetLockVersion()+1, now)
	t.queue(kind, e.GetID(), audit.EventSupersede, e.GetStatus(), e.GetStatus(), now)
	return nil
}

func (t *Tx) record(kind string, id int64, event, from, to, message string, payload any, at time.Time) error {
	rec := &types.AuditRecord{
		EntityType: kind,
		EntityID:   id,
		Event:      event,
		OldStatus:  from,
		NewStatus:  to,
		Message:    message,
		CreatedAt:  at,
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("audit payload: %w", err)
		}
		rec.Payload = datatypes.JSON(b)
	}
	if err := t.m.audit.Create(t.Context, rec); err != nil {
		return fmt.Errorf("audit %s %d: %w", kind, id, err)
	}
	return nil
}

func (t *Tx) queue(kind string, id int64, event, from, to string, at time.Time) {
	ev := eventbus.Event{
		EntityType: kind,
		EntityID:   id,
		Event:      event,
		OldStatus:  from,
		NewStatus:  to,
		At:         at,
	}
	if td := ctxutil.GetTraceData(t.Ctx); td != nil {
		ev.TraceID = td.TraceID
	}
	t.events = append(t.events, ev)
}

func (m *Machine) publish(ctx context.Context, events []eventbus.Event) {
	for _, ev := range events {
		if err := m.bus.Publish(ctx, ev); err != nil {
			m.log.Warn("publish lifecycle event failed",
				"entity_type", ev.EntityType,
				"entity_id", ev.EntityID,
				"event", ev.Event,
				"error", err,
			)
		}
	}
}
