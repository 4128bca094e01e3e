package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/domain/audit"
	"github.com/yungbote/tagledger-backend/internal/domain/catalog"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/eventbus"
)

func newMachine(t *testing.T) (*Machine, *gorm.DB, *eventbus.Memory) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	bus := eventbus.NewMemory()
	return NewMachine(db, log, repos.NewAuditRepo(db, log), bus), db, bus
}

func seedDataset(t *testing.T, db *gorm.DB) *types.Dataset {
	t.Helper()
	now := time.Now().UTC()
	tag := &types.Tag{Name: "t1", IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, db.Create(tag).Error)
	ds := &types.Dataset{
		Name:       "ds",
		TagID:      tag.ID,
		SourceType: catalog.SourceTypeManual,
		Status:     catalog.DatasetStatusRegistered,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(ds).Error)
	return ds
}

func TestTransitionWritesAuditAndPublishes(t *testing.T) {
	m, db, bus := newMachine(t)
	ds := seedDataset(t, db)

	require.NoError(t, m.Transition(context.Background(), ds, catalog.DatasetStatusValidated, map[string]any{"num_records": 3}))
	assert.Equal(t, catalog.DatasetStatusValidated, ds.Status)
	assert.Equal(t, 1, ds.LockVersion)

	var stored types.Dataset
	require.NoError(t, db.First(&stored, ds.ID).Error)
	assert.Equal(t, catalog.DatasetStatusValidated, stored.Status)
	assert.Equal(t, 1, stored.LockVersion)
	assert.Equal(t, 3, stored.NumRecords)

	recs, err := repos.NewAuditRepo(db, testutil.Logger(t)).ListForEntity(dbctx.Bg(), KindDataset, ds.ID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, audit.EventTransition, recs[0].Event)
	assert.Equal(t, catalog.DatasetStatusRegistered, recs[0].OldStatus)
	assert.Equal(t, catalog.DatasetStatusValidated, recs[0].NewStatus)

	events := bus.Events()
	require.Len(t, events, 1)
	assert.Equal(t, ds.ID, events[0].EntityID)
	assert.Equal(t, catalog.DatasetStatusValidated, events[0].NewStatus)
}

func TestTransitionRejectsIllegalEdge(t *testing.T) {
	m, db, bus := newMachine(t)
	ds := seedDataset(t, db)

	err := m.Transition(context.Background(), ds, catalog.DatasetStatusProfiled, nil)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.CodeInvalidTransition))
	assert.Equal(t, catalog.DatasetStatusRegistered, ds.Status)
	assert.Empty(t, bus.Events())
}

func TestTransitionStaleVersionConflicts(t *testing.T) {
	m, db, _ := newMachine(t)
	ds := seedDataset(t, db)
	stale := *ds

	require.NoError(t, m.Transition(context.Background(), ds, catalog.DatasetStatusValidated, nil))

	err := m.Transition(context.Background(), &stale, catalog.DatasetStatusFailed, nil)
	require.Error(t, err)
	assert.True(t, apierr.Is(err, apierr.CodeConflict))
}

func TestTerminalStatusesNeverMove(t *testing.T) {
	for _, kind := range Kinds() {
		for _, from := range Statuses(kind) {
			if !IsTerminal(kind, from) {
				continue
			}
			for _, to := range Statuses(kind) {
				assert.Falsef(t, CanTransition(kind, from, to), "%s: %s -> %s", kind, from, to)
			}
		}
	}
	assert.True(t, IsTerminal(KindDataset, catalog.DatasetStatusProfiled))
	assert.True(t, IsTerminal(KindModelVersion, "deployed"))
	assert.True(t, IsTerminal(KindJob, "completed"))
	assert.False(t, IsTerminal(KindJob, "running"))
}

func TestFailedReachableFromEveryNonTerminal(t *testing.T) {
	for _, kind := range Kinds() {
		for _, from := range Statuses(kind) {
			if IsTerminal(kind, from) {
				continue
			}
			assert.Truef(t, CanTransition(kind, from, "failed"), "%s: %s -> failed", kind, from)
		}
	}
}

func TestInTxRollbackPublishesNothing(t *testing.T) {
	m, db, bus := newMachine(t)
	ds := seedDataset(t, db)
	boom := errors.New("boom")

	err := m.InTx(context.Background(), func(tx *Tx) error {
		if err := tx.Transition(ds, catalog.DatasetStatusValidated, nil); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, bus.Events())

	var stored types.Dataset
	require.NoError(t, db.First(&stored, ds.ID).Error)
	assert.Equal(t, catalog.DatasetStatusRegistered, stored.Status)
	assert.Equal(t, 0, stored.LockVersion)
}

func TestSupersedeBumpsVersion(t *testing.T) {
	m, db, bus := newMachine(t)
	ds := seedDataset(t, db)
	ctx := context.Background()
	require.NoError(t, m.Transition(ctx, ds, catalog.DatasetStatusValidated, nil))
	require.NoError(t, m.Transition(ctx, ds, catalog.DatasetStatusProfiled, nil))

	require.NoError(t, m.InTx(ctx, func(tx *Tx) error {
		return tx.Supersede(ds, "profile regenerated", map[string]any{"row_count": 1})
	}))
	assert.Equal(t, catalog.DatasetStatusProfiled, ds.Status)
	assert.Equal(t, 3, ds.LockVersion)

	events := bus.Events()
	require.Len(t, events, 3)
	assert.Equal(t, audit.EventSupersede, events[2].Event)
}
