package runtime

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

func TestTargetIDPrefersColumn(t *testing.T) {
	target := int64(4)
	jc := NewContext(context.Background(), logger.Nop(), &types.Job{
		TargetID: &target,
		Payload:  []byte(`{"dataset_id": 9}`),
	})
	id, ok := jc.TargetID("dataset_id")
	require.True(t, ok)
	assert.Equal(t, int64(4), id)

	jc = NewContext(context.Background(), logger.Nop(), &types.Job{Payload: []byte(`{"dataset_id": 9}`)})
	id, ok = jc.TargetID("dataset_id")
	require.True(t, ok)
	assert.Equal(t, int64(9), id)

	_, ok = jc.TargetID("analysis_run_id")
	assert.False(t, ok)
}

func TestMalformedPayloadIsEmpty(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	log := &logger.Logger{SugaredLogger: zap.New(core).Sugar()}

	jc := NewContext(context.Background(), log, &types.Job{ID: 7, Payload: []byte(`not json`)})
	assert.NotNil(t, jc.Payload())
	assert.Empty(t, jc.Payload())

	warned := logs.FilterMessage("Job payload decode failed").All()
	require.Len(t, warned, 1)
	assert.Equal(t, int64(7), warned[0].ContextMap()["job_id"])
}

func TestTraceDataFromPayload(t *testing.T) {
	jc := NewContext(context.Background(), logger.Nop(), &types.Job{Payload: []byte(`{"trace_id": "abc", "request_id": "r1"}`)})
	td := ctxutil.GetTraceData(jc.Ctx)
	require.NotNil(t, td)
	assert.Equal(t, "abc", td.TraceID)
	assert.Equal(t, "r1", td.RequestID)
}

func TestFirstOutcomeWins(t *testing.T) {
	jc := NewContext(context.Background(), logger.Nop(), &types.Job{})
	jc.Progress("load", "3 rows")
	jc.Fail("load", errors.New("bad file"))
	jc.Succeed("done", map[string]any{"x": 1})

	result, done, err := jc.Outcome()
	assert.True(t, done)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.Equal(t, "load: bad file", err.Error())
	assert.Equal(t, "load: 3 rows\nload: failed: bad file", jc.Trail())
}

type stubHandler string

func (s stubHandler) Type() string       { return string(s) }
func (s stubHandler) Run(*Context) error { return nil }

func TestRegistryRejectsDuplicates(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(stubHandler("b")))
	require.NoError(t, reg.Register(stubHandler("a")))
	assert.Error(t, reg.Register(stubHandler("a")))
	assert.Error(t, reg.Register(stubHandler("")))
	assert.Equal(t, []string{"a", "b"}, reg.Types())

	_, ok := reg.Get("c")
	assert.False(t, ok)
}
