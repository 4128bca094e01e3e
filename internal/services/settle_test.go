package services

import (
	"context"
	"io"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainanalysis "github.com/yungbote/tagledger-backend/internal/domain/analysis"
	domainml "github.com/yungbote/tagledger-backend/internal/domain/mlops"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/blobstore"
)

// hookStore runs a one-shot hook before the next matching Put or Open. A
// non-nil hook error is returned instead of touching the inner store.
type hookStore struct {
	blobstore.Store
	onPut  func(ctx context.Context, key string) error
	onOpen func(ctx context.Context, key string) error
}

func (h *hookStore) Put(ctx context.Context, key string, r io.Reader) error {
	if fn := h.onPut; fn != nil && strings.HasPrefix(key, "models/") {
		h.onPut = nil
		if err := fn(ctx, key); err != nil {
			return err
		}
	}
	return h.Store.Put(ctx, key, r)
}

func (h *hookStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if fn := h.onOpen; fn != nil {
		h.onOpen = nil
		if err := fn(ctx, key); err != nil {
			return nil, err
		}
	}
	return h.Store.Open(ctx, key)
}

func newHookEnv(t *testing.T) (*testEnv, *hookStore) {
	t.Helper()
	hooks := &hookStore{}
	env := newEnvWithBlobs(t, func(s blobstore.Store) blobstore.Store {
		hooks.Store = s
		return hooks
	})
	return env, hooks
}

func (e *testEnv) trainingRuns(t *testing.T, versionID int64) map[string]int {
	t.Helper()
	runs, err := e.MLOps.TrainingRuns().List(context.Background(), map[string][]string{
		"model_version_id": {strconv.FormatInt(versionID, 10)},
	})
	require.NoError(t, err)
	out := map[string]int{}
	for _, r := range runs {
		out[r.Status]++
	}
	return out
}

func TestExecuteSettlesAfterCallerCancels(t *testing.T) {
	env, hooks := newHookEnv(t)
	tmpl, ds := analysisFixture(t, env, `{"aggregation": "mean", "columns": ["v"]}`)
	run, err := env.Analysis.CreateRun(context.Background(), &RunInput{TemplateID: tmpl.ID, DatasetID: &ds.ID})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hooks.onOpen = func(ctx context.Context, _ string) error {
		cancel()
		return ctx.Err()
	}

	got, err := env.Analysis.Execute(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domainanalysis.RunStatusFailed, got.Status)
	assert.Contains(t, got.Error, context.Canceled.Error())
	require.NotNil(t, got.FinishedAt)

	stored, err := env.Analysis.Runs().Get(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domainanalysis.RunStatusFailed, stored.Status)
}

func TestExecuteReentryLosesToRunningClaim(t *testing.T) {
	env, hooks := newHookEnv(t)
	ctx := context.Background()
	tmpl, ds := analysisFixture(t, env, `{"aggregation": "mean", "columns": ["v"]}`)
	run, err := env.Analysis.CreateRun(ctx, &RunInput{TemplateID: tmpl.ID, DatasetID: &ds.ID})
	require.NoError(t, err)

	var innerErr error
	hooks.onOpen = func(ctx context.Context, _ string) error {
		_, innerErr = env.Analysis.Execute(ctx, run.ID)
		return nil
	}

	got, err := env.Analysis.Execute(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domainanalysis.RunStatusCompleted, got.Status)
	assertCode(t, innerErr, "invalid_transition")
	assert.Equal(t, []string{
		"created:pending",
		"transition:running",
		"transition:completed",
	}, env.auditEvents(t, lifecycle.KindAnalysisRun, run.ID))
}

func TestTrainSettlesAfterCallerCancels(t *testing.T) {
	env, hooks := newHookEnv(t)
	_, v := modelFixture(t, env, "t1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hooks.onPut = func(ctx context.Context, _ string) error {
		cancel()
		return ctx.Err()
	}

	got, err := env.MLOps.Train(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domainml.VersionStatusFailed, got.Status)
	assert.Empty(t, got.ArtifactPath)
	assert.Equal(t, map[string]int{domainml.TrainingStatusFailed: 1}, env.trainingRuns(t, v.ID))
}

func TestTrainReentryConflictsAndKeepsArtifact(t *testing.T) {
	env, hooks := newHookEnv(t)
	ctx := context.Background()
	_, v := modelFixture(t, env, "t1")

	var innerErr error
	hooks.onPut = func(ctx context.Context, _ string) error {
		_, innerErr = env.MLOps.Train(ctx, v.ID)
		return nil
	}

	got, err := env.MLOps.Train(ctx, v.ID)
	require.NoError(t, err)
	assertCode(t, innerErr, "conflict")
	assert.Equal(t, domainml.VersionStatusTrained, got.Status)
	assert.Equal(t, map[string]int{domainml.TrainingStatusCompleted: 1}, env.trainingRuns(t, v.ID))

	artifact, err := blobstore.ReadAll(ctx, env.blobs, got.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0", decode(t, artifact)["version"])
}

func TestArtifactKeyIsPerRun(t *testing.T) {
	assert.Equal(t, "models/speed_model_v1.0_7.json", ArtifactKey("speed model", "1.0", 7))
	assert.NotEqual(t, ArtifactKey("m", "1.0", 1), ArtifactKey("m", "1.0", 2))
}
