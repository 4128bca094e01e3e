package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/testutil"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/blobstore"
	"github.com/yungbote/tagledger-backend/internal/platform/eventbus"
)

type testEnv struct {
	db    *gorm.DB
	bus   *eventbus.Memory
	blobs blobstore.Store

	Tags     TagService
	Schemas  SchemaService
	Datasets DatasetService
	Analysis AnalysisService
	MLOps    MLOpsService
	Jobs     JobService
	Audit    AuditService
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	return newEnvWithBlobs(t, nil)
}

// newEnvWithBlobs lets a test wrap the local blob store the services use.
func newEnvWithBlobs(t *testing.T, wrap func(blobstore.Store) blobstore.Store) *testEnv {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	bus := eventbus.NewMemory()
	blobs, err := blobstore.NewLocal(log, t.TempDir())
	require.NoError(t, err)
	if wrap != nil {
		blobs = wrap(blobs)
	}

	auditRepo := repos.NewAuditRepo(db, log)
	machine := lifecycle.NewMachine(db, log, auditRepo, bus)

	tags := repos.NewTagRepo(db, log)
	schemas := repos.NewDataSchemaRepo(db, log)
	fields := repos.NewDataFieldRepo(db, log)
	datasets := repos.NewDatasetRepo(db, log)
	files := repos.NewDatasetFileRepo(db, log)
	profiles := repos.NewDatasetProfileRepo(db, log)
	templates := repos.NewAnalysisTemplateRepo(db, log)
	runs := repos.NewAnalysisRunRepo(db, log)
	models := repos.NewMLModelRepo(db, log)
	versions := repos.NewMLModelVersionRepo(db, log)
	trainingRuns := repos.NewMLTrainingRunRepo(db, log)
	jobs := repos.NewJobRepo(db, log)

	env := &testEnv{db: db, bus: bus, blobs: blobs}
	env.Tags = NewTagService(log, machine, tags, schemas, datasets, templates, models)
	env.Schemas = NewSchemaService(log, machine, tags, schemas, fields, datasets)
	env.Datasets = NewDatasetService(log, machine, blobs, 1<<20, tags, schemas, fields, datasets, files, profiles, runs, trainingRuns, versions)
	env.Analysis = NewAnalysisService(log, machine, tags, templates, runs, datasets, env.Datasets)
	env.MLOps = NewMLOpsService(log, machine, blobs, tags, models, versions, trainingRuns, datasets)
	env.Jobs = NewJobService(log, machine, jobs)
	env.Audit = NewAuditService(log, auditRepo)
	return env
}

func ptr[T any](v T) *T { return &v }

func (e *testEnv) tag(t *testing.T, name string) *types.Tag {
	t.Helper()
	tag, err := e.Tags.Resource().Create(context.Background(), &TagInput{Name: name})
	require.NoError(t, err)
	return tag
}

func (e *testEnv) speedSchema(t *testing.T, tagID int64, isDefault bool) *types.DataSchema {
	t.Helper()
	sc, err := e.Schemas.Schemas().Create(context.Background(), &SchemaInput{
		Name:      "speed-" + strings.ReplaceAll(t.Name(), "/", "_"),
		TagID:     tagID,
		IsDefault: isDefault,
		Fields:    []SchemaFieldInput{{Name: "speed", FieldType: "integer", Required: true}},
	})
	require.NoError(t, err)
	return sc
}

// uploadedDataset registers a dataset under tagID and uploads body as name.
func (e *testEnv) uploadedDataset(t *testing.T, tagID int64, schemaID *int64, name, body string) *types.Dataset {
	t.Helper()
	ctx := context.Background()
	ds, err := e.Datasets.Register(ctx, &DatasetInput{Name: "ds", TagID: tagID, SchemaID: schemaID})
	require.NoError(t, err)
	_, err = e.Datasets.Upload(ctx, ds.ID, Upload{FileName: name, Body: strings.NewReader(body)})
	require.NoError(t, err)
	return ds
}

func decode(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func (e *testEnv) auditEvents(t *testing.T, kind string, id int64) []string {
	t.Helper()
	recs, err := e.Audit.ForEntity(context.Background(), kind, id)
	require.NoError(t, err)
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Event+":"+r.NewStatus)
	}
	return out
}

func TestTagDeleteRefusedWhileReferenced(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	env.speedSchema(t, tag.ID, false)

	err := env.Tags.Resource().Delete(ctx, tag.ID)
	assertCode(t, err, "conflict")

	lone := env.tag(t, "t2")
	require.NoError(t, env.Tags.Resource().Delete(ctx, lone.ID))
	_, err = env.Tags.Resource().Get(ctx, lone.ID)
	assertCode(t, err, "not_found")
}

func TestTagResolveCollectsEntities(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	env.speedSchema(t, tag.ID, true)
	_, err := env.Datasets.Register(ctx, &DatasetInput{Name: "ds", TagID: tag.ID})
	require.NoError(t, err)

	got, err := env.Tags.Resolve(ctx, "t1")
	require.NoError(t, err)
	assert.Len(t, got.Schemas, 1)
	assert.Len(t, got.Datasets, 1)
	assert.Empty(t, got.Models)

	_, err = env.Tags.Resolve(ctx, "missing")
	assertCode(t, err, "not_found")
}

func TestDefaultSchemaMovesBetweenSchemas(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")

	first, err := env.Schemas.Schemas().Create(ctx, &SchemaInput{Name: "a", TagID: tag.ID, IsDefault: true})
	require.NoError(t, err)
	second, err := env.Schemas.Schemas().Create(ctx, &SchemaInput{Name: "b", TagID: tag.ID, IsDefault: true})
	require.NoError(t, err)

	def, err := env.Tags.DefaultSchema(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	reloaded, err := env.Schemas.Schemas().Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)

	_, err = env.Schemas.Schemas().Update(ctx, first.ID, &SchemaInput{Name: "a", TagID: tag.ID, IsDefault: true})
	require.NoError(t, err)
	def, err = env.Tags.DefaultSchema(ctx, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, def.ID)
}

func TestSchemaRejectsDuplicateFieldNames(t *testing.T) {
	env := newEnv(t)
	tag := env.tag(t, "t1")
	_, err := env.Schemas.Schemas().Create(context.Background(), &SchemaInput{
		Name:  "dup",
		TagID: tag.ID,
		Fields: []SchemaFieldInput{
			{Name: "speed", FieldType: "integer"},
			{Name: "speed", FieldType: "float"},
		},
	})
	assertCode(t, err, "validation_error")
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.Truef(t, apierr.Is(err, code), "want %s, got %v", code, err)
}
