package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	types "github.com/yungbote/tagledger-backend/internal/domain"
	domainanalysis "github.com/yungbote/tagledger-backend/internal/domain/analysis"
	"github.com/yungbote/tagledger-backend/internal/domain/catalog"
	domainjobs "github.com/yungbote/tagledger-backend/internal/domain/jobs"
	domainml "github.com/yungbote/tagledger-backend/internal/domain/mlops"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/blobstore"
)

func TestSpeedScenario(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	sc := env.speedSchema(t, tag.ID, false)
	ds := env.uploadedDataset(t, tag.ID, &sc.ID, "speed.json", `[{"speed": 60}]`)

	res, err := env.Datasets.Validate(ctx, ds.ID)
	require.NoError(t, err)
	assert.True(t, res.Report.Valid)
	assert.Empty(t, res.Report.Errors)
	assert.Equal(t, catalog.DatasetStatusValidated, res.Dataset.Status)
	assert.Equal(t, 1, res.Dataset.NumRecords)

	profile, err := env.Datasets.Profile(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, profile.RowCount)

	cols := decode(t, profile.ProfileData)
	speed, ok := cols["speed"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 60.0, speed["min"])
	assert.Equal(t, 60.0, speed["max"])
	assert.Equal(t, 60.0, speed["mean"])
	assert.Equal(t, 0.0, speed["null_count"])

	got, err := env.Datasets.Datasets().Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.DatasetStatusProfiled, got.Status)
	assert.Equal(t, []string{
		"created:registered",
		"transition:validated",
		"transition:profiled",
	}, env.auditEvents(t, lifecycle.KindDataset, ds.ID))
}

func TestRegisterAttachesDefaultSchema(t *testing.T) {
	env := newEnv(t)
	tag := env.tag(t, "t1")
	sc := env.speedSchema(t, tag.ID, true)

	ds, err := env.Datasets.Register(context.Background(), &DatasetInput{Name: "ds", TagID: tag.ID})
	require.NoError(t, err)
	require.NotNil(t, ds.SchemaID)
	assert.Equal(t, sc.ID, *ds.SchemaID)
	assert.Equal(t, catalog.SourceTypeUpload, ds.SourceType)
	assert.Equal(t, catalog.DatasetStatusRegistered, ds.Status)
}

func TestRegisterUnknownTagIsNotFound(t *testing.T) {
	env := newEnv(t)
	_, err := env.Datasets.Register(context.Background(), &DatasetInput{Name: "ds", TagID: 99})
	assertCode(t, err, "not_found")
}

func TestValidateRecordsViolations(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	sc := env.speedSchema(t, tag.ID, false)
	ds := env.uploadedDataset(t, tag.ID, &sc.ID, "speed.csv", "speed,extra\nfast,1\n")

	res, err := env.Datasets.Validate(ctx, ds.ID)
	require.NoError(t, err)
	assert.False(t, res.Report.Valid)
	require.NotEmpty(t, res.Report.Errors)
	assert.Equal(t, "speed", res.Report.Errors[0].Field)
	require.Len(t, res.Report.Warnings, 1)
	assert.Equal(t, "extra", res.Report.Warnings[0].Field)
	assert.Equal(t, catalog.DatasetStatusFailed, res.Dataset.Status)

	stored := decode(t, res.Dataset.ValidationReport)
	assert.Equal(t, false, stored["valid"])

	_, err = env.Datasets.Validate(ctx, ds.ID)
	assertCode(t, err, "invalid_transition")
}

func TestValidateWithoutFileFails(t *testing.T) {
	env := newEnv(t)
	tag := env.tag(t, "t1")
	ds, err := env.Datasets.Register(context.Background(), &DatasetInput{Name: "ds", TagID: tag.ID})
	require.NoError(t, err)

	res, err := env.Datasets.Validate(context.Background(), ds.ID)
	require.NoError(t, err)
	assert.False(t, res.Report.Valid)
	assert.Equal(t, catalog.DatasetStatusFailed, res.Dataset.Status)
}

func TestProfileTwiceKeepsOneProfile(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	ds := env.uploadedDataset(t, tag.ID, nil, "rows.jsonl", "{\"a\": 1}\n{\"a\": 3}\n")

	_, err := env.Datasets.Validate(ctx, ds.ID)
	require.NoError(t, err)
	first, err := env.Datasets.Profile(ctx, ds.ID)
	require.NoError(t, err)
	second, err := env.Datasets.Profile(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var n int64
	require.NoError(t, env.db.Model(&types.DatasetProfile{}).Where("dataset_id = ?", ds.ID).Count(&n).Error)
	assert.Equal(t, int64(1), n)

	got, err := env.Datasets.Datasets().Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.DatasetStatusProfiled, got.Status)
	assert.Equal(t, 3, got.LockVersion)
	events := env.auditEvents(t, lifecycle.KindDataset, ds.ID)
	assert.Equal(t, "supersede:profiled", events[len(events)-1])
}

func TestProfileRequiresValidation(t *testing.T) {
	env := newEnv(t)
	tag := env.tag(t, "t1")
	ds := env.uploadedDataset(t, tag.ID, nil, "rows.json", `[{"a": 1}]`)

	_, err := env.Datasets.Profile(context.Background(), ds.ID)
	assertCode(t, err, "invalid_transition")
}

func TestProfileUnreadableFileFailsDataset(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	ds := env.uploadedDataset(t, tag.ID, nil, "rows.json", `[{"a": 1}]`)
	_, err := env.Datasets.Validate(ctx, ds.ID)
	require.NoError(t, err)

	full, err := env.Datasets.Datasets().Get(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, full.Files, 1)
	require.NoError(t, env.blobs.Delete(ctx, full.Files[0].StorageKey))

	_, err = env.Datasets.Profile(ctx, ds.ID)
	assertCode(t, err, "execution_failure")

	got, err := env.Datasets.Datasets().Get(ctx, ds.ID)
	require.NoError(t, err)
	assert.Equal(t, catalog.DatasetStatusFailed, got.Status)
}

func TestUploadStoresChecksumAndRejectsAfterValidation(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	ds := env.uploadedDataset(t, tag.ID, nil, "rows.csv", "a\n1\n")

	full, err := env.Datasets.Datasets().Get(ctx, ds.ID)
	require.NoError(t, err)
	require.Len(t, full.Files, 1)
	f := full.Files[0]
	assert.Equal(t, catalog.FormatCSV, f.FileFormat)
	assert.Equal(t, int64(4), f.FileSize)
	assert.Len(t, f.Checksum, 64)
	assert.True(t, strings.HasSuffix(f.StorageKey, "/rows.csv"))

	_, err = env.Datasets.Upload(ctx, ds.ID, Upload{FileName: "notes.txt", Body: strings.NewReader("x")})
	assertCode(t, err, "validation_error")

	_, err = env.Datasets.Validate(ctx, ds.ID)
	require.NoError(t, err)
	_, err = env.Datasets.Upload(ctx, ds.ID, Upload{FileName: "more.csv", Body: strings.NewReader("a\n2\n")})
	assertCode(t, err, "invalid_transition")
}

func TestDatasetDeleteRemovesFilesAndBlobs(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	ds := env.uploadedDataset(t, tag.ID, nil, "rows.csv", "a\n1\n")
	full, err := env.Datasets.Datasets().Get(ctx, ds.ID)
	require.NoError(t, err)
	key := full.Files[0].StorageKey

	require.NoError(t, env.Datasets.Datasets().Delete(ctx, ds.ID))
	_, err = env.blobs.Open(ctx, key)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestUpdateTerminalRowIsImmutable(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	ds, err := env.Datasets.Register(ctx, &DatasetInput{Name: "ds", TagID: tag.ID})
	require.NoError(t, err)
	_, err = env.Datasets.Validate(ctx, ds.ID)
	require.NoError(t, err)

	_, err = env.Datasets.Datasets().Update(ctx, ds.ID, &DatasetInput{Name: "renamed", TagID: tag.ID})
	assertCode(t, err, "invalid_transition")
}

func TestUpdateNeverTouchesStatus(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	ds, err := env.Datasets.Register(ctx, &DatasetInput{Name: "ds", TagID: tag.ID})
	require.NoError(t, err)

	got, err := env.Datasets.Datasets().Update(ctx, ds.ID, &DatasetInput{Name: "renamed", TagID: tag.ID, SourceType: catalog.SourceTypeManual})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, catalog.DatasetStatusRegistered, got.Status)
	assert.Equal(t, 1, got.LockVersion)
}

func analysisFixture(t *testing.T, env *testEnv, config string) (*types.AnalysisTemplate, *types.Dataset) {
	t.Helper()
	ctx := context.Background()
	tag := env.tag(t, "t1")
	ds := env.uploadedDataset(t, tag.ID, nil, "rows.json", `[{"g": "a", "v": 1}, {"g": "a", "v": 3}, {"g": "b", "v": 10}]`)
	tmpl, err := env.Analysis.Templates().Create(ctx, &TemplateInput{
		Name:          "stats",
		TagID:         tag.ID,
		TemplateType:  "summary",
		Configuration: json.RawMessage(config),
	})
	require.NoError(t, err)
	return tmpl, ds
}

func TestExecuteCompletesRun(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tmpl, ds := analysisFixture(t, env, `{"aggregation": "mean", "columns": ["v"], "group_by": "g"}`)

	run, err := env.Analysis.CreateRun(ctx, &RunInput{TemplateID: tmpl.ID, DatasetID: &ds.ID})
	require.NoError(t, err)
	assert.Equal(t, domainanalysis.RunStatusPending, run.Status)

	run, err = env.Analysis.Execute(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domainanalysis.RunStatusCompleted, run.Status)
	require.NotNil(t, run.StartedAt)
	require.NotNil(t, run.FinishedAt)
	assert.Contains(t, run.Log, "completed")

	result := decode(t, run.Result)
	assert.Equal(t, "mean", result["type"])
	assert.Contains(t, result, "groups")

	_, err = env.Analysis.Execute(ctx, run.ID)
	assertCode(t, err, "invalid_transition")
}

func TestExecuteWithoutDatasetFailsRun(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tmpl, _ := analysisFixture(t, env, `{}`)

	run, err := env.Analysis.CreateRun(ctx, &RunInput{TemplateID: tmpl.ID})
	require.NoError(t, err)

	run, err = env.Analysis.Execute(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domainanalysis.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "no dataset")
	assert.Equal(t, []string{
		"created:pending",
		"transition:running",
		"transition:failed",
	}, env.auditEvents(t, lifecycle.KindAnalysisRun, run.ID))
}

func TestExecuteInactiveTemplateFailsRun(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tmpl, ds := analysisFixture(t, env, `{}`)
	run, err := env.Analysis.CreateRun(ctx, &RunInput{TemplateID: tmpl.ID, DatasetID: &ds.ID})
	require.NoError(t, err)

	inactive := false
	_, err = env.Analysis.Templates().Update(ctx, tmpl.ID, &TemplateInput{
		Name: tmpl.Name, TagID: tmpl.TagID, TemplateType: tmpl.TemplateType, IsActive: &inactive,
	})
	require.NoError(t, err)

	run, err = env.Analysis.Execute(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domainanalysis.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "inactive")
}

func TestTemplateRejectsUnknownAggregation(t *testing.T) {
	env := newEnv(t)
	tag := env.tag(t, "t1")
	_, err := env.Analysis.Templates().Create(context.Background(), &TemplateInput{
		Name:          "bad",
		TagID:         tag.ID,
		TemplateType:  "summary",
		Configuration: json.RawMessage(`{"aggregation": "median"}`),
	})
	assertCode(t, err, "validation_error")
}

func modelFixture(t *testing.T, env *testEnv, tagName string) (*types.MLModel, *types.MLModelVersion) {
	t.Helper()
	ctx := context.Background()
	tag := env.tag(t, tagName)
	model, err := env.MLOps.Models().Create(ctx, &ModelInput{Name: "m-" + tagName, TagID: tag.ID, TaskType: "regression"})
	require.NoError(t, err)
	v, err := env.MLOps.CreateVersion(ctx, &VersionInput{ModelID: model.ID, Version: "1.0", Hyperparams: json.RawMessage(`{"lr": 0.1}`)})
	require.NoError(t, err)
	return model, v
}

func TestTrainDeployPredict(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, v := modelFixture(t, env, "t1")
	assert.Equal(t, domainml.VersionStatusDraft, v.Status)

	v, err := env.MLOps.Train(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domainml.VersionStatusTrained, v.Status)
	assert.Equal(t, 0.95, decode(t, v.Metrics)["accuracy"])

	artifact, err := blobstore.ReadAll(ctx, env.blobs, v.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, "1.0", decode(t, artifact)["version"])

	runs, err := env.MLOps.TrainingRuns().List(ctx, map[string][]string{"model_version_id": {strconv.FormatInt(v.ID, 10)}})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domainml.TrainingStatusCompleted, runs[0].Status)
	assert.Equal(t, "models/m-t1_v1.0_"+strconv.FormatInt(runs[0].ID, 10)+".json", v.ArtifactPath)

	_, err = env.MLOps.Predict(ctx, &PredictInput{Tag: "t1", Inputs: []map[string]any{{"x": 1}}})
	assertCode(t, err, "not_found")

	v, err = env.MLOps.Deploy(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, domainml.VersionStatusDeployed, v.Status)

	out, err := env.MLOps.Predict(ctx, &PredictInput{Tag: "t1", Inputs: []map[string]any{{"x": 1}, {"x": 2}}})
	require.NoError(t, err)
	assert.Equal(t, v.ID, out.ModelVersion.ID)
	require.Len(t, out.Predictions, 2)
	assert.Equal(t, 0.5, out.Predictions[0].Prediction)
	assert.Equal(t, 0.95, out.Predictions[1].Confidence)

	byID, err := env.MLOps.Predict(ctx, &PredictInput{ModelVersionID: &v.ID, Inputs: []map[string]any{}})
	require.NoError(t, err)
	assert.Empty(t, byID.Predictions)
}

func TestTrainRequiresDraft(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	_, v := modelFixture(t, env, "t1")
	_, err := env.MLOps.Train(ctx, v.ID)
	require.NoError(t, err)

	_, err = env.MLOps.Train(ctx, v.ID)
	assertCode(t, err, "invalid_transition")
}

func TestDeployRequiresTrained(t *testing.T) {
	env := newEnv(t)
	_, v := modelFixture(t, env, "t1")
	_, err := env.MLOps.Deploy(context.Background(), v.ID)
	assertCode(t, err, "invalid_transition")
}

func TestPredictUnknownTagIsNotFound(t *testing.T) {
	env := newEnv(t)
	_, err := env.MLOps.Predict(context.Background(), &PredictInput{Tag: "unknown_tag", Inputs: []map[string]any{{"x": 1}}})
	assertCode(t, err, "not_found")
}

func TestPredictNeedsExactlyOneTarget(t *testing.T) {
	env := newEnv(t)
	_, err := env.MLOps.Predict(context.Background(), &PredictInput{Tag: "t1", ModelVersionID: ptr(int64(1)), Inputs: []map[string]any{}})
	assertCode(t, err, "validation_error")
	_, err = env.MLOps.Predict(context.Background(), &PredictInput{Inputs: []map[string]any{}})
	assertCode(t, err, "validation_error")
}

type recordingExecutor struct{ jobs []*types.Job }

func (r *recordingExecutor) Submit(_ context.Context, job *types.Job) error {
	r.jobs = append(r.jobs, job)
	return nil
}

func TestCreateJobTakesTargetFromPayload(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()

	job, err := env.Jobs.Create(ctx, &JobInput{JobType: domainjobs.TypeDatasetProfile, Payload: json.RawMessage(`{"dataset_id": 7}`)})
	require.NoError(t, err)
	require.NotNil(t, job.TargetID)
	assert.Equal(t, int64(7), *job.TargetID)
	assert.Equal(t, domainjobs.DefaultQueue, job.Queue)
	assert.Equal(t, domainjobs.StatusQueued, job.Status)

	_, err = env.Jobs.Create(ctx, &JobInput{JobType: domainjobs.TypeDatasetProfile})
	assertCode(t, err, "validation_error")

	_, err = env.Jobs.Create(ctx, &JobInput{JobType: domainjobs.TypeDatasetProfile, Payload: json.RawMessage(`{"dataset_id": "seven"}`)})
	assertCode(t, err, "validation_error")

	_, err = env.Jobs.Create(ctx, &JobInput{JobType: "reindex", TargetID: ptr(int64(1))})
	assertCode(t, err, "validation_error")
}

func TestRunJobSubmitsQueuedOnly(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	ex := &recordingExecutor{}
	env.Jobs.SetExecutor(ex)

	job, err := env.Jobs.Create(ctx, &JobInput{JobType: domainjobs.TypeAnalysisRun, TargetID: ptr(int64(3))})
	require.NoError(t, err)
	_, err = env.Jobs.Run(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, ex.jobs, 1)
	assert.Equal(t, job.ID, ex.jobs[0].ID)

	canceled, err := env.Jobs.Cancel(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domainjobs.StatusFailed, canceled.Status)
	assert.Equal(t, CancelMessage, canceled.Error)

	_, err = env.Jobs.Run(ctx, job.ID)
	assertCode(t, err, "invalid_transition")
	_, err = env.Jobs.Cancel(ctx, job.ID)
	assertCode(t, err, "invalid_transition")
}

func TestPendingJobsOrdering(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	low, err := env.Jobs.Create(ctx, &JobInput{JobType: domainjobs.TypeDatasetValidate, TargetID: ptr(int64(1)), Priority: 1})
	require.NoError(t, err)
	high, err := env.Jobs.Create(ctx, &JobInput{JobType: domainjobs.TypeDatasetValidate, TargetID: ptr(int64(2)), Priority: 5})
	require.NoError(t, err)
	_, err = env.Jobs.Create(ctx, &JobInput{JobType: domainjobs.TypeDatasetValidate, TargetID: ptr(int64(3)), Queue: "other"})
	require.NoError(t, err)

	pending, err := env.Jobs.Pending(ctx, domainjobs.DefaultQueue, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, high.ID, pending[0].ID)
	assert.Equal(t, low.ID, pending[1].ID)

	all, err := env.Jobs.Pending(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestAuditListFilters(t *testing.T) {
	env := newEnv(t)
	ctx := context.Background()
	tag := env.tag(t, "t1")
	ds, err := env.Datasets.Register(ctx, &DatasetInput{Name: "ds", TagID: tag.ID})
	require.NoError(t, err)
	_, err = env.Datasets.Validate(ctx, ds.ID)
	require.NoError(t, err)

	recs, err := env.Audit.List(ctx, map[string][]string{"entity_type": {"dataset"}, "event": {"transition"}})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, catalog.DatasetStatusFailed, recs[0].NewStatus)

	_, err = env.Audit.List(ctx, map[string][]string{"entity_id": {"x"}})
	assertCode(t, err, "validation_error")
}
