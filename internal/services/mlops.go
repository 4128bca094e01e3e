package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	domainml "github.com/yungbote/tagledger-backend/internal/domain/mlops"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/blobstore"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

// Training and inference are placeholders: the numbers below are what every
// train and predict call reports.
var placeholderMetrics = map[string]float64{
	"accuracy":              0.95,
	"precision":             0.94,
	"recall":                0.93,
	"f1_score":              0.935,
	"loss":                  0.05,
	"training_time_seconds": 10.5,
}

const (
	placeholderPrediction = 0.5
	placeholderConfidence = 0.95
)

type Prediction struct {
	Input      map[string]any `json:"input"`
	Prediction float64        `json:"prediction"`
	Confidence float64        `json:"confidence"`
}

// VersionSummary identifies the model version that answered a prediction.
type VersionSummary struct {
	ID        int64  `json:"id"`
	ModelID   int64  `json:"model_id"`
	ModelName string `json:"model_name"`
	Version   string `json:"version"`
	Status    string `json:"status"`
}

type PredictResult struct {
	ModelVersion VersionSummary `json:"model_version"`
	Predictions  []Prediction   `json:"predictions"`
}

type MLOpsService interface {
	Models() *Resource[types.MLModel, ModelInput]
	Versions() *Resource[types.MLModelVersion, VersionInput]
	TrainingRuns() *Resource[types.MLTrainingRun, TrainingRunInput]

	CreateVersion(ctx context.Context, in *VersionInput) (*types.MLModelVersion, error)
	CreateTrainingRun(ctx context.Context, in *TrainingRunInput) (*types.MLTrainingRun, error)
	// Train finishes a draft version. Failures are recorded on the version
	// and its training run.
	Train(ctx context.Context, versionID int64) (*types.MLModelVersion, error)
	Deploy(ctx context.Context, versionID int64) (*types.MLModelVersion, error)
	Predict(ctx context.Context, in *PredictInput) (*PredictResult, error)
}

type mlopsService struct {
	log          *logger.Logger
	machine      *lifecycle.Machine
	blobs        blobstore.Store
	tags         repos.TagRepo
	models       repos.MLModelRepo
	versions     repos.MLModelVersionRepo
	trainingRuns repos.MLTrainingRunRepo
	datasets     repos.DatasetRepo

	modelRes    *Resource[types.MLModel, ModelInput]
	versionRes  *Resource[types.MLModelVersion, VersionInput]
	trainingRes *Resource[types.MLTrainingRun, TrainingRunInput]
}

func NewMLOpsService(
	baseLog *logger.Logger,
	machine *lifecycle.Machine,
	blobs blobstore.Store,
	tags repos.TagRepo,
	models repos.MLModelRepo,
	versions repos.MLModelVersionRepo,
	trainingRuns repos.MLTrainingRunRepo,
	datasets repos.DatasetRepo,
) MLOpsService {
	s := &mlopsService{
		log:          baseLog.With("service", "MLOpsService"),
		machine:      machine,
		blobs:        blobs,
		tags:         tags,
		models:       models,
		versions:     versions,
		trainingRuns: trainingRuns,
		datasets:     datasets,
	}
	s.modelRes = NewResource(baseLog, machine, ResourceConfig[types.MLModel, ModelInput]{
		Name: "model",
		Repo: models,
		Filter: base.FilterSpec{
			Fields: map[string]base.FieldKind{
				"name": base.KindString, "tag_id": base.KindInt, "task_type": base.KindString,
				"framework": base.KindString, "is_active": base.KindBool,
			},
			Orderable: []string{"name", "task_type", "updated_at"},
		},
		Build:        s.buildModel,
		Changes:      s.modelChanges,
		BeforeDelete: s.beforeModelDelete,
	})
	s.versionRes = NewResource(baseLog, machine, ResourceConfig[types.MLModelVersion, VersionInput]{
		Name: "model version",
		Repo: versions,
		Filter: base.FilterSpec{
			Fields: map[string]base.FieldKind{
				"model_id": base.KindInt, "version": base.KindString, "status": base.KindString,
				"trained_on_dataset_id": base.KindInt,
			},
			Orderable: []string{"version", "status", "trained_at", "deployed_at", "created_at"},
		},
		Create:       s.CreateVersion,
		Changes:      s.versionChanges,
		BeforeDelete: s.beforeVersionDelete,
		AfterDelete: func(ctx context.Context, v *types.MLModelVersion) {
			s.deleteArtifact(ctx, v.ArtifactPath)
		},
	})
	s.trainingRes = NewResource(baseLog, machine, ResourceConfig[types.MLTrainingRun, TrainingRunInput]{
		Name: "training run",
		Repo: trainingRuns,
		Filter: base.FilterSpec{
			Fields: map[string]base.FieldKind{
				"model_version_id": base.KindInt, "dataset_id": base.KindInt, "status": base.KindString,
			},
			Orderable: []string{"status", "created_at", "started_at", "finished_at"},
		},
		Create: s.CreateTrainingRun,
	})
	return s
}

func (s *mlopsService) Models() *Resource[types.MLModel, ModelInput]             { return s.modelRes }
func (s *mlopsService) Versions() *Resource[types.MLModelVersion, VersionInput] { return s.versionRes }
func (s *mlopsService) TrainingRuns() *Resource[types.MLTrainingRun, TrainingRunInput] {
	return s.trainingRes
}

func (s *mlopsService) buildModel(tx *lifecycle.Tx, in *ModelInput) (*types.MLModel, error) {
	if _, err := requireTag(tx.Context, s.tags, in.TagID); err != nil {
		return nil, err
	}
	now := nowUTC()
	return &types.MLModel{
		Name:        strings.TrimSpace(in.Name),
		TagID:       in.TagID,
		Description: in.Description,
		TaskType:    strings.TrimSpace(in.TaskType),
		Framework:   strings.TrimSpace(in.Framework),
		IsActive:    boolOr(in.IsActive, true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *mlopsService) modelChanges(tx *lifecycle.Tx, row *types.MLModel, in *ModelInput) (map[string]any, error) {
	if _, err := requireTag(tx.Context, s.tags, in.TagID); err != nil {
		return nil, err
	}
	return map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"tag_id":      in.TagID,
		"description": in.Description,
		"task_type":   strings.TrimSpace(in.TaskType),
		"framework":   strings.TrimSpace(in.Framework),
		"is_active":   boolOr(in.IsActive, row.IsActive),
	}, nil
}

func (s *mlopsService) beforeModelDelete(tx *lifecycle.Tx, row *types.MLModel) error {
	n, err := s.versions.Count(tx.Context, map[string]any{"model_id": row.ID})
	if err != nil {
		return db.Classify("count model versions", err)
	}
	if n > 0 {
		return refused("model", row.ID, n, "model versions")
	}
	return nil
}

func (s *mlopsService) requireModel(dbc dbctx.Context, id int64) (*types.MLModel, error) {
	m, err := s.models.GetByID(dbc, id)
	if err != nil {
		return nil, db.Classify("get model", err)
	}
	if m == nil {
		return nil, apierr.NotFound("model %d not found", id)
	}
	return m, nil
}

func (s *mlopsService) requireVersion(dbc dbctx.Context, id int64) (*types.MLModelVersion, error) {
	v, err := s.versions.GetByID(dbc, id)
	if err != nil {
		return nil, db.Classify("get model version", err)
	}
	if v == nil {
		return nil, apierr.NotFound("model version %d not found", id)
	}
	return v, nil
}

// CreateVersion adds a draft version together with the pending training run
// that Train will pick up.
func (s *mlopsService) CreateVersion(ctx context.Context, in *VersionInput) (*types.MLModelVersion, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	hyper, err := objectJSON("hyperparams", in.Hyperparams)
	if err != nil {
		return nil, err
	}
	var v *types.MLModelVersion
	err = s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		if _, err := s.requireModel(tx.Context, in.ModelID); err != nil {
			return err
		}
		if in.TrainedOnDatasetID != nil {
			if _, err := requireDataset(tx.Context, s.datasets, *in.TrainedOnDatasetID); err != nil {
				return err
			}
		}
		now := nowUTC()
		v = &types.MLModelVersion{
			ModelID:            in.ModelID,
			Version:            strings.TrimSpace(in.Version),
			Description:        in.Description,
			TrainedOnDatasetID: in.TrainedOnDatasetID,
			Status:             lifecycle.Initial(lifecycle.KindModelVersion),
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.versions.Create(tx.Context, v); err != nil {
			return db.Classify("create model version", err)
		}
		if err := tx.Created(v); err != nil {
			return err
		}
		_, err := s.newTrainingRun(tx, v.ID, in.TrainedOnDatasetID, hyper)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Model version created", "model_id", v.ModelID, "model_version_id", v.ID, "version", v.Version)
	return s.versionRes.Get(ctx, v.ID)
}

func (s *mlopsService) newTrainingRun(tx *lifecycle.Tx, versionID int64, datasetID *int64, hyper []byte) (*types.MLTrainingRun, error) {
	now := nowUTC()
	run := &types.MLTrainingRun{
		ModelVersionID: versionID,
		DatasetID:      datasetID,
		Hyperparams:    hyper,
		Status:         lifecycle.Initial(lifecycle.KindTrainingRun),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.trainingRuns.Create(tx.Context, run); err != nil {
		return nil, db.Classify("create training run", err)
	}
	if err := tx.Created(run); err != nil {
		return nil, err
	}
	return run, nil
}

func (s *mlopsService) versionChanges(tx *lifecycle.Tx, row *types.MLModelVersion, in *VersionInput) (map[string]any, error) {
	if in.ModelID != row.ModelID {
		return nil, apierr.Validation("model_id cannot change")
	}
	if in.TrainedOnDatasetID != nil {
		if _, err := requireDataset(tx.Context, s.datasets, *in.TrainedOnDatasetID); err != nil {
			return nil, err
		}
	}
	return map[string]any{
		"version":               strings.TrimSpace(in.Version),
		"description":           in.Description,
		"trained_on_dataset_id": in.TrainedOnDatasetID,
	}, nil
}

func (s *mlopsService) beforeVersionDelete(tx *lifecycle.Tx, row *types.MLModelVersion) error {
	if row.Status == domainml.VersionStatusDeployed {
		return apierr.Conflict("model version %d is deployed", row.ID)
	}
	runs, err := s.trainingRuns.List(tx.Context, base.ListQuery{Filters: map[string]any{"model_version_id": row.ID}})
	if err != nil {
		return db.Classify("list training runs", err)
	}
	for _, r := range runs {
		if r.Status == domainml.TrainingStatusRunning {
			return apierr.Conflict("model version %d has a running training run", row.ID)
		}
	}
	for _, r := range runs {
		if _, err := s.trainingRuns.Delete(tx.Context, r.ID); err != nil {
			return db.Classify("delete training run", err)
		}
	}
	return nil
}

func (s *mlopsService) CreateTrainingRun(ctx context.Context, in *TrainingRunInput) (*types.MLTrainingRun, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	hyper, err := objectJSON("hyperparams", in.Hyperparams)
	if err != nil {
		return nil, err
	}
	var run *types.MLTrainingRun
	err = s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		v, err := s.requireVersion(tx.Context, in.ModelVersionID)
		if err != nil {
			return err
		}
		if v.Status != domainml.VersionStatusDraft {
			return apierr.InvalidTransition("model version %d is %s; training runs need a draft version", v.ID, v.Status)
		}
		datasetID := in.DatasetID
		if datasetID == nil {
			datasetID = v.TrainedOnDatasetID
		}
		if datasetID != nil {
			if _, err := requireDataset(tx.Context, s.datasets, *datasetID); err != nil {
				return err
			}
		}
		run, err = s.newTrainingRun(tx, v.ID, datasetID, hyper)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.trainingRes.Get(ctx, run.ID)
}

func (s *mlopsService) Train(ctx context.Context, versionID int64) (*types.MLModelVersion, error) {
	dbc := dbctx.Context{Ctx: ctx}
	v, err := s.requireVersion(dbc, versionID)
	if err != nil {
		return nil, err
	}
	if v.Status != domainml.VersionStatusDraft {
		return nil, apierr.InvalidTransition("model version %d is %s; only draft versions can be trained", v.ID, v.Status)
	}
	model, err := s.requireModel(dbc, v.ModelID)
	if err != nil {
		return nil, err
	}
	log := s.log.With("model_version_id", v.ID, "model_id", model.ID)

	// Claim: the version's lock_version is bumped and the pending run (or a
	// new one) moves to running. A concurrent Train fails here.
	var run *types.MLTrainingRun
	err = s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		active, err := s.trainingRuns.LatestForVersion(tx.Context, v.ID, []string{domainml.TrainingStatusRunning})
		if err != nil {
			return db.Classify("get training run", err)
		}
		if active != nil {
			return apierr.Conflict("model version %d is already training (run %d)", v.ID, active.ID)
		}
		run, err = s.trainingRuns.LatestForVersion(tx.Context, v.ID, []string{domainml.TrainingStatusPending})
		if err != nil {
			return db.Classify("get training run", err)
		}
		if run == nil {
			if run, err = s.newTrainingRun(tx, v.ID, v.TrainedOnDatasetID, []byte(`{}`)); err != nil {
				return err
			}
		}
		if err := tx.Supersede(v, "training started", map[string]any{"training_run_id": run.ID}); err != nil {
			return err
		}
		return tx.Transition(run, domainml.TrainingStatusRunning, map[string]any{"started_at": nowUTC()})
	})
	if err != nil {
		return nil, err
	}
	log.Info("Training started", "training_run_id", run.ID)
	claimed := *run

	artifactPath, trainErr := s.writeArtifact(ctx, model, v, run)

	settle, cancel := settleContext(ctx)
	defer cancel()
	finished := nowUTC()
	metrics := marshalJSON(placeholderMetrics)

	if trainErr != nil {
		log.Warn("Training failed", "training_run_id", run.ID, "error", trainErr)
		err = s.machine.InTx(settle, func(tx *lifecycle.Tx) error {
			if err := tx.Transition(run, domainml.TrainingStatusFailed, map[string]any{
				"error":       trainErr.Error(),
				"log":         "training failed: " + trainErr.Error(),
				"finished_at": finished,
			}); err != nil {
				return err
			}
			return tx.TransitionWithMessage(v, domainml.VersionStatusFailed, nil, trainErr.Error())
		})
		if err != nil {
			s.failTrainingRun(settle, log, &claimed, err)
			return nil, err
		}
		return s.versionRes.Get(settle, v.ID)
	}

	err = s.machine.InTx(settle, func(tx *lifecycle.Tx) error {
		if err := tx.Transition(run, domainml.TrainingStatusCompleted, map[string]any{
			"metrics":     metrics,
			"log":         "training completed; artifact " + artifactPath,
			"finished_at": finished,
		}); err != nil {
			return err
		}
		return tx.Transition(v, domainml.VersionStatusTrained, map[string]any{
			"metrics":       metrics,
			"artifact_path": artifactPath,
			"trained_at":    finished,
		})
	})
	if err != nil {
		s.deleteArtifact(settle, artifactPath)
		s.failTrainingRun(settle, log, &claimed, err)
		return nil, err
	}
	log.Info("Training completed", "training_run_id", run.ID, "artifact_path", artifactPath)
	return s.versionRes.Get(settle, v.ID)
}

// failTrainingRun settles a claimed run whose outcome could not be recorded
// together with its version.
func (s *mlopsService) failTrainingRun(ctx context.Context, log *logger.Logger, run *types.MLTrainingRun, cause error) {
	if run.Status != domainml.TrainingStatusRunning {
		return
	}
	err := s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		return tx.TransitionWithMessage(run, domainml.TrainingStatusFailed, map[string]any{
			"error":       cause.Error(),
			"log":         "training outcome not recorded: " + cause.Error(),
			"finished_at": nowUTC(),
		}, cause.Error())
	})
	if err != nil {
		log.Error("Training run left unsettled", "training_run_id", run.ID, "error", err)
	}
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArtifactKey is where one training run stores its artifact. Keys never
// collide across runs of the same version.
func ArtifactKey(modelName, version string, runID int64) string {
	name := strings.Trim(unsafeKeyChars.ReplaceAllString(modelName, "_"), "_")
	ver := strings.Trim(unsafeKeyChars.ReplaceAllString(version, "_"), "_")
	return fmt.Sprintf("models/%s_v%s_%d.json", name, ver, runID)
}

func (s *mlopsService) writeArtifact(ctx context.Context, model *types.MLModel, v *types.MLModelVersion, run *types.MLTrainingRun) (string, error) {
	if s.blobs == nil {
		return "", fmt.Errorf("blob store not configured")
	}
	var hyper any = map[string]any{}
	if len(run.Hyperparams) > 0 {
		if err := json.Unmarshal(run.Hyperparams, &hyper); err != nil {
			return "", fmt.Errorf("decode hyperparams: %w", err)
		}
	}
	doc := map[string]any{
		"model":            model.Name,
		"task_type":        model.TaskType,
		"framework":        model.Framework,
		"version":          v.Version,
		"model_version_id": v.ID,
		"training_run_id":  run.ID,
		"dataset_id":       run.DatasetID,
		"hyperparams":      hyper,
		"metrics":          placeholderMetrics,
		"created_at":       nowUTC(),
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode artifact: %w", err)
	}
	key := ArtifactKey(model.Name, v.Version, run.ID)
	if err := s.blobs.Put(ctx, key, bytes.NewReader(b)); err != nil {
		return "", fmt.Errorf("store artifact: %w", err)
	}
	return key, nil
}

func (s *mlopsService) deleteArtifact(ctx context.Context, key string) {
	if s.blobs == nil || key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Warn("artifact delete failed", "key", key, "error", err)
	}
}

func (s *mlopsService) Deploy(ctx context.Context, versionID int64) (*types.MLModelVersion, error) {
	v, err := s.requireVersion(dbctx.Context{Ctx: ctx}, versionID)
	if err != nil {
		return nil, err
	}
	if err := s.machine.Transition(ctx, v, domainml.VersionStatusDeployed, map[string]any{"deployed_at": nowUTC()}); err != nil {
		return nil, err
	}
	s.log.Info("Model version deployed", "model_version_id", v.ID, "model_id", v.ModelID)
	return s.versionRes.Get(ctx, v.ID)
}

func (s *mlopsService) Predict(ctx context.Context, in *PredictInput) (*PredictResult, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	tag := strings.TrimSpace(in.Tag)
	if (tag == "") == (in.ModelVersionID == nil) {
		return nil, apierr.ValidationDetails("invalid input", []apierr.Detail{{Message: "exactly one of tag or model_version_id is required"}})
	}

	dbc := dbctx.Context{Ctx: ctx}
	var (
		v     *types.MLModelVersion
		model *types.MLModel
		err   error
	)
	if in.ModelVersionID != nil {
		v, err = s.requireVersion(dbc, *in.ModelVersionID)
		if err != nil {
			return nil, err
		}
		if v.Status != domainml.VersionStatusDeployed {
			return nil, apierr.NotFound("model version %d is not deployed", v.ID)
		}
		if model, err = s.requireModel(dbc, v.ModelID); err != nil {
			return nil, err
		}
	} else {
		if model, v, err = s.resolveByTag(dbc, tag); err != nil {
			return nil, err
		}
	}

	out := &PredictResult{
		ModelVersion: VersionSummary{
			ID:        v.ID,
			ModelID:   model.ID,
			ModelName: model.Name,
			Version:   v.Version,
			Status:    v.Status,
		},
		Predictions: make([]Prediction, 0, len(in.Inputs)),
	}
	for _, row := range in.Inputs {
		out.Predictions = append(out.Predictions, Prediction{
			Input:      row,
			Prediction: placeholderPrediction,
			Confidence: placeholderConfidence,
		})
	}
	s.log.Debug("Prediction served", "model_version_id", v.ID, "rows", len(in.Inputs))
	return out, nil
}

// resolveByTag walks Tag, then its active models newest first, and returns the
// first one that has a deployed version.
func (s *mlopsService) resolveByTag(dbc dbctx.Context, name string) (*types.MLModel, *types.MLModelVersion, error) {
	tag, err := s.tags.GetByName(dbc, name)
	if err != nil {
		return nil, nil, db.Classify("get tag", err)
	}
	if tag == nil {
		return nil, nil, apierr.NotFound("tag %q not found", name)
	}
	models, err := s.models.ActiveForTag(dbc, tag.ID)
	if err != nil {
		return nil, nil, db.Classify("list models", err)
	}
	if len(models) == 0 {
		return nil, nil, apierr.NotFound("tag %q has no active model", name)
	}
	for _, m := range models {
		v, err := s.versions.LatestDeployed(dbc, m.ID)
		if err != nil {
			return nil, nil, db.Classify("get deployed version", err)
		}
		if v != nil {
			return m, v, nil
		}
	}
	return nil, nil, apierr.NotFound("tag %q has no deployed model version", name)
}
