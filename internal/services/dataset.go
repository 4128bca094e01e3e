package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	"github.com/yungbote/tagledger-backend/internal/datafile"
	"github.com/yungbote/tagledger-backend/internal/dataquality"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/domain/catalog"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/blobstore"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

// DefaultMaxUploadBytes caps an upload when no limit is configured.
const DefaultMaxUploadBytes int64 = 64 << 20

var errNoFile = errors.New("dataset has no uploaded file")

// Upload is one file handed to DatasetService.Upload. Format may be empty, in
// which case it is taken from the file name.
type Upload struct {
	FileName string
	Format   string
	Body     io.Reader
}

type ValidationResult struct {
	Dataset *types.Dataset      `json:"dataset"`
	Report  *dataquality.Report `json:"report"`
}

type DatasetService interface {
	Datasets() *Resource[types.Dataset, DatasetInput]
	Files() *Resource[types.DatasetFile, DatasetFileInput]
	Profiles() *Resource[types.DatasetProfile, NoInput]

	Register(ctx context.Context, in *DatasetInput) (*types.Dataset, error)
	Upload(ctx context.Context, datasetID int64, up Upload) (*types.DatasetFile, error)
	Validate(ctx context.Context, datasetID int64) (*ValidationResult, error)
	Profile(ctx context.Context, datasetID int64) (*types.DatasetProfile, error)
	// LoadTable parses the dataset's most recent file.
	LoadTable(dbc dbctx.Context, datasetID int64) (*datafile.Table, *types.DatasetFile, error)
}

type datasetService struct {
	log      *logger.Logger
	machine  *lifecycle.Machine
	blobs    blobstore.Store
	maxBytes int64

	tags          repos.TagRepo
	schemas       repos.DataSchemaRepo
	fields        repos.DataFieldRepo
	datasets      repos.DatasetRepo
	files         repos.DatasetFileRepo
	profiles      repos.DatasetProfileRepo
	analysisRuns  repos.AnalysisRunRepo
	trainingRuns  repos.MLTrainingRunRepo
	modelVersions repos.MLModelVersionRepo

	datasetRes *Resource[types.Dataset, DatasetInput]
	fileRes    *Resource[types.DatasetFile, DatasetFileInput]
	profileRes *Resource[types.DatasetProfile, NoInput]
}

func NewDatasetService(
	baseLog *logger.Logger,
	machine *lifecycle.Machine,
	blobs blobstore.Store,
	maxUploadBytes int64,
	tags repos.TagRepo,
	schemas repos.DataSchemaRepo,
	fields repos.DataFieldRepo,
	datasets repos.DatasetRepo,
	files repos.DatasetFileRepo,
	profiles repos.DatasetProfileRepo,
	analysisRuns repos.AnalysisRunRepo,
	trainingRuns repos.MLTrainingRunRepo,
	modelVersions repos.MLModelVersionRepo,
) DatasetService {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	s := &datasetService{
		log:           baseLog.With("service", "DatasetService"),
		machine:       machine,
		blobs:         blobs,
		maxBytes:      maxUploadBytes,
		tags:          tags,
		schemas:       schemas,
		fields:        fields,
		datasets:      datasets,
		files:         files,
		profiles:      profiles,
		analysisRuns:  analysisRuns,
		trainingRuns:  trainingRuns,
		modelVersions: modelVersions,
	}
	s.datasetRes = NewResource(baseLog, machine, ResourceConfig[types.Dataset, DatasetInput]{
		Name: "dataset",
		Repo: datasets,
		Filter: base.FilterSpec{
			Fields: map[string]base.FieldKind{
				"name": base.KindString, "tag_id": base.KindInt, "schema_id": base.KindInt,
				"source_type": base.KindString, "status": base.KindString,
			},
			Orderable: []string{"name", "status", "num_records", "updated_at"},
		},
		Create:       s.Register,
		Changes:      s.datasetChanges,
		BeforeDelete: s.beforeDatasetDelete,
		AfterDelete:  s.afterDatasetDelete,
		Load:         datasets.GetWithChildren,
	})
	s.fileRes = NewResource(baseLog, machine, ResourceConfig[types.DatasetFile, DatasetFileInput]{
		Name: "dataset file",
		Repo: files,
		Filter: base.FilterSpec{
			Fields:    map[string]base.FieldKind{"dataset_id": base.KindInt, "file_format": base.KindString, "checksum": base.KindString},
			Orderable: []string{"position", "file_name", "file_size"},
		},
		Build:        s.buildFile,
		Changes:      s.fileChanges,
		BeforeDelete: s.beforeFileDelete,
		AfterDelete: func(ctx context.Context, f *types.DatasetFile) {
			s.deleteBlob(ctx, f.StorageKey)
		},
	})
	s.profileRes = NewResource(baseLog, machine, ResourceConfig[types.DatasetProfile, NoInput]{
		Name: "dataset profile",
		Repo: profiles,
		Filter: base.FilterSpec{
			Fields:    map[string]base.FieldKind{"dataset_id": base.KindInt},
			Orderable: []string{"generated_at", "row_count"},
		},
	})
	return s
}

func (s *datasetService) Datasets() *Resource[types.Dataset, DatasetInput]      { return s.datasetRes }
func (s *datasetService) Files() *Resource[types.DatasetFile, DatasetFileInput] { return s.fileRes }
func (s *datasetService) Profiles() *Resource[types.DatasetProfile, NoInput]    { return s.profileRes }

// Register creates a dataset in "registered". Without an explicit schema the
// tag's default schema, if any, is attached.
func (s *datasetService) Register(ctx context.Context, in *DatasetInput) (*types.Dataset, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	sourceInfo, err := rawJSON(in.SourceInfo, "")
	if err != nil {
		return nil, apierr.ValidationDetails("invalid input", []apierr.Detail{{Field: "source_info", Message: "must be valid JSON"}})
	}
	var ds *types.Dataset
	err = s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		if _, err := requireTag(tx.Context, s.tags, in.TagID); err != nil {
			return err
		}
		schemaID, err := s.resolveSchema(tx.Context, in.TagID, in.SchemaID)
		if err != nil {
			return err
		}
		now := nowUTC()
		ds = &types.Dataset{
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			TagID:       in.TagID,
			SchemaID:    schemaID,
			SourceType:  orDefault(in.SourceType, catalog.SourceTypeUpload),
			SourceInfo:  sourceInfo,
			Status:      lifecycle.Initial(lifecycle.KindDataset),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.datasets.Create(tx.Context, ds); err != nil {
			return db.Classify("create dataset", err)
		}
		return tx.Created(ds)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Dataset registered", "dataset_id", ds.ID, "tag_id", ds.TagID)
	return s.datasetRes.Get(ctx, ds.ID)
}

func (s *datasetService) resolveSchema(dbc dbctx.Context, tagID int64, schemaID *int64) (*int64, error) {
	if schemaID != nil {
		sc, err := s.schemas.GetByID(dbc, *schemaID)
		if err != nil {
			return nil, db.Classify("get schema", err)
		}
		if sc == nil {
			return nil, apierr.NotFound("schema %d not found", *schemaID)
		}
		return schemaID, nil
	}
	def, err := s.schemas.GetDefaultForTag(dbc, tagID)
	if err != nil {
		return nil, db.Classify("get default schema", err)
	}
	if def == nil {
		return nil, nil
	}
	id := def.ID
	return &id, nil
}

func (s *datasetService) datasetChanges(tx *lifecycle.Tx, row *types.Dataset, in *DatasetInput) (map[string]any, error) {
	if _, err := requireTag(tx.Context, s.tags, in.TagID); err != nil {
		return nil, err
	}
	if in.SchemaID != nil {
		if _, err := s.resolveSchema(tx.Context, in.TagID, in.SchemaID); err != nil {
			return nil, err
		}
	}
	sourceInfo, err := rawJSON(in.SourceInfo, "")
	if err != nil {
		return nil, apierr.ValidationDetails("invalid input", []apierr.Detail{{Field: "source_info", Message: "must be valid JSON"}})
	}
	return map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"description": in.Description,
		"tag_id":      in.TagID,
		"schema_id":   in.SchemaID,
		"source_type": orDefault(in.SourceType, row.SourceType),
		"source_info": sourceInfo,
	}, nil
}

// beforeDatasetDelete refuses while runs or versions point at the dataset,
// then removes owned files and profile. File keys are kept on row for
// afterDatasetDelete.
func (s *datasetService) beforeDatasetDelete(tx *lifecycle.Tx, row *types.Dataset) error {
	refs := []struct {
		by    string
		col   string
		count func(dbctx.Context, map[string]any) (int64, error)
	}{
		{"analysis runs", "dataset_id", s.analysisRuns.Count},
		{"training runs", "dataset_id", s.trainingRuns.Count},
		{"model versions", "trained_on_dataset_id", s.modelVersions.Count},
	}
	for _, r := range refs {
		n, err := r.count(tx.Context, map[string]any{r.col: row.ID})
		if err != nil {
			return db.Classify("count "+r.by, err)
		}
		if n > 0 {
			return refused("dataset", row.ID, n, r.by)
		}
	}
	files, err := s.files.List(tx.Context, base.ListQuery{Filters: map[string]any{"dataset_id": row.ID}})
	if err != nil {
		return db.Classify("list dataset files", err)
	}
	row.Files = row.Files[:0]
	for _, f := range files {
		row.Files = append(row.Files, *f)
	}
	if err := s.files.DeleteByDataset(tx.Context, row.ID); err != nil {
		return db.Classify("delete dataset files", err)
	}
	if err := s.profiles.DeleteByDataset(tx.Context, row.ID); err != nil {
		return db.Classify("delete dataset profile", err)
	}
	return nil
}

func (s *datasetService) afterDatasetDelete(ctx context.Context, row *types.Dataset) {
	for _, f := range row.Files {
		s.deleteBlob(ctx, f.StorageKey)
	}
}

func (s *datasetService) deleteBlob(ctx context.Context, key string) {
	if s.blobs == nil || key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		s.log.Warn("blob delete failed", "key", key, "error", err)
	}
}

// requireRegistered loads the dataset and checks it still accepts files.
func (s *datasetService) requireRegistered(dbc dbctx.Context, id int64) (*types.Dataset, error) {
	ds, err := requireDataset(dbc, s.datasets, id)
	if err != nil {
		return nil, err
	}
	if ds.Status != catalog.DatasetStatusRegistered {
		return nil, apierr.InvalidTransition("dataset %d is %s; files can only change while registered", id, ds.Status)
	}
	return ds, nil
}

func (s *datasetService) buildFile(tx *lifecycle.Tx, in *DatasetFileInput) (*types.DatasetFile, error) {
	if _, err := s.requireRegistered(tx.Context, in.DatasetID); err != nil {
		return nil, err
	}
	pos, err := s.position(tx.Context, in.DatasetID, in.Order)
	if err != nil {
		return nil, err
	}
	now := nowUTC()
	return &types.DatasetFile{
		DatasetID:  in.DatasetID,
		FileName:   strings.TrimSpace(in.FileName),
		StorageKey: strings.TrimSpace(in.FilePath),
		FileFormat: in.FileFormat,
		FileSize:   in.FileSize,
		Checksum:   in.Checksum,
		Position:   pos,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

func (s *datasetService) position(dbc dbctx.Context, datasetID int64, explicit *int) (int, error) {
	if explicit != nil {
		return *explicit, nil
	}
	pos, err := s.files.NextPosition(dbc, datasetID)
	if err != nil {
		return 0, db.Classify("next file position", err)
	}
	return pos, nil
}

func (s *datasetService) fileChanges(tx *lifecycle.Tx, row *types.DatasetFile, in *DatasetFileInput) (map[string]any, error) {
	if in.DatasetID != row.DatasetID {
		return nil, apierr.Validation("dataset_id cannot change")
	}
	if _, err := s.requireRegistered(tx.Context, row.DatasetID); err != nil {
		return nil, err
	}
	pos := row.Position
	if in.Order != nil {
		pos = *in.Order
	}
	return map[string]any{
		"file_name":   strings.TrimSpace(in.FileName),
		"storage_key": strings.TrimSpace(in.FilePath),
		"file_format": in.FileFormat,
		"file_size":   in.FileSize,
		"checksum":    in.Checksum,
		"position":    pos,
	}, nil
}

func (s *datasetService) beforeFileDelete(tx *lifecycle.Tx, row *types.DatasetFile) error {
	_, err := s.requireRegistered(tx.Context, row.DatasetID)
	return err
}

// Upload streams the body into the blob store while hashing it, then records
// the DatasetFile. The blob is removed again if the record cannot be written.
func (s *datasetService) Upload(ctx context.Context, datasetID int64, up Upload) (*types.DatasetFile, error) {
	if s.blobs == nil {
		return nil, apierr.Internal(fmt.Errorf("blob store not configured"))
	}
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(up.FileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, apierr.ValidationDetails("invalid upload", []apierr.Detail{{Field: "file", Message: "file name is required"}})
	}
	format := strings.ToLower(strings.TrimSpace(up.Format))
	if format == "" {
		format = datafile.DetectFormat(name)
	}
	if !datafile.Supported(format) {
		return nil, apierr.ValidationDetails("invalid upload", []apierr.Detail{{Field: "file_format", Message: "must be one of: csv json jsonl"}})
	}
	if up.Body == nil {
		return nil, apierr.ValidationDetails("invalid upload", []apierr.Detail{{Field: "file", Message: "is required"}})
	}

	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.requireRegistered(dbc, datasetID); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("datasets/%d/%s/%s", datasetID, uuid.NewString(), name)
	hasher := sha256.New()
	counter := &countingWriter{}
	body := io.TeeReader(io.LimitReader(up.Body, s.maxBytes+1), io.MultiWriter(hasher, counter))
	if err := s.blobs.Put(ctx, key, body); err != nil {
		return nil, apierr.Internal(fmt.Errorf("store upload: %w", err))
	}
	if counter.n > s.maxBytes {
		s.deleteBlob(ctx, key)
		return nil, apierr.ValidationDetails("invalid upload", []apierr.Detail{{Field: "file", Message: fmt.Sprintf("exceeds %d bytes", s.maxBytes)}})
	}

	var file *types.DatasetFile
	err := s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		if _, err := s.requireRegistered(tx.Context, datasetID); err != nil {
			return err
		}
		pos, err := s.position(tx.Context, datasetID, nil)
		if err != nil {
			return err
		}
		now := nowUTC()
		file = &types.DatasetFile{
			DatasetID:  datasetID,
			FileName:   name,
			StorageKey: key,
			FileFormat: format,
			FileSize:   counter.n,
			Checksum:   hex.EncodeToString(hasher.Sum(nil)),
			Position:   pos,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.files.Create(tx.Context, file); err != nil {
			return db.Classify("create dataset file", err)
		}
		return nil
	})
	if err != nil {
		s.deleteBlob(ctx, key)
		return nil, err
	}
	s.log.Info("Dataset file uploaded", "dataset_id", datasetID, "file_id", file.ID, "bytes", file.FileSize, "format", format)
	return file, nil
}

type countingWriter struct{ n int64 }

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

func (s *datasetService) LoadTable(dbc dbctx.Context, datasetID int64) (*datafile.Table, *types.DatasetFile, error) {
	f, err := s.files.LatestForDataset(dbc, datasetID)
	if err != nil {
		return nil, nil, db.Classify("get dataset file", err)
	}
	if f == nil {
		return nil, nil, errNoFile
	}
	if s.blobs == nil {
		return nil, f, fmt.Errorf("blob store not configured")
	}
	b, err := blobstore.ReadAll(dbc.Ctx, s.blobs, f.StorageKey)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, f, fmt.Errorf("file not found: %s", f.StorageKey)
		}
		return nil, f, fmt.Errorf("read %s: %w", f.StorageKey, err)
	}
	tbl, err := datafile.ReadBytes(f.FileFormat, b)
	if err != nil {
		return nil, f, fmt.Errorf("parse %s: %w", f.FileName, err)
	}
	return tbl, f, nil
}

// Validate checks the latest file against the dataset's schema and moves the
// dataset to validated or failed. Data problems are reported, not returned.
func (s *datasetService) Validate(ctx context.Context, datasetID int64) (*ValidationResult, error) {
	dbc := dbctx.Context{Ctx: ctx}
	ds, err := requireDataset(dbc, s.datasets, datasetID)
	if err != nil {
		return nil, err
	}
	if !lifecycle.CanTransition(lifecycle.KindDataset, ds.Status, catalog.DatasetStatusValidated) {
		return nil, apierr.InvalidTransition("dataset %d is %s and cannot be validated", ds.ID, ds.Status)
	}

	var specs []dataquality.FieldSpec
	if ds.SchemaID != nil {
		fields, err := s.fields.ListBySchema(dbc, *ds.SchemaID)
		if err != nil {
			return nil, db.Classify("list schema fields", err)
		}
		specs = dataquality.FieldsFromSchema(fields)
	}

	var report *dataquality.Report
	tbl, _, err := s.LoadTable(dbc, ds.ID)
	if err != nil {
		if apierr.Is(err, apierr.CodeInternal) {
			return nil, err
		}
		report = dataquality.NewReport()
		report.Fail("", 0, "%v", err)
	} else {
		report = dataquality.Validate(specs, tbl)
	}

	to := catalog.DatasetStatusValidated
	if !report.Valid {
		to = catalog.DatasetStatusFailed
	}
	updates := map[string]any{
		"num_records":       report.RecordCount,
		"validation_report": marshalJSON(report),
	}
	if err := s.machine.Transition(ctx, ds, to, updates); err != nil {
		return nil, err
	}
	s.log.Info("Dataset validated", "dataset_id", ds.ID, "valid", report.Valid, "errors", len(report.Errors))

	fresh, err := s.datasetRes.Get(ctx, ds.ID)
	if err != nil {
		return nil, err
	}
	return &ValidationResult{Dataset: fresh, Report: report}, nil
}

// Profile computes per-column statistics and replaces the single profile row.
// A validated dataset becomes profiled; a profiled one keeps its status and
// only gets a fresh profile.
func (s *datasetService) Profile(ctx context.Context, datasetID int64) (*types.DatasetProfile, error) {
	dbc := dbctx.Context{Ctx: ctx}
	ds, err := requireDataset(dbc, s.datasets, datasetID)
	if err != nil {
		return nil, err
	}
	reprofile := ds.Status == catalog.DatasetStatusProfiled
	if !reprofile && !lifecycle.CanTransition(lifecycle.KindDataset, ds.Status, catalog.DatasetStatusProfiled) {
		return nil, apierr.InvalidTransition("dataset %d is %s and cannot be profiled", ds.ID, ds.Status)
	}

	tbl, _, err := s.LoadTable(dbc, ds.ID)
	if err != nil {
		if !reprofile {
			msg := fmt.Sprintf("profiling failed: %v", err)
			terr := s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
				return tx.TransitionWithMessage(ds, catalog.DatasetStatusFailed, nil, msg)
			})
			if terr != nil {
				return nil, terr
			}
		}
		return nil, apierr.ExecutionFailure(fmt.Errorf("profile dataset %d: %w", ds.ID, err))
	}

	stats := dataquality.ProfileTable(tbl)
	profile := &types.DatasetProfile{
		DatasetID:   ds.ID,
		RowCount:    stats.RowCount,
		ColumnCount: stats.ColumnCount,
		ProfileData: marshalJSON(stats.Columns),
		GeneratedAt: nowUTC(),
		CreatedAt:   nowUTC(),
	}
	err = s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		if err := s.profiles.Upsert(tx.Context, profile); err != nil {
			return db.Classify("upsert dataset profile", err)
		}
		if reprofile {
			return tx.Supersede(ds, "profile regenerated", map[string]any{"profile_id": profile.ID, "row_count": profile.RowCount})
		}
		return tx.Transition(ds, catalog.DatasetStatusProfiled, nil)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Dataset profiled", "dataset_id", ds.ID, "rows", profile.RowCount, "columns", profile.ColumnCount)
	return profile, nil
}
