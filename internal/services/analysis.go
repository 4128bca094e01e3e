package services

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/yungbote/tagledger-backend/internal/analytics"
	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	domainanalysis "github.com/yungbote/tagledger-backend/internal/domain/analysis"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

type AnalysisService interface {
	Templates() *Resource[types.AnalysisTemplate, TemplateInput]
	Runs() *Resource[types.AnalysisRun, RunInput]

	CreateRun(ctx context.Context, in *RunInput) (*types.AnalysisRun, error)
	// Execute runs a pending analysis to completion. Computation failures are
	// recorded on the run; the returned error is only for refusing to start.
	Execute(ctx context.Context, runID int64) (*types.AnalysisRun, error)
}

type analysisService struct {
	log       *logger.Logger
	machine   *lifecycle.Machine
	tags      repos.TagRepo
	templates repos.AnalysisTemplateRepo
	runs      repos.AnalysisRunRepo
	datasets  repos.DatasetRepo
	data      DatasetService

	templateRes *Resource[types.AnalysisTemplate, TemplateInput]
	runRes      *Resource[types.AnalysisRun, RunInput]
}

func NewAnalysisService(
	baseLog *logger.Logger,
	machine *lifecycle.Machine,
	tags repos.TagRepo,
	templates repos.AnalysisTemplateRepo,
	runs repos.AnalysisRunRepo,
	datasets repos.DatasetRepo,
	data DatasetService,
) AnalysisService {
	s := &analysisService{
		log:       baseLog.With("service", "AnalysisService"),
		machine:   machine,
		tags:      tags,
		templates: templates,
		runs:      runs,
		datasets:  datasets,
		data:      data,
	}
	s.templateRes = NewResource(baseLog, machine, ResourceConfig[types.AnalysisTemplate, TemplateInput]{
		Name: "analysis template",
		Repo: templates,
		Filter: base.FilterSpec{
			Fields: map[string]base.FieldKind{
				"name": base.KindString, "tag_id": base.KindInt,
				"template_type": base.KindString, "is_active": base.KindBool,
			},
			Orderable: []string{"name", "template_type", "updated_at"},
		},
		Build:        s.buildTemplate,
		Changes:      s.templateChanges,
		BeforeDelete: s.beforeTemplateDelete,
	})
	s.runRes = NewResource(baseLog, machine, ResourceConfig[types.AnalysisRun, RunInput]{
		Name: "analysis run",
		Repo: runs,
		Filter: base.FilterSpec{
			Fields: map[string]base.FieldKind{
				"template_id": base.KindInt, "dataset_id": base.KindInt, "status": base.KindString,
			},
			Orderable: []string{"status", "created_at", "started_at", "finished_at"},
		},
		Create:  s.CreateRun,
		Changes: s.runChanges,
	})
	return s
}

func (s *analysisService) Templates() *Resource[types.AnalysisTemplate, TemplateInput] {
	return s.templateRes
}
func (s *analysisService) Runs() *Resource[types.AnalysisRun, RunInput] { return s.runRes }

func (s *analysisService) templateConfig(in *TemplateInput) ([]byte, error) {
	cfg, err := objectJSON("configuration", in.Configuration)
	if err != nil {
		return nil, err
	}
	if _, err := analytics.ResolveConfig(in.TemplateType, cfg, nil); err != nil {
		return nil, schemaError("configuration", err)
	}
	return cfg, nil
}

func (s *analysisService) buildTemplate(tx *lifecycle.Tx, in *TemplateInput) (*types.AnalysisTemplate, error) {
	if _, err := requireTag(tx.Context, s.tags, in.TagID); err != nil {
		return nil, err
	}
	cfg, err := s.templateConfig(in)
	if err != nil {
		return nil, err
	}
	now := nowUTC()
	return &types.AnalysisTemplate{
		Name:          strings.TrimSpace(in.Name),
		TagID:         in.TagID,
		Description:   in.Description,
		TemplateType:  strings.TrimSpace(in.TemplateType),
		Configuration: cfg,
		IsActive:      boolOr(in.IsActive, true),
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (s *analysisService) templateChanges(tx *lifecycle.Tx, row *types.AnalysisTemplate, in *TemplateInput) (map[string]any, error) {
	if _, err := requireTag(tx.Context, s.tags, in.TagID); err != nil {
		return nil, err
	}
	cfg, err := s.templateConfig(in)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"name":          strings.TrimSpace(in.Name),
		"tag_id":        in.TagID,
		"description":   in.Description,
		"template_type": strings.TrimSpace(in.TemplateType),
		"configuration": cfg,
		"is_active":     boolOr(in.IsActive, row.IsActive),
	}, nil
}

func (s *analysisService) beforeTemplateDelete(tx *lifecycle.Tx, row *types.AnalysisTemplate) error {
	n, err := s.runs.Count(tx.Context, map[string]any{"template_id": row.ID})
	if err != nil {
		return db.Classify("count analysis runs", err)
	}
	if n > 0 {
		return refused("analysis template", row.ID, n, "analysis runs")
	}
	return nil
}

func (s *analysisService) requireTemplate(dbc dbctx.Context, id int64) (*types.AnalysisTemplate, error) {
	t, err := s.templates.GetByID(dbc, id)
	if err != nil {
		return nil, db.Classify("get analysis template", err)
	}
	if t == nil {
		return nil, apierr.NotFound("analysis template %d not found", id)
	}
	return t, nil
}

// CreateRun queues a run in "pending". Parameters must be an object and, when
// they name an aggregation, a valid one.
func (s *analysisService) CreateRun(ctx context.Context, in *RunInput) (*types.AnalysisRun, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	params, err := objectJSON("parameters", in.Parameters)
	if err != nil {
		return nil, err
	}
	if err := analytics.ConfigSchema.Validate(params); err != nil {
		return nil, schemaError("parameters", err)
	}
	var run *types.AnalysisRun
	err = s.machine.InTx(ctx, func(tx *lifecycle.Tx) error {
		if _, err := s.requireTemplate(tx.Context, in.TemplateID); err != nil {
			return err
		}
		if in.DatasetID != nil {
			if _, err := requireDataset(tx.Context, s.datasets, *in.DatasetID); err != nil {
				return err
			}
		}
		now := nowUTC()
		run = &types.AnalysisRun{
			TemplateID: in.TemplateID,
			DatasetID:  in.DatasetID,
			Parameters: params,
			Status:     lifecycle.Initial(lifecycle.KindAnalysisRun),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.runs.Create(tx.Context, run); err != nil {
			return db.Classify("create analysis run", err)
		}
		return tx.Created(run)
	})
	if err != nil {
		return nil, err
	}
	return s.runRes.Get(ctx, run.ID)
}

// runChanges only lets a pending run be repointed; results belong to Execute.
func (s *analysisService) runChanges(tx *lifecycle.Tx, row *types.AnalysisRun, in *RunInput) (map[string]any, error) {
	if row.Status != domainanalysis.RunStatusPending {
		return nil, apierr.InvalidTransition("analysis run %d is %s; only pending runs can be edited", row.ID, row.Status)
	}
	if _, err := s.requireTemplate(tx.Context, in.TemplateID); err != nil {
		return nil, err
	}
	if in.DatasetID != nil {
		if _, err := requireDataset(tx.Context, s.datasets, *in.DatasetID); err != nil {
			return nil, err
		}
	}
	params, err := objectJSON("parameters", in.Parameters)
	if err != nil {
		return nil, err
	}
	if err := analytics.ConfigSchema.Validate(params); err != nil {
		return nil, schemaError("parameters", err)
	}
	return map[string]any{
		"template_id": in.TemplateID,
		"dataset_id":  in.DatasetID,
		"parameters":  params,
	}, nil
}

func (s *analysisService) Execute(ctx context.Context, runID int64) (*types.AnalysisRun, error) {
	run, err := s.runRes.Get(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != domainanalysis.RunStatusPending {
		return nil, apierr.InvalidTransition("analysis run %d is %s; only pending runs can be executed", run.ID, run.Status)
	}

	started := nowUTC()
	if err := s.machine.Transition(ctx, run, domainanalysis.RunStatusRunning, map[string]any{"started_at": started}); err != nil {
		return nil, err
	}
	log := s.log.With("analysis_run_id", run.ID, "template_id", run.TemplateID)
	log.Info("Analysis run started")

	result, trail, runErr := s.compute(ctx, run)

	settle, cancel := settleContext(ctx)
	defer cancel()
	finished := nowUTC()
	if runErr != nil {
		trail = append(trail, "failed: "+runErr.Error())
		updates := map[string]any{
			"error":       runErr.Error(),
			"log":         strings.Join(trail, "\n"),
			"finished_at": finished,
		}
		if err := s.machine.Transition(settle, run, domainanalysis.RunStatusFailed, updates); err != nil {
			return nil, err
		}
		log.Warn("Analysis run failed", "error", runErr)
		return s.runRes.Get(settle, run.ID)
	}

	trail = append(trail, "completed")
	updates := map[string]any{
		"result":      marshalJSON(result),
		"log":         strings.Join(trail, "\n"),
		"finished_at": finished,
	}
	if err := s.machine.Transition(settle, run, domainanalysis.RunStatusCompleted, updates); err != nil {
		return nil, err
	}
	log.Info("Analysis run completed", "duration_ms", finished.Sub(started).Milliseconds())
	return s.runRes.Get(settle, run.ID)
}

// compute never panics; a panic becomes the run's error.
func (s *analysisService) compute(ctx context.Context, run *types.AnalysisRun) (result map[string]any, trail []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("analysis run panicked", "analysis_run_id", run.ID, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	dbc := dbctx.Context{Ctx: ctx}
	tmpl, err := s.templates.GetByID(dbc, run.TemplateID)
	if err != nil {
		return nil, trail, fmt.Errorf("load template: %w", err)
	}
	if tmpl == nil {
		return nil, trail, fmt.Errorf("analysis template %d not found", run.TemplateID)
	}
	if !tmpl.IsActive {
		return nil, trail, fmt.Errorf("analysis template %d is inactive", tmpl.ID)
	}
	trail = append(trail, fmt.Sprintf("template %d (%s)", tmpl.ID, tmpl.TemplateType))

	cfg, err := analytics.ResolveConfig(tmpl.TemplateType, tmpl.Configuration, run.Parameters)
	if err != nil {
		return nil, trail, fmt.Errorf("configuration: %w", err)
	}
	trail = append(trail, "aggregation "+cfg.Aggregation)

	if run.DatasetID == nil {
		return nil, trail, fmt.Errorf("analysis run %d has no dataset", run.ID)
	}
	ds, err := s.datasets.GetByID(dbc, *run.DatasetID)
	if err != nil {
		return nil, trail, fmt.Errorf("load dataset: %w", err)
	}
	if ds == nil {
		return nil, trail, fmt.Errorf("dataset %d not found", *run.DatasetID)
	}
	tbl, file, err := s.data.LoadTable(dbc, ds.ID)
	if err != nil {
		return nil, trail, err
	}
	trail = append(trail, fmt.Sprintf("read %s: %d rows", file.FileName, len(tbl.Rows)))

	result, err = analytics.Run(cfg, tbl)
	if err != nil {
		return nil, trail, err
	}
	return result, trail, nil
}
