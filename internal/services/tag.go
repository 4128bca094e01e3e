package services

import (
	"context"
	"strings"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

// TagEntities is everything hanging off one tag.
type TagEntities struct {
	Tag               *types.Tag                `json:"tag"`
	Schemas           []*types.DataSchema       `json:"schemas"`
	Datasets          []*types.Dataset          `json:"datasets"`
	AnalysisTemplates []*types.AnalysisTemplate `json:"analysis_templates"`
	Models            []*types.MLModel          `json:"models"`
}

type TagService interface {
	Resource() *Resource[types.Tag, TagInput]
	Entities(ctx context.Context, tagID int64) (*TagEntities, error)
	Resolve(ctx context.Context, name string) (*TagEntities, error)
	DefaultSchema(ctx context.Context, tagID int64) (*types.DataSchema, error)
}

type tagService struct {
	log       *logger.Logger
	tags      repos.TagRepo
	schemas   repos.DataSchemaRepo
	datasets  repos.DatasetRepo
	templates repos.AnalysisTemplateRepo
	models    repos.MLModelRepo
	resource  *Resource[types.Tag, TagInput]
}

func NewTagService(
	baseLog *logger.Logger,
	machine *lifecycle.Machine,
	tags repos.TagRepo,
	schemas repos.DataSchemaRepo,
	datasets repos.DatasetRepo,
	templates repos.AnalysisTemplateRepo,
	models repos.MLModelRepo,
) TagService {
	s := &tagService{
		log:       baseLog.With("service", "TagService"),
		tags:      tags,
		schemas:   schemas,
		datasets:  datasets,
		templates: templates,
		models:    models,
	}
	s.resource = NewResource(baseLog, machine, ResourceConfig[types.Tag, TagInput]{
		Name: "tag",
		Repo: tags,
		Filter: base.FilterSpec{
			Fields:    map[string]base.FieldKind{"name": base.KindString, "category": base.KindString, "is_active": base.KindBool},
			Orderable: []string{"name", "category", "updated_at"},
		},
		Build:        s.build,
		Changes:      s.changes,
		BeforeDelete: s.beforeDelete,
	})
	return s
}

func (s *tagService) Resource() *Resource[types.Tag, TagInput] { return s.resource }

func (s *tagService) build(_ *lifecycle.Tx, in *TagInput) (*types.Tag, error) {
	now := nowUTC()
	return &types.Tag{
		Name:        strings.TrimSpace(in.Name),
		Category:    strings.TrimSpace(in.Category),
		Description: in.Description,
		IsActive:    boolOr(in.IsActive, true),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *tagService) changes(_ *lifecycle.Tx, row *types.Tag, in *TagInput) (map[string]any, error) {
	return map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"category":    strings.TrimSpace(in.Category),
		"description": in.Description,
		"is_active":   boolOr(in.IsActive, row.IsActive),
	}, nil
}

// beforeDelete refuses while anything still points at the tag.
func (s *tagService) beforeDelete(tx *lifecycle.Tx, row *types.Tag) error {
	filter := map[string]any{"tag_id": row.ID}
	checks := []struct {
		by    string
		count func(dbctx.Context, map[string]any) (int64, error)
	}{
		{"schemas", s.schemas.Count},
		{"datasets", s.datasets.Count},
		{"analysis templates", s.templates.Count},
		{"models", s.models.Count},
	}
	for _, c := range checks {
		n, err := c.count(tx.Context, filter)
		if err != nil {
			return db.Classify("count "+c.by, err)
		}
		if n > 0 {
			return refused("tag", row.ID, n, c.by)
		}
	}
	return nil
}

func (s *tagService) Entities(ctx context.Context, tagID int64) (*TagEntities, error) {
	dbc := dbctx.Context{Ctx: ctx}
	tag, err := requireTag(dbc, s.tags, tagID)
	if err != nil {
		return nil, err
	}
	return s.collect(dbc, tag)
}

func (s *tagService) Resolve(ctx context.Context, name string) (*TagEntities, error) {
	dbc := dbctx.Context{Ctx: ctx}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apierr.Validation("tag name is required")
	}
	tag, err := s.tags.GetByName(dbc, name)
	if err != nil {
		return nil, db.Classify("get tag", err)
	}
	if tag == nil {
		return nil, apierr.NotFound("tag %q not found", name)
	}
	return s.collect(dbc, tag)
}

func (s *tagService) collect(dbc dbctx.Context, tag *types.Tag) (*TagEntities, error) {
	q := base.ListQuery{Filters: map[string]any{"tag_id": tag.ID}}
	out := &TagEntities{Tag: tag}
	var err error
	if out.Schemas, err = s.schemas.List(dbc, q); err != nil {
		return nil, db.Classify("list schemas", err)
	}
	if out.Datasets, err = s.datasets.List(dbc, q); err != nil {
		return nil, db.Classify("list datasets", err)
	}
	if out.AnalysisTemplates, err = s.templates.List(dbc, q); err != nil {
		return nil, db.Classify("list analysis templates", err)
	}
	if out.Models, err = s.models.List(dbc, q); err != nil {
		return nil, db.Classify("list models", err)
	}
	return out, nil
}

func (s *tagService) DefaultSchema(ctx context.Context, tagID int64) (*types.DataSchema, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := requireTag(dbc, s.tags, tagID); err != nil {
		return nil, err
	}
	sc, err := s.schemas.GetDefaultForTag(dbc, tagID)
	if err != nil {
		return nil, db.Classify("get default schema", err)
	}
	if sc == nil {
		return nil, apierr.NotFound("tag %d has no default schema", tagID)
	}
	return sc, nil
}
