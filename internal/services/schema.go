package services

import (
	"strings"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/data/repos"
	"github.com/yungbote/tagledger-backend/internal/data/repos/base"
	types "github.com/yungbote/tagledger-backend/internal/domain"
	"github.com/yungbote/tagledger-backend/internal/domain/catalog"
	"github.com/yungbote/tagledger-backend/internal/lifecycle"
	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
	"github.com/yungbote/tagledger-backend/internal/platform/dbctx"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

const defaultSchemaVersion = "1.0"

// SchemaService owns DataSchema and its DataFields. Setting is_default on a
// schema clears it on every other schema of the same tag.
type SchemaService interface {
	Schemas() *Resource[types.DataSchema, SchemaInput]
	Fields() *Resource[types.DataField, FieldInput]
}

type schemaService struct {
	log      *logger.Logger
	tags     repos.TagRepo
	schemas  repos.DataSchemaRepo
	fields   repos.DataFieldRepo
	datasets repos.DatasetRepo

	schemaRes *Resource[types.DataSchema, SchemaInput]
	fieldRes  *Resource[types.DataField, FieldInput]
}

func NewSchemaService(
	baseLog *logger.Logger,
	machine *lifecycle.Machine,
	tags repos.TagRepo,
	schemas repos.DataSchemaRepo,
	fields repos.DataFieldRepo,
	datasets repos.DatasetRepo,
) SchemaService {
	s := &schemaService{
		log:      baseLog.With("service", "SchemaService"),
		tags:     tags,
		schemas:  schemas,
		fields:   fields,
		datasets: datasets,
	}
	s.schemaRes = NewResource(baseLog, machine, ResourceConfig[types.DataSchema, SchemaInput]{
		Name: "schema",
		Repo: schemas,
		Filter: base.FilterSpec{
			Fields: map[string]base.FieldKind{
				"name": base.KindString, "version": base.KindString, "tag_id": base.KindInt,
				"is_default": base.KindBool, "status": base.KindString,
			},
			Orderable: []string{"name", "version", "updated_at"},
		},
		Build:        s.buildSchema,
		Changes:      s.schemaChanges,
		BeforeDelete: s.beforeSchemaDelete,
		Load:         schemas.GetWithFields,
	})
	s.fieldRes = NewResource(baseLog, machine, ResourceConfig[types.DataField, FieldInput]{
		Name: "field",
		Repo: fields,
		Filter: base.FilterSpec{
			Fields: map[string]base.FieldKind{
				"schema_id": base.KindInt, "name": base.KindString, "field_type": base.KindString,
				"required": base.KindBool, "nullable": base.KindBool,
			},
			Orderable: []string{"name"},
		},
		Build:   s.buildField,
		Changes: s.fieldChanges,
	})
	return s
}

func (s *schemaService) Schemas() *Resource[types.DataSchema, SchemaInput] { return s.schemaRes }
func (s *schemaService) Fields() *Resource[types.DataField, FieldInput]    { return s.fieldRes }

func (s *schemaService) buildSchema(tx *lifecycle.Tx, in *SchemaInput) (*types.DataSchema, error) {
	if _, err := requireTag(tx.Context, s.tags, in.TagID); err != nil {
		return nil, err
	}
	if err := checkUniqueFieldNames(in.Fields); err != nil {
		return nil, err
	}
	if in.IsDefault {
		if err := s.schemas.ClearDefault(tx.Context, in.TagID, 0); err != nil {
			return nil, db.Classify("clear default schema", err)
		}
	}
	now := nowUTC()
	sc := &types.DataSchema{
		Name:        strings.TrimSpace(in.Name),
		Version:     orDefault(strings.TrimSpace(in.Version), defaultSchemaVersion),
		TagID:       in.TagID,
		Description: in.Description,
		IsDefault:   in.IsDefault,
		Status:      orDefault(in.Status, catalog.SchemaStatusActive),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, f := range in.Fields {
		sc.Fields = append(sc.Fields, types.DataField{
			Name:        strings.TrimSpace(f.Name),
			FieldType:   f.FieldType,
			Required:    f.Required,
			Nullable:    f.Nullable,
			Description: f.Description,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return sc, nil
}

// schemaChanges leaves fields alone; they are edited through /fields/.
func (s *schemaService) schemaChanges(tx *lifecycle.Tx, row *types.DataSchema, in *SchemaInput) (map[string]any, error) {
	if _, err := requireTag(tx.Context, s.tags, in.TagID); err != nil {
		return nil, err
	}
	if in.IsDefault {
		if err := s.schemas.ClearDefault(tx.Context, in.TagID, row.ID); err != nil {
			return nil, db.Classify("clear default schema", err)
		}
	}
	return map[string]any{
		"name":        strings.TrimSpace(in.Name),
		"version":     orDefault(strings.TrimSpace(in.Version), row.Version),
		"tag_id":      in.TagID,
		"description": in.Description,
		"is_default":  in.IsDefault,
		"status":      orDefault(in.Status, row.Status),
	}, nil
}

func (s *schemaService) beforeSchemaDelete(tx *lifecycle.Tx, row *types.DataSchema) error {
	n, err := s.datasets.Count(tx.Context, map[string]any{"schema_id": row.ID})
	if err != nil {
		return db.Classify("count datasets", err)
	}
	if n > 0 {
		return refused("schema", row.ID, n, "datasets")
	}
	if err := s.fields.DeleteBySchema(tx.Context, row.ID); err != nil {
		return db.Classify("delete fields", err)
	}
	return nil
}

func (s *schemaService) requireSchema(dbc dbctx.Context, id int64) error {
	sc, err := s.schemas.GetByID(dbc, id)
	if err != nil {
		return db.Classify("get schema", err)
	}
	if sc == nil {
		return apierr.NotFound("schema %d not found", id)
	}
	return nil
}

func (s *schemaService) buildField(tx *lifecycle.Tx, in *FieldInput) (*types.DataField, error) {
	if err := s.requireSchema(tx.Context, in.SchemaID); err != nil {
		return nil, err
	}
	now := nowUTC()
	return &types.DataField{
		SchemaID:    in.SchemaID,
		Name:        strings.TrimSpace(in.Name),
		FieldType:   in.FieldType,
		Required:    in.Required,
		Nullable:    in.Nullable,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (s *schemaService) fieldChanges(tx *lifecycle.Tx, _ *types.DataField, in *FieldInput) (map[string]any, error) {
	if err := s.requireSchema(tx.Context, in.SchemaID); err != nil {
		return nil, err
	}
	return map[string]any{
		"schema_id":   in.SchemaID,
		"name":        strings.TrimSpace(in.Name),
		"field_type":  in.FieldType,
		"required":    in.Required,
		"nullable":    in.Nullable,
		"description": in.Description,
	}, nil
}

func checkUniqueFieldNames(fields []SchemaFieldInput) error {
	seen := map[string]bool{}
	var details []apierr.Detail
	for _, f := range fields {
		name := strings.TrimSpace(f.Name)
		if seen[name] {
			details = append(details, apierr.Detail{Field: "fields", Message: "duplicate field name " + name})
		}
		seen[name] = true
	}
	if len(details) > 0 {
		return apierr.ValidationDetails("invalid input", details)
	}
	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
