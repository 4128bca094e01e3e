package services

import "encoding/json"

// Request bodies. None of them carries a status: status only moves through
// action endpoints.

type TagInput struct {
	Name        string `json:"name" validate:"required,max=100"`
	Category    string `json:"category" validate:"max=100"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

type SchemaInput struct {
	Name        string             `json:"name" validate:"required,max=200"`
	Version     string             `json:"version" validate:"max=50"`
	TagID       int64              `json:"tag_id" validate:"required,gt=0"`
	Description string             `json:"description"`
	IsDefault   bool               `json:"is_default"`
	Status      string             `json:"status" validate:"omitempty,oneof=active inactive"`
	Fields      []SchemaFieldInput `json:"fields" validate:"omitempty,dive"`
}

// SchemaFieldInput is a field declared inline with its schema.
type SchemaFieldInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	FieldType   string `json:"field_type" validate:"required,oneof=string integer float boolean datetime json"`
	Required    bool   `json:"required"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description"`
}

type FieldInput struct {
	SchemaID    int64  `json:"schema_id" validate:"required,gt=0"`
	Name        string `json:"name" validate:"required,max=200"`
	FieldType   string `json:"field_type" validate:"required,oneof=string integer float boolean datetime json"`
	Required    bool   `json:"required"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description"`
}

type DatasetInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description"`
	TagID       int64           `json:"tag_id" validate:"required,gt=0"`
	SchemaID    *int64          `json:"schema_id" validate:"omitempty,gt=0"`
	SourceType  string          `json:"source_type" validate:"omitempty,oneof=csv_upload external_system manual"`
	SourceInfo  json.RawMessage `json:"source_info"`
}

// DatasetFileInput registers a file that already sits in the blob store.
type DatasetFileInput struct {
	DatasetID  int64  `json:"dataset_id" validate:"required,gt=0"`
	FileName   string `json:"file_name" validate:"required,max=255"`
	FilePath   string `json:"file_path" validate:"required"`
	FileFormat string `json:"file_format" validate:"required,oneof=csv json jsonl"`
	FileSize   int64  `json:"file_size" validate:"gte=0"`
	Checksum   string `json:"checksum"`
	Order      *int   `json:"order" validate:"omitempty,gte=0"`
}

// NoInput marks read-only collections.
type NoInput struct{}

type TemplateInput struct {
	Name          string          `json:"name" validate:"required,max=200"`
	TagID         int64           `json:"tag_id" validate:"required,gt=0"`
	Description   string          `json:"description"`
	TemplateType  string          `json:"template_type" validate:"required,max=100"`
	Configuration json.RawMessage `json:"configuration"`
	IsActive      *bool           `json:"is_active"`
}

type RunInput struct {
	TemplateID int64           `json:"template_id" validate:"required,gt=0"`
	DatasetID  *int64          `json:"dataset_id" validate:"omitempty,gt=0"`
	Parameters json.RawMessage `json:"parameters"`
}

type ModelInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	TagID       int64  `json:"tag_id" validate:"required,gt=0"`
	Description string `json:"description"`
	TaskType    string `json:"task_type" validate:"required,max=100"`
	Framework   string `json:"framework" validate:"max=100"`
	IsActive    *bool  `json:"is_active"`
}

type VersionInput struct {
	ModelID            int64           `json:"model_id" validate:"required,gt=0"`
	Version            string          `json:"version" validate:"required,max=50"`
	Description        string          `json:"description"`
	TrainedOnDatasetID *int64          `json:"trained_on_dataset_id" validate:"omitempty,gt=0"`
	Hyperparams        json.RawMessage `json:"hyperparams"`
}

type TrainingRunInput struct {
	ModelVersionID int64           `json:"model_version_id" validate:"required,gt=0"`
	DatasetID      *int64          `json:"dataset_id" validate:"omitempty,gt=0"`
	Hyperparams    json.RawMessage `json:"hyperparams"`
}

type JobInput struct {
	JobType  string          `json:"job_type" validate:"required,oneof=analysis_run ml_training dataset_validate dataset_profile"`
	TargetID *int64          `json:"target_id" validate:"omitempty,gt=0"`
	Queue    string          `json:"queue" validate:"max=100"`
	Priority int             `json:"priority"`
	Payload  json.RawMessage `json:"payload"`
}

// PredictInput names exactly one of Tag or ModelVersionID.
type PredictInput struct {
	Tag            string           `json:"tag"`
	ModelVersionID *int64           `json:"model_version_id" validate:"omitempty,gt=0"`
	Inputs         []map[string]any `json:"inputs" validate:"required"`
}
