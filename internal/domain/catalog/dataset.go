package catalog

import (
	"time"

	"gorm.io/datatypes"
)

const (
	DatasetStatusRegistered = "registered"
	DatasetStatusValidated  = "validated"
	DatasetStatusProfiled   = "profiled"
	DatasetStatusFailed     = "failed"
)

const (
	SourceTypeUpload   = "csv_upload"
	SourceTypeExternal = "external_system"
	SourceTypeManual   = "manual"
)

const (
	FormatCSV   = "csv"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
)

type Dataset struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name             string          `gorm:"column:name;not null;index" json:"name"`
	Description      string          `gorm:"column:description;type:text" json:"description,omitempty"`
	TagID            int64           `gorm:"column:tag_id;not null;index" json:"tag_id"`
	SchemaID         *int64          `gorm:"column:schema_id;index" json:"schema_id,omitempty"`
	SourceType       string          `gorm:"column:source_type;not null" json:"source_type"`
	SourceInfo       datatypes.JSON  `gorm:"column:source_info" json:"source_info,omitempty"`
	NumRecords       int             `gorm:"column:num_records;not null" json:"num_records"`
	Status           string          `gorm:"column:status;not null;index" json:"status"`
	LockVersion      int             `gorm:"column:lock_version;not null" json:"lock_version"`
	ValidationReport datatypes.JSON  `gorm:"column:validation_report" json:"validation_report,omitempty"`
	Files            []DatasetFile   `gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE" json:"files,omitempty"`
	Profile          *DatasetProfile `gorm:"foreignKey:DatasetID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

func (Dataset) TableName() string { return "dataset" }

func (Dataset) EntityType() string     { return "dataset" }
func (d *Dataset) GetID() int64        { return d.ID }
func (d *Dataset) GetStatus() string   { return d.Status }
func (d *Dataset) GetLockVersion() int { return d.LockVersion }

// SetLifecycle mirrors a committed transition onto the in-memory row.
func (d *Dataset) SetLifecycle(status string, lockVersion int, at time.Time) {
	d.Status, d.LockVersion, d.UpdatedAt = status, lockVersion, at
}

// DatasetFile is one uploaded file; StorageKey addresses the blob store.
type DatasetFile struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	DatasetID  int64     `gorm:"column:dataset_id;not null;index" json:"dataset_id"`
	FileName   string    `gorm:"column:file_name;not null" json:"file_name"`
	StorageKey string    `gorm:"column:storage_key;not null" json:"file_path"`
	FileFormat string    `gorm:"column:file_format;not null" json:"file_format"`
	FileSize   int64     `gorm:"column:file_size;not null" json:"file_size"`
	Checksum   string    `gorm:"column:checksum" json:"checksum"`
	Position   int       `gorm:"column:position;not null" json:"order"`
	CreatedAt  time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}

func (DatasetFile) TableName() string { return "dataset_file" }
func (f *DatasetFile) GetID() int64 { return f.ID }

// DatasetProfile holds per-field statistics; one row per dataset, replaced on re-profile.
type DatasetProfile struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	DatasetID   int64          `gorm:"column:dataset_id;not null;uniqueIndex" json:"dataset_id"`
	RowCount    int            `gorm:"column:row_count;not null" json:"row_count"`
	ColumnCount int            `gorm:"column:column_count;not null" json:"column_count"`
	ProfileData datatypes.JSON `gorm:"column:profile_data" json:"profile_data"`
	GeneratedAt time.Time      `gorm:"column:generated_at;not null" json:"generated_at"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (DatasetProfile) TableName() string { return "dataset_profile" }
func (p *DatasetProfile) GetID() int64 { return p.ID }
