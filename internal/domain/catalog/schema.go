package catalog

import "time"

const (
	SchemaStatusActive   = "active"
	SchemaStatusInactive = "inactive"
)

const (
	FieldTypeString   = "string"
	FieldTypeInteger  = "integer"
	FieldTypeFloat    = "float"
	FieldTypeBoolean  = "boolean"
	FieldTypeDatetime = "datetime"
	FieldTypeJSON     = "json"
)

// FieldTypes lists every accepted DataField.FieldType.
var FieldTypes = []string{
	FieldTypeString, FieldTypeInteger, FieldTypeFloat,
	FieldTypeBoolean, FieldTypeDatetime, FieldTypeJSON,
}

// DataSchema describes the expected shape of dataset rows. At most one schema
// per tag is the default.
type DataSchema struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string      `gorm:"column:name;not null;uniqueIndex:idx_data_schema_name_version" json:"name"`
	Version     string      `gorm:"column:version;not null;uniqueIndex:idx_data_schema_name_version" json:"version"`
	TagID       int64       `gorm:"column:tag_id;not null;index" json:"tag_id"`
	Description string      `gorm:"column:description;type:text" json:"description,omitempty"`
	IsDefault   bool        `gorm:"column:is_default;not null" json:"is_default"`
	Status      string      `gorm:"column:status;not null;index" json:"status"`
	Fields      []DataField `gorm:"foreignKey:SchemaID;constraint:OnDelete:CASCADE" json:"fields,omitempty"`
	CreatedAt   time.Time   `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"not null" json:"updated_at"`
}

func (DataSchema) TableName() string { return "data_schema" }
func (s *DataSchema) GetID() int64 { return s.ID }

// DataField is one column of a DataSchema.
type DataField struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SchemaID    int64     `gorm:"column:schema_id;not null;uniqueIndex:idx_data_field_schema_name" json:"schema_id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex:idx_data_field_schema_name" json:"name"`
	FieldType   string    `gorm:"column:field_type;not null" json:"field_type"`
	Required    bool      `gorm:"column:required;not null" json:"required"`
	Nullable    bool      `gorm:"column:nullable;not null" json:"nullable"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (DataField) TableName() string { return "data_field" }
func (f *DataField) GetID() int64 { return f.ID }
