package analysis

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// AnalysisTemplate declares a fixed aggregation in Configuration.
type AnalysisTemplate struct {
	ID            int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string         `gorm:"column:name;not null;index" json:"name"`
	TagID         int64          `gorm:"column:tag_id;not null;index" json:"tag_id"`
	Description   string         `gorm:"column:description;type:text" json:"description,omitempty"`
	TemplateType  string         `gorm:"column:template_type;not null" json:"template_type"`
	Configuration datatypes.JSON `gorm:"column:configuration" json:"configuration"`
	IsActive      bool           `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt     time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
}

func (AnalysisTemplate) TableName() string { return "analysis_template" }
func (t *AnalysisTemplate) GetID() int64 { return t.ID }

type AnalysisRun struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TemplateID  int64          `gorm:"column:template_id;not null;index" json:"template_id"`
	DatasetID   *int64         `gorm:"column:dataset_id;index" json:"dataset_id,omitempty"`
	Parameters  datatypes.JSON `gorm:"column:parameters" json:"parameters,omitempty"`
	Result      datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	Error       string         `gorm:"column:error;type:text" json:"error,omitempty"`
	Log         string         `gorm:"column:log;type:text" json:"log,omitempty"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	LockVersion int            `gorm:"column:lock_version;not null" json:"lock_version"`
	StartedAt   *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (AnalysisRun) TableName() string { return "analysis_run" }

func (AnalysisRun) EntityType() string     { return "analysis_run" }
func (r *AnalysisRun) GetID() int64        { return r.ID }
func (r *AnalysisRun) GetStatus() string   { return r.Status }
func (r *AnalysisRun) GetLockVersion() int { return r.LockVersion }

// SetLifecycle mirrors a committed transition onto the in-memory row.
func (r *AnalysisRun) SetLifecycle(status string, lockVersion int, at time.Time) {
	r.Status, r.LockVersion, r.UpdatedAt = status, lockVersion, at
}
