package jobs

import (
	"time"

	"gorm.io/datatypes"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	TypeAnalysisRun     = "analysis_run"
	TypeMLTraining      = "ml_training"
	TypeDatasetValidate = "dataset_validate"
	TypeDatasetProfile  = "dataset_profile"
)

const DefaultQueue = "default"

// Job is a bookkeeping record for one unit of work dispatched by job_type.
type Job struct {
	ID          int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	JobType     string         `gorm:"column:job_type;not null;index" json:"job_type"`
	TargetID    *int64         `gorm:"column:target_id;index" json:"target_id,omitempty"`
	Queue       string         `gorm:"column:queue;not null;index:idx_job_queue_status" json:"queue"`
	Priority    int            `gorm:"column:priority;not null" json:"priority"`
	Status      string         `gorm:"column:status;not null;index:idx_job_queue_status" json:"status"`
	LockVersion int            `gorm:"column:lock_version;not null" json:"lock_version"`
	Payload     datatypes.JSON `gorm:"column:payload" json:"payload"`
	Result      datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	Error       string         `gorm:"column:error;type:text" json:"error,omitempty"`
	Log         string         `gorm:"column:log;type:text" json:"log,omitempty"`
	StartedAt   *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null" json:"updated_at"`
}

func (Job) TableName() string { return "job" }

func (Job) EntityType() string     { return "job" }
func (j *Job) GetID() int64        { return j.ID }
func (j *Job) GetStatus() string   { return j.Status }
func (j *Job) GetLockVersion() int { return j.LockVersion }

// SetLifecycle mirrors a committed transition onto the in-memory row.
func (j *Job) SetLifecycle(status string, lockVersion int, at time.Time) {
	j.Status, j.LockVersion, j.UpdatedAt = status, lockVersion, at
}
