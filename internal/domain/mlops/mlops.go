package mlops

import (
	"time"

	"gorm.io/datatypes"
)

const (
	VersionStatusDraft    = "draft"
	VersionStatusTrained  = "trained"
	VersionStatusDeployed = "deployed"
	VersionStatusFailed   = "failed"
)

const (
	TrainingStatusPending   = "pending"
	TrainingStatusRunning   = "running"
	TrainingStatusCompleted = "completed"
	TrainingStatusFailed    = "failed"
)

type MLModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	TagID       int64     `gorm:"column:tag_id;not null;index" json:"tag_id"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	TaskType    string    `gorm:"column:task_type;not null" json:"task_type"`
	Framework   string    `gorm:"column:framework" json:"framework,omitempty"`
	IsActive    bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (MLModel) TableName() string { return "ml_model" }
func (m *MLModel) GetID() int64 { return m.ID }

type MLModelVersion struct {
	ID                 int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ModelID            int64          `gorm:"column:model_id;not null;uniqueIndex:idx_ml_model_version_model_version" json:"model_id"`
	Version            string         `gorm:"column:version;not null;uniqueIndex:idx_ml_model_version_model_version" json:"version"`
	Description        string         `gorm:"column:description;type:text" json:"description,omitempty"`
	Status             string         `gorm:"column:status;not null;index" json:"status"`
	LockVersion        int            `gorm:"column:lock_version;not null" json:"lock_version"`
	Metrics            datatypes.JSON `gorm:"column:metrics" json:"metrics,omitempty"`
	ArtifactPath       string         `gorm:"column:artifact_path" json:"artifact_path,omitempty"`
	TrainedOnDatasetID *int64         `gorm:"column:trained_on_dataset_id;index" json:"trained_on_dataset_id,omitempty"`
	TrainedAt          *time.Time     `gorm:"column:trained_at" json:"trained_at,omitempty"`
	DeployedAt         *time.Time     `gorm:"column:deployed_at;index" json:"deployed_at,omitempty"`
	CreatedAt          time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt          time.Time      `gorm:"not null" json:"updated_at"`
}

func (MLModelVersion) TableName() string { return "ml_model_version" }

func (MLModelVersion) EntityType() string     { return "ml_model_version" }
func (v *MLModelVersion) GetID() int64        { return v.ID }
func (v *MLModelVersion) GetStatus() string   { return v.Status }
func (v *MLModelVersion) GetLockVersion() int { return v.LockVersion }

func (v *MLModelVersion) SetLifecycle(status string, lockVersion int, at time.Time) {
	v.Status, v.LockVersion, v.UpdatedAt = status, lockVersion, at
}

type MLTrainingRun struct {
	ID             int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ModelVersionID int64          `gorm:"column:model_version_id;not null;index" json:"model_version_id"`
	DatasetID      *int64         `gorm:"column:dataset_id;index" json:"dataset_id,omitempty"`
	Hyperparams    datatypes.JSON `gorm:"column:hyperparams" json:"hyperparams,omitempty"`
	Metrics        datatypes.JSON `gorm:"column:metrics" json:"metrics,omitempty"`
	Error          string         `gorm:"column:error;type:text" json:"error,omitempty"`
	Log            string         `gorm:"column:log;type:text" json:"log,omitempty"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	LockVersion    int            `gorm:"column:lock_version;not null" json:"lock_version"`
	StartedAt      *time.Time     `gorm:"column:started_at" json:"started_at,omitempty"`
	FinishedAt     *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
	CreatedAt      time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null" json:"updated_at"`
}

func (MLTrainingRun) TableName() string { return "ml_training_run" }

func (MLTrainingRun) EntityType() string     { return "ml_training_run" }
func (r *MLTrainingRun) GetID() int64        { return r.ID }
func (r *MLTrainingRun) GetStatus() string   { return r.Status }
func (r *MLTrainingRun) GetLockVersion() int { return r.LockVersion }

func (r *MLTrainingRun) SetLifecycle(status string, lockVersion int, at time.Time) {
	r.Status, r.LockVersion, r.UpdatedAt = status, lockVersion, at
}
