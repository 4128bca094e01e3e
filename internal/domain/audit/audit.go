package audit

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EventCreated    = "created"
	EventTransition = "transition"
	EventSupersede  = "supersede"
)

// AuditRecord is insert-only.
type AuditRecord struct {
	ID         int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType string         `gorm:"column:entity_type;not null;index:idx_audit_record_entity,priority:1" json:"entity_type"`
	EntityID   int64          `gorm:"column:entity_id;not null;index:idx_audit_record_entity,priority:2" json:"entity_id"`
	Event      string         `gorm:"column:event;not null" json:"event"`
	OldStatus  string         `gorm:"column:old_status" json:"old_status"`
	NewStatus  string         `gorm:"column:new_status" json:"new_status"`
	Message    string         `gorm:"column:message;type:text" json:"message,omitempty"`
	Payload    datatypes.JSON `gorm:"column:payload" json:"payload,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index:idx_audit_record_entity,priority:3" json:"created_at"`
}

func (AuditRecord) TableName() string { return "audit_record" }
func (a *AuditRecord) GetID() int64 { return a.ID }
