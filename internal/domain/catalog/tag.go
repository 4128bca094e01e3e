package catalog

import "time"

// Tag is the organizing key that schemas, datasets, templates and models hang off.
type Tag struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"column:name;not null;uniqueIndex" json:"name"`
	Category    string    `gorm:"column:category;index" json:"category,omitempty"`
	Description string    `gorm:"column:description;type:text" json:"description,omitempty"`
	IsActive    bool      `gorm:"column:is_active;not null" json:"is_active"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Tag) TableName() string { return "tag" }
func (t *Tag) GetID() int64 { return t.ID }
