package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/tagledger-backend/internal/domain"
)

// Partial indexes gorm tags cannot express. The SQL is valid on both postgres and sqlite.
var extraIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_data_schema_default_per_tag ON data_schema (tag_id) WHERE is_default`,
	`CREATE INDEX IF NOT EXISTS idx_job_pending ON job (queue, priority DESC, created_at) WHERE status = 'queued'`,
	`CREATE INDEX IF NOT EXISTS idx_ml_model_version_deployed ON ml_model_version (model_id, deployed_at) WHERE status = 'deployed'`,
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(domain.Models()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	for _, stmt := range extraIndexes {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("Running auto-migrations")
	return AutoMigrateAll(s.db)
}
