package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/platform/blobstore"
	"github.com/yungbote/tagledger-backend/internal/services"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "STORAGE_MODE", "REDIS_ADDR", "TEMPORAL_ADDRESS", "MAX_UPLOAD_BYTES"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, db.DriverPostgres, cfg.DB.Driver)
	assert.Equal(t, blobstore.ModeLocal, cfg.Storage.Mode)
	assert.Equal(t, int64(64<<20), cfg.MaxUploadBytes)
	assert.Equal(t, services.DefaultMaxUploadBytes, cfg.MaxUploadBytes)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Temporal.Enabled())
}

func TestConfigFileFillsUnsetKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tagledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_driver: sqlite
port: 9090
cors_allowed_origins:
  - https://a.example
  - https://b.example
`), 0o600))

	t.Setenv("PORT", "7070")
	t.Setenv("DB_DRIVER", "")
	os.Unsetenv("DB_DRIVER")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	os.Unsetenv("CORS_ALLOWED_ORIGINS")

	require.NoError(t, applyConfigFile(path))
	cfg := LoadConfig()
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, db.DriverSQLite, cfg.DB.Driver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
}

func TestConfigFileRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [1, 2"), 0o600))
	assert.Error(t, applyConfigFile(path))
	assert.Error(t, applyConfigFile(filepath.Join(t.TempDir(), "missing.yaml")))
}
