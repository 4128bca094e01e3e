package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/jobs/worker"
	"github.com/yungbote/tagledger-backend/internal/observability"
	"github.com/yungbote/tagledger-backend/internal/platform/blobstore"
	"github.com/yungbote/tagledger-backend/internal/platform/envutil"
	"github.com/yungbote/tagledger-backend/internal/services"
	"github.com/yungbote/tagledger-backend/internal/temporalx"
)

type Config struct {
	Port           string
	LogMode        string
	AllowedOrigins []string
	MaxUploadBytes int64

	DB       db.Config
	Storage  blobstore.Config
	Redis    RedisConfig
	Temporal temporalx.Config
	Worker   worker.Config
	Otel     observability.OtelConfig
}

type RedisConfig struct {
	Addr    string
	Channel string
}

func (c RedisConfig) Enabled() bool { return strings.TrimSpace(c.Addr) != "" }

// LoadEnv reads .env (when present) and the YAML file named by CONFIG_FILE.
// Values already in the environment win over both.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load .env: %w", err)
	}
	path := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	if path == "" {
		return nil
	}
	return applyConfigFile(path)
}

// applyConfigFile sets every top-level key of a flat YAML map as an
// environment variable unless it is already set.
func applyConfigFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	for key, val := range values {
		key = strings.ToUpper(strings.TrimSpace(key))
		if key == "" || val == nil {
			continue
		}
		if _, set := os.LookupEnv(key); set {
			continue
		}
		if err := os.Setenv(key, yamlString(val)); err != nil {
			return err
		}
	}
	return nil
}

func yamlString(v any) string {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(t)
	}
}

func LoadConfig() Config {
	return Config{
		Port:           envutil.String("PORT", "8080"),
		LogMode:        envutil.String("LOG_MODE", "development"),
		AllowedOrigins: envutil.List("CORS_ALLOWED_ORIGINS", nil),
		MaxUploadBytes: envutil.Int64("MAX_UPLOAD_BYTES", services.DefaultMaxUploadBytes),
		DB: db.Config{
			Driver:       strings.ToLower(envutil.String("DB_DRIVER", db.DriverPostgres)),
			Host:         envutil.String("POSTGRES_HOST", "localhost"),
			Port:         envutil.String("POSTGRES_PORT", "5432"),
			User:         envutil.String("POSTGRES_USER", "postgres"),
			Password:     envutil.String("POSTGRES_PASSWORD", ""),
			Name:         envutil.String("POSTGRES_NAME", "tagledger"),
			SSLMode:      envutil.String("POSTGRES_SSLMODE", "disable"),
			SQLitePath:   envutil.String("SQLITE_PATH", "tagledger.db"),
			MaxOpenConns: envutil.Int("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns: envutil.Int("DB_MAX_IDLE_CONNS", 5),
			SlowQuery:    envutil.Duration("DB_SLOW_QUERY", time.Second),
		},
		Storage: blobstore.Config{
			Mode:         blobstore.Mode(strings.ToLower(envutil.String("STORAGE_MODE", string(blobstore.ModeLocal)))),
			LocalDir:     envutil.String("STORAGE_LOCAL_DIR", "data/blobs"),
			Bucket:       envutil.String("GCS_BUCKET_NAME", ""),
			EmulatorHost: envutil.String("STORAGE_EMULATOR_HOST", ""),
			Credentials:  envutil.String("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Redis: RedisConfig{
			Addr:    envutil.String("REDIS_ADDR", ""),
			Channel: envutil.String("REDIS_CHANNEL", "tagledger.lifecycle"),
		},
		Temporal: temporalx.LoadConfig(),
		Worker:   worker.LoadConfig(),
		Otel:     observability.LoadOtelConfig(),
	}
}
