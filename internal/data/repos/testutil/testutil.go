package testutil

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/tagledger-backend/internal/data/db"
	"github.com/yungbote/tagledger-backend/internal/platform/logger"
)

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	dbSeq atomic.Int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

var unsafeName = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// DB returns a migrated database private to the calling test. It is an
// in-memory sqlite database unless TEST_POSTGRES_DSN is set, in which case the
// test gets its own postgres schema that is dropped on cleanup.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	name := fmt.Sprintf("t%d_%s", dbSeq.Add(1), unsafeName.ReplaceAllString(tb.Name(), "_"))
	if len(name) > 48 {
		name = name[:48]
	}
	name = strings.ToLower(name)

	var (
		theDB *gorm.DB
		err   error
	)
	if dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN")); dsn != "" {
		theDB, err = postgresSchemaDB(tb, dsn, name)
	} else {
		theDB, err = sqliteMemoryDB(name)
	}
	if err != nil {
		tb.Fatalf("failed to init test db: %v", err)
	}
	if err := db.AutoMigrateAll(theDB); err != nil {
		tb.Fatalf("failed to migrate test db: %v", err)
	}
	tb.Cleanup(func() {
		if sqlDB, err := theDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return theDB
}

func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
		TranslateError: true,
	}
}

func sqliteMemoryDB(name string) (*gorm.DB, error) {
	dsn := db.SQLiteDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	theDB, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := theDB.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return theDB, nil
}

func postgresSchemaDB(tb testing.TB, dsn, schema string) (*gorm.DB, error) {
	admin, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, err
	}
	if err := admin.Exec(`CREATE SCHEMA IF NOT EXISTS "` + schema + `"`).Error; err != nil {
		return nil, err
	}
	tb.Cleanup(func() {
		_ = admin.Exec(`DROP SCHEMA IF EXISTS "` + schema + `" CASCADE`).Error
		if sqlDB, err := admin.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return gorm.Open(postgres.Open(dsn+sep+"search_path="+schema), gormConfig())
}

// Tx opens a transaction that is rolled back when the test ends.
func Tx(tb testing.TB, theDB *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := theDB.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}
