package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"not found", gorm.ErrRecordNotFound, apierr.CodeNotFound},
		{"wrapped not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), apierr.CodeNotFound},
		{"duplicated", gorm.ErrDuplicatedKey, apierr.CodeConflict},
		{"pg unique", &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "tag_name_key"}, apierr.CodeConflict},
		{"pg fk", &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, apierr.CodeConflict},
		{"pg not null", &pgconn.PgError{Code: pgerrcode.NotNullViolation, Message: "null value"}, apierr.CodeValidation},
		{"sqlite unique text", errors.New("UNIQUE constraint failed: tag.name"), apierr.CodeConflict},
		{"other", errors.New("disk on fire"), apierr.CodeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify("op", tc.err)
			if !apierr.Is(got, tc.code) {
				t.Fatalf("Classify: want=%s got=%v", tc.code, got)
			}
		})
	}
}

func TestClassifyPassesAPIErrorsThrough(t *testing.T) {
	in := apierr.InvalidTransition("nope")
	if got := Classify("op", in); got != error(in) {
		t.Fatalf("Classify: want passthrough got=%v", got)
	}
	if Classify("op", nil) != nil {
		t.Fatalf("Classify(nil): want nil")
	}
}

func TestSQLiteDSN(t *testing.T) {
	if got := SQLiteDSN("file:x?mode=memory"); got != "file:x?mode=memory&_foreign_keys=on&_busy_timeout=5000" {
		t.Fatalf("SQLiteDSN: got=%s", got)
	}
	if got := SQLiteDSN("data.db"); got != "data.db?_foreign_keys=on&_busy_timeout=5000" {
		t.Fatalf("SQLiteDSN: got=%s", got)
	}
}
