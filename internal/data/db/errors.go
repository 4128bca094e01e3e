package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/tagledger-backend/internal/platform/apierr"
)

// Classify maps storage failures onto API error kinds. Errors that already
// carry a kind pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apierr.NotFound("%s: not found", op)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apierr.Conflict("%s: duplicate record", op)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return apierr.Conflict("%s: referenced record missing or still in use", op)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apierr.Internal(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apierr.Conflict("%s: duplicate record (%s)", op, pgErr.ConstraintName)
		case pgerrcode.ForeignKeyViolation:
			return apierr.Conflict("%s: referenced record missing or still in use (%s)", op, pgErr.ConstraintName)
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return apierr.Conflict("%s: concurrent update, retry", op)
		case pgerrcode.CheckViolation, pgerrcode.NotNullViolation:
			return apierr.Validation("%s: %s", op, pgErr.Message)
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint"), strings.Contains(msg, "duplicate key"):
		return apierr.Conflict("%s: duplicate record", op)
	case strings.Contains(msg, "foreign key constraint"):
		return apierr.Conflict("%s: referenced record missing or still in use", op)
	}
	return apierr.Internal(err)
}
