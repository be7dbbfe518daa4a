package services

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/charlesng35/omnikit/pkg/errors"
)

const (
	pgUniqueViolation    = "23505"
	mysqlDuplicateEntry  = 1062
	sqliteUniqueFragment = "unique constraint failed"
)

// isUniqueConstraintError reports a unique index violation. gorm translates most of
// them into ErrDuplicatedKey; raw driver errors are checked for statements that
// bypass translation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}

	var (
		pgErr *pgconn.PgError
		myErr *mysql.MySQLError
	)
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return true
	case errors.As(err, &pgErr):
		return pgErr.Code == pgUniqueViolation
	case errors.As(err, &myErr):
		return myErr.Number == mysqlDuplicateEntry
	default:
		return strings.Contains(strings.ToLower(err.Error()), sqliteUniqueFragment)
	}
}

// operationFailed logs err under op and hides it behind ErrOperationFailed. AppErrors
// are already client-safe and pass through unchanged.
func operationFailed(log *zap.Logger, op string, err error, fields ...zap.Field) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	log.Error(op+" failed", append(fields, zap.Error(err))...)
	return apperrors.ErrOperationFailed.WithInternal(err)
}
