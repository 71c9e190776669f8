package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/errors"
)

// SQLExecutor represents both sql.DB and sql.Tx
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	_ SQLExecutor = (*sql.DB)(nil)
	_ SQLExecutor = (*sql.Tx)(nil)
)

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// Postgres SQLSTATE codes the repositories react to.
const (
	pqUniqueViolation      = "23505"
	pqForeignKeyViolation  = "23503"
	pqCheckViolation       = "23514"
	pqNumericOutOfRange    = "22003"
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
	pqLockNotAvailable     = "55P03"
)

func pqCode(err error) string {
	var pqErr *pq.Error
	if stderrors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// translateError maps driver errors onto the application taxonomy. Errors
// that already are *errors.AppError pass through untouched.
func translateError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch pqCode(err) {
	case pqLockNotAvailable, pqDeadlockDetected, pqSerializationFailure:
		return errors.ErrConcurrencyConflict.WithDetails(err.Error())
	case pqCheckViolation:
		return errors.NewAppError(errors.ValidationFailed, "value violates a storage constraint").WithDetails(err.Error())
	case pqNumericOutOfRange:
		// A balance pushed past the column bounds by an adjustment.
		return errors.NewAppError(errors.ValidationFailed, "amount exceeds the supported range").WithDetails(err.Error())
	}

	return errors.NewAppError(errors.InternalError, message).WithDetails(err.Error())
}

func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullableDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
