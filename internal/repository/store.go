package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"finance-ledger/internal/domain"
)

// Store provides a unified interface for all repository operations with transaction support
type Store struct {
	db          *sql.DB
	executor    SQLExecutor
	logger      *slog.Logger
	lockTimeout time.Duration
	inTx        bool
}

type StoreOption func(*Store)

// WithLockTimeout bounds how long a unit of work waits for a row lock.
// Zero leaves the server default in place.
func WithLockTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		s.lockTimeout = d
	}
}

// NewStore creates a new Store instance
func NewStore(db *sql.DB, logger *slog.Logger, opts ...StoreOption) *Store {
	s := &Store{
		db:       db,
		executor: db,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Account returns an AccountRepository using the current executor
func (s *Store) Account() domain.AccountRepository {
	return NewAccountRepository(s.executor, s.logger)
}

// Transaction returns a TransactionRepository using the current executor
func (s *Store) Transaction() domain.TransactionRepository {
	return NewTransactionRepository(s.executor, s.logger)
}

// Category returns a CategoryRepository using the current executor
func (s *Store) Category() domain.CategoryRepository {
	return NewCategoryRepository(s.executor, s.logger)
}

// Budget returns a BudgetRepository using the current executor
func (s *Store) Budget() domain.BudgetRepository {
	return NewBudgetRepository(s.executor, s.logger)
}

// InTransaction reports whether the store is bound to an open unit of work.
func (s *Store) InTransaction() bool {
	return s.inTx
}

// WithTransaction runs fn as one unit of work: every write issued through
// the Store handed to fn commits together or not at all. Calling it on a
// Store that is already inside a unit of work joins that unit.
func (s *Store) WithTransaction(ctx context.Context, fn func(*Store) error) (err error) {
	if s.inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return translateError(err, "failed to begin transaction")
	}

	txStore := &Store{
		executor:    tx,
		logger:      s.logger,
		lockTimeout: s.lockTimeout,
		inTx:        true,
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if s.lockTimeout > 0 {
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeout.Milliseconds())
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			tx.Rollback()
			return translateError(err, "failed to set lock timeout")
		}
	}

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error("Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return translateError(err, "failed to commit transaction")
	}
	return nil
}
