package repository

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-ledger/internal/errors"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStore_WithTransaction(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM accounts`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		store := NewStore(db, discardLogger())
		err = store.WithTransaction(context.Background(), func(s *Store) error {
			assert.True(t, s.InTransaction())
			return s.Account().DeleteAccount(context.Background(), ownerID, accountID)
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back and returns the callback error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		store := NewStore(db, discardLogger())
		err = store.WithTransaction(context.Background(), func(*Store) error {
			return errors.ErrTransactionNotFound
		})
		assert.True(t, stderrors.Is(err, errors.ErrTransactionNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectRollback()

		store := NewStore(db, discardLogger())
		assert.Panics(t, func() {
			_ = store.WithTransaction(context.Background(), func(*Store) error {
				panic("boom")
			})
		})
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("sets the lock timeout", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(`SET LOCAL lock_timeout = '1500ms'`).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		store := NewStore(db, discardLogger(), WithLockTimeout(1500*time.Millisecond))
		err = store.WithTransaction(context.Background(), func(*Store) error { return nil })
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins the open unit of work", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit()

		store := NewStore(db, discardLogger())
		err = store.WithTransaction(context.Background(), func(outer *Store) error {
			return outer.WithTransaction(context.Background(), func(inner *Store) error {
				assert.Same(t, outer, inner)
				return nil
			})
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure is reported", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(stderrors.New("connection lost"))

		store := NewStore(db, discardLogger())
		err = store.WithTransaction(context.Background(), func(*Store) error { return nil })
		assert.True(t, stderrors.Is(err, errors.ErrInternal))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
