package ledger

import (
	"context"
	"database/sql/driver"
	stderrors "errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
	"finance-ledger/internal/repository"
)

const (
	selectAccountSQL     = `SELECT .+ FROM accounts WHERE id = \$1 AND owner_id = \$2`
	selectCategorySQL    = `SELECT id, owner_id, name, type FROM categories WHERE id = \$1`
	insertTransactionSQL = `INSERT INTO transactions`
	lockTransactionSQL   = `SELECT .+ FROM transactions WHERE id = \$1 AND owner_id = \$2 FOR UPDATE`
	updateTransactionSQL = `UPDATE transactions SET account_id = \$1`
	deleteTransactionSQL = `DELETE FROM transactions WHERE id = \$1 AND owner_id = \$2`
	adjustBalanceSQL     = `UPDATE accounts SET balance = balance \+ \$1`
	selectViewSQL        = `SELECT t.id, .+ FROM transactions t JOIN accounts a ON a.id = t.account_id`
)

var (
	ownerID   = uuid.MustParse("9f1c2f3e-0000-4000-8000-000000000001")
	accountX  = uuid.MustParse("00000000-0000-4000-8000-00000000000a")
	accountY  = uuid.MustParse("00000000-0000-4000-8000-00000000000b")
	txID      = uuid.MustParse("5b0c6a4e-0000-4000-8000-000000000123")
	txDate    = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	createdAt = time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
)

// decimalArg matches a driver value holding a decimal string equal to the
// expected amount, regardless of trailing zeros.
type decimalArg string

func (d decimalArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	got, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return got.Equal(decimal.RequireFromString(string(d)))
}

func newTestEngine(t *testing.T) (*Engine, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewStore(db, logger)
	return NewEngine(store, logger), mock
}

func accountRows(id uuid.UUID, balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_id", "account_name", "account_category", "balance", "currency", "status", "notes", "created_at", "updated_at"}).
		AddRow(id.String(), ownerID.String(), "Main", "savings", balance, "INR", "active", nil, createdAt, createdAt)
}

func transactionRows(accountID uuid.UUID, amount string, typ domain.TransactionType) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_id", "account_id", "category_id", "amount", "type", "date", "description", "created_at", "updated_at"}).
		AddRow(txID.String(), ownerID.String(), accountID.String(), nil, amount, string(typ), txDate, nil, createdAt, createdAt)
}

func viewRows(id, accountID uuid.UUID, amount string, typ domain.TransactionType) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "account_id", "category_id", "amount", "type", "date", "description", "created_at", "updated_at",
		"account_name", "account_category", "currency", "c_id", "c_name", "c_type",
	}).AddRow(id.String(), ownerID.String(), accountID.String(), nil, amount, string(typ), txDate, nil, createdAt, createdAt,
		"Main", "savings", "INR", nil, nil, nil)
}

func balanceRows(balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"balance"}).AddRow(balance)
}

func draft(accountID uuid.UUID, amount string, typ domain.TransactionType) domain.TransactionDraft {
	return domain.TransactionDraft{
		AccountID: accountID,
		Amount:    decimal.RequireFromString(amount),
		Type:      typ,
		Date:      txDate,
	}
}

func TestEngine_Create(t *testing.T) {
	t.Run("expense lowers the account balance", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(selectAccountSQL).WithArgs(accountX, ownerID).WillReturnRows(accountRows(accountX, "1000.00"))
		mock.ExpectExec(insertTransactionSQL).
			WithArgs(sqlmock.AnyArg(), ownerID, accountX, nil, decimalArg("250.00"), "expense", txDate, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("-250.00"), sqlmock.AnyArg(), accountX, ownerID).
			WillReturnRows(balanceRows("750.00"))
		mock.ExpectQuery(selectViewSQL).WillReturnRows(viewRows(txID, accountX, "250.00", domain.TransactionTypeExpense))
		mock.ExpectCommit()

		view, err := engine.Create(context.Background(), ownerID, draft(accountX, "250.00", domain.TransactionTypeExpense))
		require.NoError(t, err)
		assert.Equal(t, accountX, view.Account.ID)
		assert.Equal(t, "Main", view.Account.Name)
		assert.True(t, view.Amount.Equal(decimal.RequireFromString("250")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("income with category raises the balance", func(t *testing.T) {
		engine, mock := newTestEngine(t)
		categoryID := uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(selectAccountSQL).WithArgs(accountX, ownerID).WillReturnRows(accountRows(accountX, "0"))
		mock.ExpectQuery(selectCategorySQL).WithArgs(categoryID, ownerID).
			WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id", "name", "type"}).AddRow(categoryID.String(), nil, "Salary", "income"))
		mock.ExpectExec(insertTransactionSQL).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("0.01"), sqlmock.AnyArg(), accountX, ownerID).
			WillReturnRows(balanceRows("0.01"))
		mock.ExpectQuery(selectViewSQL).WillReturnRows(viewRows(txID, accountX, "0.01", domain.TransactionTypeIncome))
		mock.ExpectCommit()

		d := draft(accountX, "0.01", domain.TransactionTypeIncome)
		d.CategoryID = &categoryID
		_, err := engine.Create(context.Background(), ownerID, d)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects non-positive amounts before touching storage", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		for _, amount := range []string{"0", "0.00", "-50"} {
			_, err := engine.Create(context.Background(), ownerID, draft(accountX, amount, domain.TransactionTypeIncome))
			assert.True(t, stderrors.Is(err, errors.ErrInvalidAmount), "amount %s", amount)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		_, err := engine.Create(context.Background(), ownerID, draft(accountX, "10", domain.TransactionType("transfer")))
		assert.True(t, stderrors.Is(err, errors.ErrInvalidType))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account aborts before any write", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(selectAccountSQL).WithArgs(accountX, ownerID).WillReturnRows(sqlmock.NewRows(nil))
		mock.ExpectRollback()

		_, err := engine.Create(context.Background(), ownerID, draft(accountX, "10", domain.TransactionTypeIncome))
		assert.True(t, stderrors.Is(err, errors.ErrAccountNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed balance update rolls back the insert", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(selectAccountSQL).WillReturnRows(accountRows(accountX, "100"))
		mock.ExpectExec(insertTransactionSQL).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(adjustBalanceSQL).WillReturnError(stderrors.New("connection reset"))
		mock.ExpectRollback()

		_, err := engine.Create(context.Background(), ownerID, draft(accountX, "10", domain.TransactionTypeExpense))
		require.Error(t, err)
		assert.True(t, stderrors.Is(err, errors.ErrInternal))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("lock timeout surfaces as concurrency conflict", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(selectAccountSQL).WillReturnRows(accountRows(accountX, "100"))
		mock.ExpectExec(insertTransactionSQL).WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery(adjustBalanceSQL).WillReturnError(&pq.Error{Code: "55P03", Message: "canceling statement due to lock timeout"})
		mock.ExpectRollback()

		_, err := engine.Create(context.Background(), ownerID, draft(accountX, "10", domain.TransactionTypeExpense))
		assert.True(t, stderrors.Is(err, errors.ErrConcurrencyConflict))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEngine_Update(t *testing.T) {
	t.Run("amount change on the same account", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockTransactionSQL).WithArgs(txID, ownerID).
			WillReturnRows(transactionRows(accountX, "250.00", domain.TransactionTypeExpense))
		mock.ExpectQuery(selectAccountSQL).WithArgs(accountX, ownerID).WillReturnRows(accountRows(accountX, "750.00"))
		mock.ExpectExec(updateTransactionSQL).
			WithArgs(accountX, nil, decimalArg("400.00"), "expense", txDate, nil, sqlmock.AnyArg(), txID, ownerID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("250.00"), sqlmock.AnyArg(), accountX, ownerID).
			WillReturnRows(balanceRows("1000.00"))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("-400.00"), sqlmock.AnyArg(), accountX, ownerID).
			WillReturnRows(balanceRows("600.00"))
		mock.ExpectQuery(selectViewSQL).WillReturnRows(viewRows(txID, accountX, "400.00", domain.TransactionTypeExpense))
		mock.ExpectCommit()

		view, err := engine.Update(context.Background(), ownerID, txID, draft(accountX, "400.00", domain.TransactionTypeExpense))
		require.NoError(t, err)
		assert.True(t, view.Amount.Equal(decimal.RequireFromString("400")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moving to a higher account id reverses first", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockTransactionSQL).WillReturnRows(transactionRows(accountX, "400.00", domain.TransactionTypeExpense))
		mock.ExpectQuery(selectAccountSQL).WithArgs(accountY, ownerID).WillReturnRows(accountRows(accountY, "2000.00"))
		mock.ExpectExec(updateTransactionSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("400.00"), sqlmock.AnyArg(), accountX, ownerID).
			WillReturnRows(balanceRows("1000.00"))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("-400.00"), sqlmock.AnyArg(), accountY, ownerID).
			WillReturnRows(balanceRows("1600.00"))
		mock.ExpectQuery(selectViewSQL).WillReturnRows(viewRows(txID, accountY, "400.00", domain.TransactionTypeExpense))
		mock.ExpectCommit()

		_, err := engine.Update(context.Background(), ownerID, txID, draft(accountY, "400.00", domain.TransactionTypeExpense))
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("moving to a lower account id applies first", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockTransactionSQL).WillReturnRows(transactionRows(accountY, "400.00", domain.TransactionTypeExpense))
		mock.ExpectQuery(selectAccountSQL).WithArgs(accountX, ownerID).WillReturnRows(accountRows(accountX, "1000.00"))
		mock.ExpectExec(updateTransactionSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("-400.00"), sqlmock.AnyArg(), accountX, ownerID).
			WillReturnRows(balanceRows("600.00"))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("400.00"), sqlmock.AnyArg(), accountY, ownerID).
			WillReturnRows(balanceRows("2000.00"))
		mock.ExpectQuery(selectViewSQL).WillReturnRows(viewRows(txID, accountX, "400.00", domain.TransactionTypeExpense))
		mock.ExpectCommit()

		_, err := engine.Update(context.Background(), ownerID, txID, draft(accountX, "400.00", domain.TransactionTypeExpense))
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown transaction touches no account", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockTransactionSQL).WithArgs(txID, ownerID).WillReturnRows(sqlmock.NewRows(nil))
		mock.ExpectRollback()

		_, err := engine.Update(context.Background(), ownerID, txID, draft(accountX, "10", domain.TransactionTypeIncome))
		assert.True(t, stderrors.Is(err, errors.ErrTransactionNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing old account is an invariant violation", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockTransactionSQL).WillReturnRows(transactionRows(accountX, "50", domain.TransactionTypeIncome))
		mock.ExpectQuery(selectAccountSQL).WithArgs(accountY, ownerID).WillReturnRows(accountRows(accountY, "0"))
		mock.ExpectExec(updateTransactionSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("-50"), sqlmock.AnyArg(), accountX, ownerID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectRollback()

		_, err := engine.Update(context.Background(), ownerID, txID, draft(accountY, "50", domain.TransactionTypeIncome))
		assert.True(t, stderrors.Is(err, errors.ErrInvariantViolation))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown new account aborts before any write", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockTransactionSQL).WillReturnRows(transactionRows(accountX, "50", domain.TransactionTypeIncome))
		mock.ExpectQuery(selectAccountSQL).WithArgs(accountY, ownerID).WillReturnRows(sqlmock.NewRows(nil))
		mock.ExpectRollback()

		_, err := engine.Update(context.Background(), ownerID, txID, draft(accountY, "50", domain.TransactionTypeIncome))
		assert.True(t, stderrors.Is(err, errors.ErrAccountNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEngine_Delete(t *testing.T) {
	t.Run("reverses the expense", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockTransactionSQL).WithArgs(txID, ownerID).
			WillReturnRows(transactionRows(accountY, "400.00", domain.TransactionTypeExpense))
		mock.ExpectExec(deleteTransactionSQL).WithArgs(txID, ownerID).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("400.00"), sqlmock.AnyArg(), accountY, ownerID).
			WillReturnRows(balanceRows("2000.00"))
		mock.ExpectCommit()

		require.NoError(t, engine.Delete(context.Background(), ownerID, txID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown transaction", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockTransactionSQL).WillReturnRows(sqlmock.NewRows(nil))
		mock.ExpectRollback()

		err := engine.Delete(context.Background(), ownerID, txID)
		assert.True(t, stderrors.Is(err, errors.ErrTransactionNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing account rolls back the delete", func(t *testing.T) {
		engine, mock := newTestEngine(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockTransactionSQL).WillReturnRows(transactionRows(accountX, "10", domain.TransactionTypeIncome))
		mock.ExpectExec(deleteTransactionSQL).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(adjustBalanceSQL).WillReturnRows(sqlmock.NewRows([]string{"balance"}))
		mock.ExpectRollback()

		err := engine.Delete(context.Background(), ownerID, txID)
		assert.True(t, stderrors.Is(err, errors.ErrInvariantViolation))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestEngine_Apply(t *testing.T) {
	t.Run("rejects amount at or below zero", func(t *testing.T) {
		engine, mock := newTestEngine(t)
		store := repository.NewStore(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

		_, err := engine.Apply(context.Background(), store, ownerID, accountX, decimal.Zero, domain.TransactionTypeIncome)
		assert.True(t, stderrors.Is(err, errors.ErrInvalidAmount))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown account", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		store := repository.NewStore(db, logger)
		engine := NewEngine(store, logger)

		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("5"), sqlmock.AnyArg(), accountX, ownerID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}))

		_, err = engine.Apply(context.Background(), store, ownerID, accountX, decimal.NewFromInt(5), domain.TransactionTypeIncome)
		assert.True(t, stderrors.Is(err, errors.ErrAccountNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns the new balance", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		store := repository.NewStore(db, logger)
		engine := NewEngine(store, logger)

		mock.ExpectQuery(adjustBalanceSQL).
			WithArgs(decimalArg("-5"), sqlmock.AnyArg(), accountX, ownerID).
			WillReturnRows(balanceRows("95.00"))

		balance, err := engine.Apply(context.Background(), store, ownerID, accountX, decimal.NewFromInt(5), domain.TransactionTypeExpense)
		require.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(95)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
