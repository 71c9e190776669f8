package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finance-ledger/internal/ledger"
	"finance-ledger/internal/repository"
)

var (
	ownerID   = uuid.MustParse("7e1d9a52-0000-4000-8000-000000000001")
	accountID = uuid.MustParse("7e1d9a52-0000-4000-8000-0000000000aa")
	stamp     = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
)

type fixture struct {
	mock         sqlmock.Sqlmock
	accounts     *AccountService
	transactions *TransactionService
	budgets      *BudgetService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := repository.NewStore(db, logger)
	engine := ledger.NewEngine(store, logger)

	return &fixture{
		mock:         mock,
		accounts:     NewAccountService(store, logger),
		transactions: NewTransactionService(store, engine, logger),
		budgets:      NewBudgetService(store, logger),
	}
}

func (f *fixture) assertDone(t *testing.T) {
	t.Helper()
	require.NoError(t, f.mock.ExpectationsWereMet())
}

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func strPtr(s string) *string {
	return &s
}

func accountRow(balance string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "owner_id", "account_name", "account_category", "balance", "currency", "status", "notes", "created_at", "updated_at"}).
		AddRow(accountID.String(), ownerID.String(), "Wallet", "wallet", balance, "INR", "active", nil, stamp, stamp)
}

func ctx() context.Context {
	return context.Background()
}
