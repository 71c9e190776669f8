package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
)

const accountColumns = `id, owner_id, account_name, account_category, balance, currency, status, notes, created_at, updated_at`

type accountRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewAccountRepository(db SQLExecutor, logger *slog.Logger) domain.AccountRepository {
	return &accountRepository{
		db:     db,
		logger: logger,
	}
}

func (r *accountRepository) CreateAccount(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		query,
		account.ID,
		account.OwnerID,
		account.Name,
		string(account.Category),
		account.Balance.String(),
		account.Currency,
		string(account.Status),
		nullableString(account.Notes),
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create account", "account_id", account.ID, "error", err)
		return translateError(err, "failed to create account")
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.logger.Info("Account created successfully", "account_id", account.ID)
	return nil
}

func (r *accountRepository) GetAccount(ctx context.Context, ownerID, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND owner_id = $2`

	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Account not found", "account_id", id)
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to get account", "account_id", id, "error", err)
		return nil, translateError(err, "failed to get account")
	}
	return account, nil
}

func (r *accountRepository) ListAccounts(ctx context.Context, ownerID uuid.UUID) ([]domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE owner_id = $1 ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list accounts", "owner_id", ownerID, "error", err)
		return nil, translateError(err, "failed to list accounts")
	}
	defer rows.Close()

	accounts := make([]domain.Account, 0)
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan account")
		}
		accounts = append(accounts, *account)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to list accounts")
	}
	return accounts, nil
}

func (r *accountRepository) UpdateAccount(ctx context.Context, ownerID, id uuid.UUID, patch domain.AccountPatch) (*domain.Account, error) {
	query := `
		UPDATE accounts SET
			account_name = COALESCE($3, account_name),
			balance = COALESCE($4, balance),
			currency = COALESCE($5, currency),
			status = COALESCE($6, status),
			notes = COALESCE($7, notes),
			updated_at = $8
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + accountColumns

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}

	account, err := scanAccount(r.db.QueryRowContext(ctx,
		query,
		id,
		ownerID,
		nullableString(patch.Name),
		nullableDecimal(patch.Balance),
		nullableString(patch.Currency),
		nullableString(status),
		nullableString(patch.Notes),
		time.Now().UTC(),
	))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to update account", "account_id", id, "error", err)
		return nil, translateError(err, "failed to update account")
	}

	if patch.Balance != nil {
		r.logger.Warn("Account balance overridden by owner", "account_id", id, "new_balance", account.Balance)
	}
	return account, nil
}

func (r *accountRepository) DeleteAccount(ctx context.Context, ownerID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete account", "account_id", id, "error", err)
		return translateError(err, "failed to delete account")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.ErrAccountNotFound
	}

	r.logger.Info("Account deleted", "account_id", id)
	return nil
}

func (r *accountRepository) AdjustBalance(ctx context.Context, ownerID, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $1, updated_at = $2
		WHERE id = $3 AND owner_id = $4
		RETURNING balance
	`

	var balance decimal.Decimal
	err := r.db.QueryRowContext(ctx, query, delta.String(), time.Now().UTC(), id, ownerID).Scan(&balance)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("No account found to adjust", "account_id", id)
			return decimal.Zero, errors.ErrAccountNotFound
		}
		r.logger.Error("Failed to adjust account balance", "account_id", id, "delta", delta, "error", err)
		return decimal.Zero, translateError(err, "failed to adjust account balance")
	}

	r.logger.Info("Account balance adjusted", "account_id", id, "delta", delta, "new_balance", balance)
	return balance, nil
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		account  domain.Account
		category string
		status   string
		notes    sql.NullString
	)

	err := row.Scan(
		&account.ID,
		&account.OwnerID,
		&account.Name,
		&category,
		&account.Balance,
		&account.Currency,
		&status,
		&notes,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.Category = domain.AccountCategory(category)
	account.Status = domain.AccountStatus(status)
	account.Notes = stringPtr(notes)
	return &account, nil
}
