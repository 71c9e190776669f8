package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
)

const (
	transactionColumns = `id, owner_id, account_id, category_id, amount, type, date, description, created_at, updated_at`

	transactionViewSelect = `
		SELECT t.id, t.owner_id, t.account_id, t.category_id, t.amount, t.type, t.date, t.description,
			t.created_at, t.updated_at,
			a.account_name, a.account_category, a.currency,
			c.id, c.name, c.type
		FROM transactions t
		JOIN accounts a ON a.id = t.account_id
		LEFT JOIN categories c ON c.id = t.category_id`

	DefaultPerPage = 15
	MaxPerPage     = 100
)

type transactionRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewTransactionRepository(db SQLExecutor, logger *slog.Logger) domain.TransactionRepository {
	return &transactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		query,
		tx.ID,
		tx.OwnerID,
		tx.AccountID,
		nullableUUID(tx.CategoryID),
		tx.Amount.String(),
		string(tx.Type),
		tx.Date,
		nullableString(tx.Description),
		now,
		now,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction",
			"account_id", tx.AccountID,
			"amount", tx.Amount,
			"type", tx.Type,
			"error", err)
		return r.writeError(err, "failed to create transaction")
	}

	tx.CreatedAt = now
	tx.UpdatedAt = now
	r.logger.Info("Transaction created successfully", "transaction_id", tx.ID)
	return nil
}

func (r *transactionRepository) GetTransactionForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND owner_id = $2 FOR UPDATE`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Transaction not found", "transaction_id", id)
			return nil, errors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id, "error", err)
		return nil, translateError(err, "failed to get transaction")
	}
	return tx, nil
}

func (r *transactionRepository) UpdateTransaction(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET account_id = $1, category_id = $2, amount = $3, type = $4, date = $5, description = $6, updated_at = $7
		WHERE id = $8 AND owner_id = $9
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		query,
		tx.AccountID,
		nullableUUID(tx.CategoryID),
		tx.Amount.String(),
		string(tx.Type),
		tx.Date,
		nullableString(tx.Description),
		now,
		tx.ID,
		tx.OwnerID,
	)
	if err != nil {
		r.logger.Error("Failed to update transaction", "transaction_id", tx.ID, "error", err)
		return r.writeError(err, "failed to update transaction")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}

	tx.UpdatedAt = now
	r.logger.Info("Transaction updated", "transaction_id", tx.ID)
	return nil
}

func (r *transactionRepository) DeleteTransaction(ctx context.Context, ownerID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete transaction", "transaction_id", id, "error", err)
		return translateError(err, "failed to delete transaction")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.ErrTransactionNotFound
	}

	r.logger.Info("Transaction deleted", "transaction_id", id)
	return nil
}

func (r *transactionRepository) GetTransactionView(ctx context.Context, ownerID, id uuid.UUID) (*domain.TransactionView, error) {
	query := transactionViewSelect + ` WHERE t.id = $1 AND t.owner_id = $2`

	view, err := scanTransactionView(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrTransactionNotFound
		}
		r.logger.Error("Failed to get transaction view", "transaction_id", id, "error", err)
		return nil, translateError(err, "failed to get transaction")
	}
	return view, nil
}

func (r *transactionRepository) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) (*domain.TransactionPage, error) {
	where, args := buildTransactionFilter(ownerID, filter, true)

	var total int
	countQuery := `SELECT COUNT(*) FROM transactions t WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to count transactions", "owner_id", ownerID, "error", err)
		return nil, translateError(err, "failed to count transactions")
	}

	page, perPage := normalizePage(filter.Page, filter.PerPage)
	query := fmt.Sprintf("%s WHERE %s ORDER BY t.date DESC, t.created_at DESC, t.id LIMIT $%d OFFSET $%d",
		transactionViewSelect, where, len(args)+1, len(args)+2)
	args = append(args, perPage, (page-1)*perPage)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "owner_id", ownerID, "error", err)
		return nil, translateError(err, "failed to list transactions")
	}
	defer rows.Close()

	items := make([]domain.TransactionView, 0)
	for rows.Next() {
		view, err := scanTransactionView(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan transaction")
		}
		items = append(items, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to list transactions")
	}

	return &domain.TransactionPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
	}, nil
}

func (r *transactionRepository) Stats(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) (*domain.TransactionStats, error) {
	where, args := buildTransactionFilter(ownerID, filter, false)
	query := `
		SELECT
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'income'), 0),
			COALESCE(SUM(t.amount) FILTER (WHERE t.type = 'expense'), 0),
			COUNT(*) FILTER (WHERE t.type = 'income'),
			COUNT(*) FILTER (WHERE t.type = 'expense')
		FROM transactions t
		WHERE ` + where

	var stats domain.TransactionStats
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalIncome,
		&stats.TotalExpense,
		&stats.IncomeCount,
		&stats.ExpenseCount,
	)
	if err != nil {
		r.logger.Error("Failed to compute transaction stats", "owner_id", ownerID, "error", err)
		return nil, translateError(err, "failed to compute transaction stats")
	}

	stats.NetSavings = stats.TotalIncome.Sub(stats.TotalExpense)
	stats.SavingsRate = decimal.Zero
	if stats.TotalIncome.IsPositive() {
		stats.SavingsRate = stats.NetSavings.Div(stats.TotalIncome).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return &stats, nil
}

func (r *transactionRepository) CategoryStats(ctx context.Context, ownerID uuid.UUID, filter domain.TransactionFilter) ([]domain.CategoryStat, error) {
	where, args := buildTransactionFilter(ownerID, filter, false)
	query := `
		SELECT t.category_id, c.name, t.type, SUM(t.amount), COUNT(*)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE ` + where + `
		GROUP BY t.category_id, c.name, t.type
		ORDER BY t.type, SUM(t.amount) DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to compute category stats", "owner_id", ownerID, "error", err)
		return nil, translateError(err, "failed to compute category stats")
	}
	defer rows.Close()

	stats := make([]domain.CategoryStat, 0)
	for rows.Next() {
		var (
			stat       domain.CategoryStat
			categoryID uuid.NullUUID
			name       sql.NullString
			typ        string
		)
		if err := rows.Scan(&categoryID, &name, &typ, &stat.TotalAmount, &stat.TransactionCount); err != nil {
			return nil, translateError(err, "failed to scan category stat")
		}
		if categoryID.Valid {
			stat.CategoryID = &categoryID.UUID
		}
		stat.CategoryName = stringPtr(name)
		stat.Type = domain.TransactionType(typ)
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to compute category stats")
	}
	return stats, nil
}

// writeError maps foreign key failures on account_id/category_id onto the
// matching not-found error before falling back to translateError.
func (r *transactionRepository) writeError(err error, message string) error {
	if pqCode(err) == pqForeignKeyViolation {
		if strings.Contains(err.Error(), "category") {
			return errors.ErrCategoryNotFound
		}
		return errors.ErrAccountNotFound
	}
	return translateError(err, message)
}

// buildTransactionFilter renders the WHERE clause shared by list and stats
// queries. Type, category, account and search only narrow listings; stats
// honor the date filters alone.
func buildTransactionFilter(ownerID uuid.UUID, f domain.TransactionFilter, listing bool) (string, []interface{}) {
	clauses := []string{"t.owner_id = $1"}
	args := []interface{}{ownerID}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if listing {
		if f.Type != nil {
			add("t.type = $%d", string(*f.Type))
		}
		if f.CategoryID != nil {
			add("t.category_id = $%d", *f.CategoryID)
		}
		if f.AccountID != nil {
			add("t.account_id = $%d", *f.AccountID)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			add("t.description ILIKE '%%' || $%d || '%%'", s)
		}
	}
	if f.StartDate != nil {
		add("t.date >= $%d", *f.StartDate)
	}
	if f.EndDate != nil {
		add("t.date <= $%d", *f.EndDate)
	}
	if f.Month != nil {
		add("EXTRACT(MONTH FROM t.date) = $%d", *f.Month)
	}
	if f.Year != nil {
		add("EXTRACT(YEAR FROM t.date) = $%d", *f.Year)
	}

	return strings.Join(clauses, " AND "), args
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

func nullableUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx          domain.Transaction
		categoryID  uuid.NullUUID
		typ         string
		description sql.NullString
	)

	err := row.Scan(
		&tx.ID,
		&tx.OwnerID,
		&tx.AccountID,
		&categoryID,
		&tx.Amount,
		&typ,
		&tx.Date,
		&description,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		tx.CategoryID = &categoryID.UUID
	}
	tx.Type = domain.TransactionType(typ)
	tx.Description = stringPtr(description)
	return &tx, nil
}

func scanTransactionView(row rowScanner) (*domain.TransactionView, error) {
	var (
		view            domain.TransactionView
		categoryID      uuid.NullUUID
		typ             string
		description     sql.NullString
		accountCategory string
		catID           uuid.NullUUID
		catName         sql.NullString
		catType         sql.NullString
	)

	err := row.Scan(
		&view.ID,
		&view.OwnerID,
		&view.AccountID,
		&categoryID,
		&view.Amount,
		&typ,
		&view.Date,
		&description,
		&view.CreatedAt,
		&view.UpdatedAt,
		&view.Account.Name,
		&accountCategory,
		&view.Account.Currency,
		&catID,
		&catName,
		&catType,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		view.CategoryID = &categoryID.UUID
	}
	view.Type = domain.TransactionType(typ)
	view.Description = stringPtr(description)
	view.Account.ID = view.AccountID
	view.Account.Category = domain.AccountCategory(accountCategory)
	if catID.Valid {
		view.Category = &domain.CategoryRef{
			ID:   catID.UUID,
			Name: catName.String,
			Type: domain.TransactionType(catType.String),
		}
	}
	return &view, nil
}
