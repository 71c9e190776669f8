package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
)

const budgetSelect = `
	SELECT b.id, b.owner_id, b.category_id, b.amount, b.month, b.created_at, b.updated_at,
		c.name, c.type
	FROM budgets b
	LEFT JOIN categories c ON c.id = b.category_id`

type budgetRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewBudgetRepository(db SQLExecutor, logger *slog.Logger) domain.BudgetRepository {
	return &budgetRepository{
		db:     db,
		logger: logger,
	}
}

func (r *budgetRepository) CreateBudget(ctx context.Context, budget *domain.Budget) error {
	query := `
		INSERT INTO budgets (id, owner_id, category_id, amount, month, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		query,
		budget.ID,
		budget.OwnerID,
		nullableUUID(budget.CategoryID),
		budget.Amount.String(),
		budget.Month,
		now,
		now,
	)
	if err != nil {
		switch pqCode(err) {
		case pqUniqueViolation:
			r.logger.Warn("Duplicate budget", "month", budget.Month, "category_id", budget.CategoryID)
			return errors.ErrBudgetExists
		case pqForeignKeyViolation:
			return errors.ErrCategoryNotFound
		}
		r.logger.Error("Failed to create budget", "budget_id", budget.ID, "error", err)
		return translateError(err, "failed to create budget")
	}

	budget.CreatedAt = now
	budget.UpdatedAt = now
	r.logger.Info("Budget created successfully", "budget_id", budget.ID, "month", budget.Month)
	return nil
}

func (r *budgetRepository) GetBudget(ctx context.Context, ownerID, id uuid.UUID) (*domain.Budget, error) {
	query := budgetSelect + ` WHERE b.id = $1 AND b.owner_id = $2`

	budget, err := scanBudget(r.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			r.logger.Warn("Budget not found", "budget_id", id)
			return nil, errors.ErrBudgetNotFound
		}
		r.logger.Error("Failed to get budget", "budget_id", id, "error", err)
		return nil, translateError(err, "failed to get budget")
	}
	return budget, nil
}

func (r *budgetRepository) ListBudgets(ctx context.Context, ownerID uuid.UUID, filter domain.BudgetFilter) ([]domain.Budget, error) {
	query := budgetSelect + ` WHERE b.owner_id = $1`
	args := []interface{}{ownerID}

	if filter.Month != nil {
		args = append(args, *filter.Month)
		query += ` AND b.month = $` + strconv.Itoa(len(args))
	}
	if filter.Year != nil {
		args = append(args, strconv.Itoa(*filter.Year)+"-%")
		query += ` AND b.month LIKE $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY b.month DESC, b.created_at, b.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list budgets", "owner_id", ownerID, "error", err)
		return nil, translateError(err, "failed to list budgets")
	}
	defer rows.Close()

	budgets := make([]domain.Budget, 0)
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, translateError(err, "failed to scan budget")
		}
		budgets = append(budgets, *budget)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err, "failed to list budgets")
	}
	return budgets, nil
}

func (r *budgetRepository) UpdateBudgetAmount(ctx context.Context, ownerID, id uuid.UUID, amount decimal.Decimal) error {
	query := `UPDATE budgets SET amount = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4`

	result, err := r.db.ExecContext(ctx, query, amount.String(), time.Now().UTC(), id, ownerID)
	if err != nil {
		r.logger.Error("Failed to update budget", "budget_id", id, "error", err)
		return translateError(err, "failed to update budget")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.ErrBudgetNotFound
	}

	r.logger.Info("Budget amount updated", "budget_id", id, "amount", amount)
	return nil
}

func (r *budgetRepository) DeleteBudget(ctx context.Context, ownerID, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		r.logger.Error("Failed to delete budget", "budget_id", id, "error", err)
		return translateError(err, "failed to delete budget")
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return translateError(err, "failed to get rows affected")
	}
	if rowsAffected == 0 {
		return errors.ErrBudgetNotFound
	}

	r.logger.Info("Budget deleted", "budget_id", id)
	return nil
}

func scanBudget(row rowScanner) (*domain.Budget, error) {
	var (
		budget       domain.Budget
		categoryID   uuid.NullUUID
		categoryName sql.NullString
		categoryType sql.NullString
	)

	err := row.Scan(
		&budget.ID,
		&budget.OwnerID,
		&categoryID,
		&budget.Amount,
		&budget.Month,
		&budget.CreatedAt,
		&budget.UpdatedAt,
		&categoryName,
		&categoryType,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		id := categoryID.UUID
		budget.CategoryID = &id
		if categoryName.Valid {
			budget.Category = &domain.CategoryRef{
				ID:   id,
				Name: categoryName.String,
				Type: domain.TransactionType(categoryType.String),
			}
		}
	}
	return &budget, nil
}
