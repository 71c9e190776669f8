package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"

	"github.com/google/uuid"

	"finance-ledger/internal/domain"
	"finance-ledger/internal/errors"
)

type categoryRepository struct {
	db     SQLExecutor
	logger *slog.Logger
}

func NewCategoryRepository(db SQLExecutor, logger *slog.Logger) domain.CategoryRepository {
	return &categoryRepository{
		db:     db,
		logger: logger,
	}
}

func (r *categoryRepository) GetCategory(ctx context.Context, ownerID, id uuid.UUID) (*domain.Category, error) {
	query := `
		SELECT id, owner_id, name, type
		FROM categories
		WHERE id = $1 AND (owner_id IS NULL OR owner_id = $2)
	`

	var (
		category domain.Category
		owner    uuid.NullUUID
		typ      string
	)
	err := r.db.QueryRowContext(ctx, query, id, ownerID).Scan(&category.ID, &owner, &category.Name, &typ)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.ErrCategoryNotFound
		}
		r.logger.Error("Failed to get category", "category_id", id, "error", err)
		return nil, translateError(err, "failed to get category")
	}

	if owner.Valid {
		category.OwnerID = &owner.UUID
	}
	category.Type = domain.TransactionType(typ)
	return &category, nil
}
